// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	// Lectio is the canonical application identifier used for filesystem paths and CLI branding.
	Lectio = "lectio"

	// Version is the current application semantic version string.
	Version = "0.1.0"

	// UserAgent is the HTTP User-Agent string sent with marketplace API requests.
	UserAgent = "lectio-cli/" + Version
)
