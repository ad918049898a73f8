// Package player defines a unified abstraction layer for media playback engines.
// The primary backend targets mpv via its JSON-IPC interface.
package player

import (
	"net/url"
	"path"
	"strings"
)

// Kind discriminates the two playback initialization paths.
type Kind int

const (
	// Progressive is a directly seekable file (mp4, webm, mov, ogg, mkv).
	Progressive Kind = iota
	// Adaptive is a playlist-style manifest with multiple renditions
	// negotiated at runtime by available bandwidth (HLS/DASH).
	Adaptive
)

func (k Kind) String() string {
	if k == Adaptive {
		return "adaptive"
	}
	return "progressive"
}

// Source is a playback target resolved once at construction. The kind decides
// which backend initialization path is engaged; it is never re-inferred later.
type Source struct {
	Kind Kind
	URL  string
}

// adaptiveSuffixes are manifest extensions that engage rendition negotiation.
var adaptiveSuffixes = []string{".m3u8", ".m3u", ".mpd"}

// DetectSource infers the source kind from the URL's path suffix. Query
// strings (signed URLs) are ignored for sniffing. Unknown suffixes default to
// progressive: mpv copes, and a wrong adaptive guess would be worse.
func DetectSource(rawURL string) Source {
	suffix := strings.ToLower(path.Ext(rawURL))
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		suffix = strings.ToLower(path.Ext(u.Path))
	}

	for _, s := range adaptiveSuffixes {
		if suffix == s {
			return Source{Kind: Adaptive, URL: rawURL}
		}
	}

	return Source{Kind: Progressive, URL: rawURL}
}
