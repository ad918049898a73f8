// Package version provides unified mechanisms for application version tracking, update discovery, and compatibility validation.
package version

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/metafates/gache"

	"github.com/lectio-cli/lectio/filesystem"
	"github.com/lectio-cli/lectio/network"
	"github.com/lectio-cli/lectio/where"
)

var versionCacher = gache.New[string](&gache.Options{
	Path:       filepath.Join(where.Cache(), "version.json"),
	Lifetime:   time.Hour * 24 * 2,
	FileSystem: &filesystem.GacheFs{},
})

// Latest retrieves the most recent stable application version identifier from the remote update registry.
// It queries the GitHub Releases API and caches the result for performance and rate-limit mitigation.
func Latest() (version string, err error) {
	ver, expired, err := versionCacher.Get()
	if err != nil {
		return "", err
	}

	if !expired && ver != "" {
		return ver, nil
	}

	var release struct {
		TagName string `json:"tag_name"`
	}

	resp, err := resty.NewWithClient(network.Client).R().
		SetResult(&release).
		Get("https://api.github.com/repos/lectio-cli/lectio/releases/latest")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("release lookup: status %d", resp.StatusCode())
	}

	if release.TagName == "" {
		return "", errors.New("empty tag name")
	}

	version = strings.TrimPrefix(release.TagName, "v")
	_ = versionCacher.Set(version)
	return version, nil
}
