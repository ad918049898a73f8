// Package cache provides background maintenance for localized cache artifacts.
package cache

import (
	"os"
	"time"

	"github.com/lectio-cli/lectio/filesystem"
	"github.com/lectio-cli/lectio/where"
)

// TTL is the age past which an untouched cache artifact is considered dead
// weight. Live artifacts (course snapshots, version checks) rewrite themselves
// well within it.
const TTL = 7 * 24 * time.Hour

// CollectGarbage initializes an asynchronous background task to prune expired
// cache entries and leftover temporary files from the filesystem.
func CollectGarbage() {
	go func() {
		fs := filesystem.API()

		_ = fs.Walk(where.Cache(), func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return nil
			}
			if time.Since(info.ModTime()) > TTL {
				_ = fs.Remove(path)
			}
			return nil
		})

		_ = fs.RemoveAll(where.Temp())
		_ = fs.MkdirAll(where.Temp(), os.ModePerm)
	}()
}
