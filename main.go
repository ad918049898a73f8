// Package main is the entry point for the lectio application.
package main

import (
	"github.com/samber/lo"

	"github.com/lectio-cli/lectio/cmd"
	"github.com/lectio-cli/lectio/config"
	"github.com/lectio-cli/lectio/internal/cache"
	"github.com/lectio-cli/lectio/internal/sync"
	"github.com/lectio-cli/lectio/log"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	// Initialize asynchronous background processes for cache maintenance and
	// replay of progress writes that failed in an earlier session.
	go cache.CollectGarbage()
	go sync.ReconcileFailures()

	cmd.Execute()
}
