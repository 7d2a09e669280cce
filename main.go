package main

import (
	"fmt"
	"os"

	"github.com/fusionvision/thermal-events-go/cmd"
	"github.com/fusionvision/thermal-events-go/internal/conf"
	"github.com/fusionvision/thermal-events-go/internal/logging"
)

// version and buildDate are overridden at build time via ldflags.
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	os.Exit(run())
}

// run keeps os.Exit out of the way of the deferred logger shutdown.
func run() int {
	// Configuration problems are reported before any backend is dialed.
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	settings.Version = version
	settings.BuildDate = buildDate

	if err := logging.Init(&settings.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = logging.Shutdown() }()

	// Cobra reports the error itself; only the exit code is ours.
	if err := cmd.RootCommand(settings).Execute(); err != nil {
		return 1
	}
	return 0
}
