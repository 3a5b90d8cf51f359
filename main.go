package main

import (
	"fmt"
	"os"

	"github.com/librarydesk/librarydesk/internal/cli"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := cli.NewRootCommand(cli.BuildInfo{Version: Version, Commit: Commit}).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
