package main

import (
	"fmt"
	"os"

	"github.com/thalib/uiconf/cmd/uiconf/internal/cli"
)

var (
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	cli.SetBuildInfo(commit, buildTime)
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
