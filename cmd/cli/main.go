// Package main is the entry point for the tuneplane CLI.
// The CLI is the developer terminal tool for interacting with the tuneplane API.
package main

import (
	"os"

	"tuneplane/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
