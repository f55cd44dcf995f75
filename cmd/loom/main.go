// cmd/loom/main.go
//
// Entry point for the loom CLI. Command parsing lives in internal/cli;
// this file only dispatches.

package main

import (
	"os"

	"github.com/yourusername/loom/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
