package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Version will be set at build time via -ldflags
var Version = "v0.0.1-alpha"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Operation failures were already reported by the command.
		if !errors.Is(err, errOperationFailed) {
			fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("Error:"), err)
		}
		os.Exit(1)
	}
}
