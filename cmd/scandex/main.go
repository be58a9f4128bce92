// Package main provides the entry point for the scandex CLI.
package main

import (
	"os"

	"github.com/scandex-dev/scandex/cmd/scandex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
