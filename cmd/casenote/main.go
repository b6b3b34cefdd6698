// Package main is the entry point for the casenote CLI.
package main

import (
	"os"

	"github.com/runger/casenote/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
