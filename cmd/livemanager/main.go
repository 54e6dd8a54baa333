// Package main is the entry point for the livemanager application.
package main

import (
	"os"

	"github.com/livemanager/livemanager/cmd/livemanager/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
