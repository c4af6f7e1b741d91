// Package main provides the TUI entry point for the sentinel dashboard
package main

import (
	"flag"
	"fmt"
	"os"

	"adaplio-sentinel/internal/tui"
)

var (
	version = "dev"
)

func main() {
	var (
		showVersion bool
		serverURL   string
		apiKey      string
	)

	flag.BoolVar(&showVersion, "version", false, "Show version and exit")
	flag.BoolVar(&showVersion, "v", false, "Show version and exit (shorthand)")
	flag.StringVar(&serverURL, "server", "http://localhost:8090", "Sentinel server URL")
	flag.StringVar(&serverURL, "s", "http://localhost:8090", "Sentinel server URL (shorthand)")
	flag.StringVar(&apiKey, "key", os.Getenv("SENTINEL_API_KEY"), "API key for the sentinel server")
	flag.Parse()

	if showVersion {
		fmt.Printf("sentinel-tui %s\n", version)
		os.Exit(0)
	}

	if err := tui.Run(serverURL, apiKey); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
