// Gray Logic Fingerprint - biometric access-control node
//
// This is the main entry point for the fingerprint node. The node drives
// an R30x-family fingerprint sensor over a serial link, keeps a registry of
// enrolled templates and exposes scan results and administrative commands
// over MQTT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// getConfigPath returns the configuration file path.
// Uses FINGERPRINT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("FINGERPRINT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
