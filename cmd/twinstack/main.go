// Package main is the entry point for the twinstack CLI.
//
// twinstack deploys the packaged IoT workload stack (MQTT protocol adapter,
// digital twin, device registry) onto a Kubernetes cluster, drives it to a
// converged healthy state, and writes the endpoint and credential
// configuration consumed by the downstream telemetry services.
//
// For detailed usage information, run:
//
//	twinstack --help
package main

import (
	"fmt"
	"os"

	"github.com/fleetlab/twinstack/cmd/twinstack/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
