// Package main is the entry point for the statusreporter CLI.
//
// The reporter can be embedded as a library (SDK) or run as a sidecar binary
// configured by YAML, flags and environment variables. This CLI provides the
// sidecar approach.
//
// Usage:
//
//	statusreporter run -c reporter.yaml      # Report until interrupted
//	statusreporter validate -c reporter.yaml # Validate configuration
//	statusreporter payload -c reporter.yaml  # Print the next report body
//	statusreporter version                   # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/jpalmerr/statusreporter"
	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "statusreporter",
	Short: "A periodic status reporter for service replicas",
	Long: `statusreporter periodically posts this replica's load to a
status-aggregation service, so the service can tell which replicas are alive.

Reports are sent every interval after a success and every half interval
after a failure. Each attempt is bounded by a request timeout plus one
second, so a stalled endpoint never stops the loop.

Quick start:
  1. Create a config file (reporter.yaml)
  2. Run: statusreporter run -c reporter.yaml

Example config:
  token: ${CRISP_TOKEN}
  service_id: billing
  node_id: api
  replica_id: ${HOSTNAME}
  interval: 30s

Every setting can also be given as a flag or a STATUSREPORTER_* variable,
e.g. STATUSREPORTER_SERVICE_ID=billing.`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this statusreporter binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "statusreporter %s\n", version)
		fmt.Fprintf(out, "  library: %s\n", statusreporter.Version)
		fmt.Fprintf(out, "  commit:  %s\n", commit)
		fmt.Fprintf(out, "  built:   %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
