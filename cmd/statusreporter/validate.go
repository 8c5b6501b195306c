package main

import (
	"fmt"

	"github.com/jpalmerr/statusreporter"
	"github.com/spf13/cobra"
)

// validateCmd validates the configuration without reporting.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Validate the reporter configuration without sending any report.

This command parses the YAML, expands environment variables, applies
flag and STATUSREPORTER_* overrides, and validates all fields. It's useful
for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  statusreporter validate -c reporter.yaml
  statusreporter validate -c reporter.yaml --interval 1m`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	addConfigFlags(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	reportURL, err := statusreporter.ReportURL(cfg.Endpoint, cfg.ServiceID, cfg.NodeID)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	statusListen := cfg.Status.Listen
	if statusListen == "" {
		statusListen = "disabled"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Report URL:      %s\n", reportURL)
	fmt.Fprintf(out, "  Replica:         %s\n", cfg.ReplicaID)
	fmt.Fprintf(out, "  Interval:        %s (%s after a failure)\n", cfg.Interval.Duration(), cfg.Interval.Duration()/2)
	fmt.Fprintf(out, "  Startup delay:   %s\n", cfg.StartupDelay.Duration())
	fmt.Fprintf(out, "  Request timeout: %s\n", cfg.RequestTimeout.Duration())
	fmt.Fprintf(out, "  Status server:   %s\n", statusListen)

	return nil
}
