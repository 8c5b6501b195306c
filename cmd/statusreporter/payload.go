package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jpalmerr/statusreporter"
	"github.com/jpalmerr/statusreporter/config"
	"github.com/spf13/cobra"
)

// payloadCmd prints the body of the next report without sending it.
var payloadCmd = &cobra.Command{
	Use:   "payload",
	Short: "Print the next report body",
	Long: `Print the JSON body the reporter would send now, with the current load
sample, without contacting the status service.

Example:
  statusreporter payload -c reporter.yaml`,
	RunE: runPayload,
}

func init() {
	rootCmd.AddCommand(payloadCmd)
	addConfigFlags(payloadCmd)
}

func runPayload(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// the startup timer is armed by New; push it out of reach and cancel it
	opts := append(config.BuildOptions(cfg, nil), statusreporter.WithStartupDelay(time.Hour))
	r, err := statusreporter.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create reporter: %w", err)
	}
	defer r.Stop()

	body, err := r.Payload()
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	pretty.WriteByte('\n')

	_, err = cmd.OutOrStdout().Write(pretty.Bytes())
	return err
}
