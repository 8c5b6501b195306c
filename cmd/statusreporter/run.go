package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/statusreporter"
	"github.com/jpalmerr/statusreporter/config"
	"github.com/jpalmerr/statusreporter/dashboard"
	"github.com/jpalmerr/statusreporter/internal/server"
	"github.com/jpalmerr/statusreporter/internal/store"
	"github.com/jpalmerr/statusreporter/internal/telemetry"
	"github.com/spf13/cobra"
)

// shutdownMargin is added to the longest possible attempt when waiting for
// the reporter to stop.
const shutdownMargin = 2 * time.Second

// shutdownTimeout returns how long the CLI waits for an in-flight attempt
// of r to resolve.
func shutdownTimeout(r *statusreporter.Reporter) time.Duration {
	return r.HardTimeout() + shutdownMargin
}

// runCmd starts reporting.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Report status until interrupted",
	Long: `Start reporting this replica's status.

The reporter will:
  - Load configuration from the config file, flags and environment
  - Wait for the startup delay, then post a report every interval
  - Serve recent attempts and metrics on status.listen, if set

The reporter runs until interrupted (Ctrl+C) or receives SIGTERM. An
in-flight attempt is allowed to resolve before exit.

Example:
  statusreporter run -c reporter.yaml
  STATUSREPORTER_TOKEN=... statusreporter run --service-id billing --node-id api --replica-id $HOSTNAME`,
	RunE: runReporter,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addConfigFlags(runCmd)
}

func runReporter(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}

	logger.Info("config loaded",
		"service_id", cfg.ServiceID,
		"node_id", cfg.NodeID,
		"replica_id", cfg.ReplicaID,
		"interval", cfg.Interval.Duration().String(),
		"startup_delay", cfg.StartupDelay.Duration().String(),
	)

	opts := config.BuildOptions(cfg, logger)

	var (
		st       *store.MemoryStore
		exporter *telemetry.PrometheusExporter
	)
	if cfg.Status.Listen != "" {
		st = store.NewMemoryStore(cfg.Status.History)
		exporter = telemetry.NewPrometheusExporter(cfg.ServiceID, cfg.NodeID, cfg.ReplicaID)
		opts = append(opts, statusreporter.WithAttemptCallback(recordAttempt(st, exporter)))
	}

	r, err := statusreporter.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create reporter: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if st != nil {
		srv := server.NewServer(st, cfg.Status.Listen, reporterInfo(r), exporter.Handler(), dashboard.Assets, logger)
		if err := srv.Start(ctx); err != nil {
			// the reporter must not outlive the CLI
			r.Stop()
			return fmt.Errorf("failed to start status server: %w", err)
		}
	}

	reporterDone := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(reporterDone)
	}()

	<-ctx.Done()

	// signal received, wait for the in-flight attempt with a timeout
	wait := shutdownTimeout(r)
	select {
	case <-reporterDone:
		logger.Info("shutdown complete")
	case <-time.After(wait):
		logger.Warn("shutdown timed out",
			"timeout", wait.String(),
			"action", "forcing exit",
		)
	}
	return nil
}

// reporterInfo adapts a Reporter to the status server's info callback.
func reporterInfo(r *statusreporter.Reporter) func() server.Info {
	return func() server.Info {
		return server.Info{
			State:           string(r.State()),
			Endpoint:        r.Endpoint(),
			IntervalSeconds: r.Interval().Seconds(),
		}
	}
}

// recordAttempt returns a callback feeding resolved attempts to the status
// store and the metrics exporter.
func recordAttempt(st store.Store, exporter *telemetry.PrometheusExporter) func(statusreporter.AttemptResult) {
	return func(res statusreporter.AttemptResult) {
		st.Add(toRecord(res))
		exporter.Observe(telemetry.Attempt{
			Outcome:   res.Outcome.String(),
			Failed:    res.Outcome.Failed(),
			Latency:   res.Latency,
			StartedAt: res.StartedAt,
			NextDelay: res.NextDelay,
			CPU:       res.Load.CPU,
			RAM:       res.Load.RAM,
		})
	}
}

// toRecord converts an attempt to its stored form.
func toRecord(res statusreporter.AttemptResult) store.AttemptRecord {
	var errStr *string
	if res.Error != nil {
		s := res.Error.Error()
		errStr = &s
	}
	return store.AttemptRecord{
		ID:          res.AttemptID,
		Outcome:     res.Outcome.String(),
		Failed:      res.Outcome.Failed(),
		StatusCode:  res.StatusCode,
		LatencyMs:   res.Latency.Milliseconds(),
		StartedAt:   res.StartedAt,
		CPU:         res.Load.CPU,
		RAM:         res.Load.RAM,
		NextDelayMs: res.NextDelay.Milliseconds(),
		Error:       errStr,
	}
}
