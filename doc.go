// Package statusreporter periodically reports a replica's load to a remote
// status-aggregation endpoint over HTTP.
//
// A [Reporter] posts a small JSON report after a startup delay and then on a
// fixed interval. It is resilient to transient network failure: a failed
// report is retried after half the interval, and a stalled request is
// force-resolved by a hard timeout so it can never block the loop.
//
// # Quick Start
//
//	r, err := statusreporter.New(
//	    statusreporter.WithAuthToken(os.Getenv("CRISP_TOKEN")),
//	    statusreporter.WithIdentity("billing", "api", hostname),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	r.Run(ctx) // blocks until context is cancelled
//
// # Reports
//
// Every attempt posts to {endpoint}/report/{service_id}/{node_id}/ with the
// auth token as basic auth password and a body of the form:
//
//	{"replica_id":"api-1","interval":30,"load":{"cpu":0.21,"ram":0.43}}
//
// Only HTTP 200 counts as success. Every attempt resolves exactly once to an
// [Outcome]; register [WithAttemptCallback] to observe them.
//
// # Configuration
//
// The Reporter uses the functional options pattern:
//
//	r, err := statusreporter.New(
//	    statusreporter.WithEndpoint("https://status.internal.example.com/v1"),
//	    statusreporter.WithAuthToken(token),
//	    statusreporter.WithIdentity("billing", "api", hostname),
//	    statusreporter.WithInterval(time.Minute),
//	    statusreporter.WithLogger(logger),
//	)
//
// Invalid configuration is reported as a [*ConfigError] and no Reporter is
// created.
//
// # Architecture
//
// The Reporter consists of several internal packages (under internal/):
//
//   - internal/poller: Scheduler, Dispatcher and the outbound HTTP client
//   - internal/metrics: Host load average and process heap sampling
//   - internal/store: Recent attempts with pub/sub, used by the CLI
//   - internal/server: Local status server with REST API, SSE and metrics
//   - internal/telemetry: Prometheus metrics about the reporter itself
//
// The internal packages are not part of the public API and may change
// without notice.
package statusreporter
