// Package server provides the local status server of a running reporter.
//
// The server handles all HTTP concerns of the CLI:
//
//   - REST API: JSON endpoint at "/api/status" for the reporter state and recent attempts
//   - Server-Sent Events: Attempt stream at "/api/sse"
//   - Prometheus metrics at "/metrics"
//   - Liveness at "/healthz"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
