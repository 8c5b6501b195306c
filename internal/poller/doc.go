// Package poller implements the report loop engine for statusreporter.
//
// This package is internal to statusreporter and owns the timing and
// failure-handling behaviour of the reporter. It is split into three parts:
//
//   - [Scheduler]: owns the single pending timer and decides when the next
//     report attempt happens (full interval after success, half interval
//     after failure)
//   - [Dispatcher]: performs exactly one report attempt and resolves it to
//     exactly one [Outcome], bounded by a hard timeout
//   - [Client]: pooled HTTP client used to deliver reports
//
// Users of the statusreporter library should not need to interact with this
// package directly. Configuration is done through the main package.
package poller
