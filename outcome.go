package statusreporter

import (
	"time"

	"github.com/jpalmerr/statusreporter/internal/poller"
)

// Outcome identifies the signal that resolved a report attempt.
//
// Outcome is a string type so it serializes cleanly to JSON and logs.
// [OutcomeSucceeded] and [OutcomeClosed] count as success; every other value
// is a failure and schedules the next attempt at half the interval.
type Outcome string

const (
	// OutcomeSucceeded indicates the status endpoint answered HTTP 200.
	OutcomeSucceeded Outcome = Outcome(poller.OutcomeSucceeded)

	// OutcomeRejected indicates the status endpoint answered with a status
	// other than 200.
	OutcomeRejected Outcome = Outcome(poller.OutcomeRejected)

	// OutcomeTimedOut indicates the per-request timeout fired and the request
	// was aborted.
	OutcomeTimedOut Outcome = Outcome(poller.OutcomeTimedOut)

	// OutcomeAborted indicates the request was cancelled before completing.
	OutcomeAborted Outcome = Outcome(poller.OutcomeAborted)

	// OutcomeErrored indicates a transport error such as a refused connection.
	OutcomeErrored Outcome = Outcome(poller.OutcomeErrored)

	// OutcomeClosed indicates the transport finished without a response and
	// without an error. It is treated as success but was not verified by a
	// status code.
	OutcomeClosed Outcome = Outcome(poller.OutcomeClosed)

	// OutcomeHardTimeout indicates nothing resolved the attempt before the
	// hard timeout (request timeout + 1s) and the request was force-aborted.
	OutcomeHardTimeout Outcome = Outcome(poller.OutcomeHardTimeout)
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}

// Failed reports whether the outcome is a failure.
func (o Outcome) Failed() bool {
	return poller.Outcome(o).Failed()
}

// Load is a load sample reported to the status endpoint.
type Load struct {
	// CPU is the 1-minute load average divided by the logical CPU count.
	CPU float64

	// RAM is the used heap divided by the heap capacity.
	RAM float64
}

// AttemptResult describes one resolved report attempt.
//
// AttemptResult is passed to callbacks registered with [WithAttemptCallback]
// after the next attempt has been scheduled.
type AttemptResult struct {
	// AttemptID is a unique identifier also present in every log line of the attempt.
	AttemptID string

	// Outcome is the signal that resolved the attempt.
	Outcome Outcome

	// StatusCode is the HTTP status code returned by the endpoint.
	// Zero if the request failed before receiving a response.
	StatusCode int

	// StartedAt is when the attempt began.
	StartedAt time.Time

	// Latency is the time taken to resolve the attempt.
	Latency time.Duration

	// Load is the load sample that was reported.
	Load Load

	// Error is set for every failed outcome.
	Error error

	// NextDelay is the delay before the next attempt.
	// Zero if no further attempt was scheduled because the reporter stopped.
	NextDelay time.Duration
}

// toAttemptResult converts an internal poller result to the public type.
func toAttemptResult(r poller.Result, nextDelay time.Duration) AttemptResult {
	return AttemptResult{
		AttemptID:  r.AttemptID,
		Outcome:    Outcome(r.Outcome),
		StatusCode: r.StatusCode,
		StartedAt:  r.StartedAt,
		Latency:    r.Latency,
		Load:       Load{CPU: r.Report.Load.CPU, RAM: r.Report.Load.RAM},
		Error:      r.Error,
		NextDelay:  nextDelay,
	}
}
