package poller

import (
	"net/http"
	"time"
)

// Load is a point-in-time load sample included in every report.
type Load struct {
	// CPU is the 1-minute load average divided by the logical CPU count.
	CPU float64 `json:"cpu"`

	// RAM is the used heap divided by the heap capacity.
	RAM float64 `json:"ram"`
}

// Report is the JSON body posted to the status endpoint.
//
// A Report is built fresh for every attempt and never mutated after it has
// been serialized.
type Report struct {
	// ReplicaID identifies the replica emitting the report.
	ReplicaID string `json:"replica_id"`

	// Interval is the configured reporting interval in seconds.
	Interval float64 `json:"interval"`

	// Load is the load sample taken when the attempt started.
	Load Load `json:"load"`
}

// RequestTemplate holds the static parts of every report request.
//
// It is computed once when the reporter is created; only the body changes
// from one attempt to the next.
type RequestTemplate struct {
	// URL is the fully built report URL, including the service and node path.
	URL string

	// Header contains the headers sent with every request.
	Header http.Header

	// Token is sent as the basic auth password with an empty username.
	Token string
}

// apply copies the template headers and credentials onto req.
func (t RequestTemplate) apply(req *http.Request) {
	for key, values := range t.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.SetBasicAuth("", t.Token)
}

// Result describes a resolved report attempt.
type Result struct {
	// AttemptID correlates all log lines emitted for one attempt.
	AttemptID string

	// Outcome is the signal that resolved the attempt.
	Outcome Outcome

	// StatusCode is the HTTP status returned by the endpoint.
	// Zero if no response was received.
	StatusCode int

	// StartedAt is when the attempt began.
	StartedAt time.Time

	// Latency is the time between the start of the attempt and its resolution.
	Latency time.Duration

	// Report is the payload that was sent.
	Report Report

	// Error is set for every failed outcome.
	Error error
}

// Failed reports whether the attempt should be retried sooner.
func (r Result) Failed() bool {
	return r.Outcome.Failed()
}
