package store

import "time"

// AttemptRecord is one resolved report attempt in storage.
//
// AttemptRecord is the JSON shape served by the status API and SSE stream.
// It is decoupled from the reporter's public types.
type AttemptRecord struct {
	// ID is the attempt ID, also present in the attempt's log lines.
	ID string `json:"id"`

	// Outcome is the signal that resolved the attempt (e.g. "succeeded", "timed_out").
	Outcome string `json:"outcome"`

	// Failed reports whether the next attempt was scheduled at half the interval.
	Failed bool `json:"failed"`

	// StatusCode is the HTTP status code, or 0 if no response arrived.
	StatusCode int `json:"status_code,omitempty"`

	// LatencyMs is the attempt duration in milliseconds.
	LatencyMs int64 `json:"latency_ms"`

	// StartedAt is when the attempt began.
	StartedAt time.Time `json:"started_at"`

	// CPU and RAM are the load ratios that were reported.
	CPU float64 `json:"cpu"`
	RAM float64 `json:"ram"`

	// NextDelayMs is the delay before the following attempt, 0 once stopped.
	NextDelayMs int64 `json:"next_delay_ms"`

	// Error contains the failure message, nil on success.
	Error *string `json:"error"`
}

// Store defines the interface for recording and subscribing to attempts.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Add records an attempt and notifies all subscribers.
	Add(record AttemptRecord)

	// Recent returns up to n of the most recent attempts, newest first.
	// n <= 0 returns everything retained.
	Recent(n int) []AttemptRecord

	// Subscribe returns a channel that receives new attempts.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan AttemptRecord

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan AttemptRecord)
}
