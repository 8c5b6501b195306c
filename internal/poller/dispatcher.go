package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultRequestTimeout is the per-request transport timeout.
	DefaultRequestTimeout = 10 * time.Second

	// hardTimeoutGrace is added to the transport timeout to get the hard timeout.
	hardTimeoutGrace = time.Second

	maxResponseBodySize = 64 << 10 // 64KB
)

// Outcome is the signal that resolved a report attempt.
type Outcome string

const (
	// OutcomeSucceeded means the endpoint answered HTTP 200.
	OutcomeSucceeded Outcome = "succeeded"

	// OutcomeRejected means the endpoint answered with a status other than 200.
	OutcomeRejected Outcome = "rejected"

	// OutcomeTimedOut means the transport timeout fired and the request was aborted.
	OutcomeTimedOut Outcome = "timed_out"

	// OutcomeAborted means the request was cancelled before it completed.
	OutcomeAborted Outcome = "aborted"

	// OutcomeErrored means the transport failed (DNS, connect, TLS, ...).
	OutcomeErrored Outcome = "errored"

	// OutcomeClosed means the transport finished without a response or an
	// error. It counts as success but is not a verified 200.
	OutcomeClosed Outcome = "closed"

	// OutcomeHardTimeout means no other signal arrived before the hard timeout.
	OutcomeHardTimeout Outcome = "hard_timeout"
)

// Failed reports whether the outcome is a failure for scheduling purposes.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeSucceeded, OutcomeClosed:
		return false
	default:
		return true
	}
}

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}

// ErrHardTimeout is the error attached to attempts resolved by the hard timeout.
var ErrHardTimeout = errors.New("hard timeout: request stalled")

// StatusError is returned for responses other than HTTP 200.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status endpoint returned %d", e.StatusCode)
}

// DispatcherConfig configures a [Dispatcher].
type DispatcherConfig struct {
	// Doer delivers the request. Required.
	Doer Doer

	// Template holds the URL, headers and credentials of every request.
	Template RequestTemplate

	// Timeout is the per-request transport timeout.
	// Defaults to [DefaultRequestTimeout] when zero.
	Timeout time.Duration

	// NewReport builds the payload for an attempt. Required.
	NewReport func() Report

	// Logger receives one line per attempt signal.
	Logger *slog.Logger
}

// Dispatcher performs report attempts.
//
// Every call to [Dispatcher.Dispatch] resolves to exactly one [Result], even
// when the transport produces several termination signals (for example an
// error followed by a close) or none at all. The hard timeout bounds the
// duration of an attempt to Timeout + 1s regardless of how the transport
// behaves.
type Dispatcher struct {
	doer        Doer
	template    RequestTemplate
	timeout     time.Duration
	hardTimeout time.Duration
	newReport   func() Report
	logger      *slog.Logger
}

// NewDispatcher creates a [Dispatcher] from cfg.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{
		doer:        cfg.Doer,
		template:    cfg.Template,
		timeout:     timeout,
		hardTimeout: timeout + hardTimeoutGrace,
		newReport:   cfg.NewReport,
		logger:      logger,
	}
}

// HardTimeout returns the deadline after which an attempt is force-resolved.
func (d *Dispatcher) HardTimeout() time.Duration {
	return d.hardTimeout
}

// Dispatch performs one report attempt and blocks until it resolves.
//
// Cancelling ctx aborts the request; the attempt then resolves to
// [OutcomeAborted]. Dispatch never panics and never returns without a result.
func (d *Dispatcher) Dispatch(ctx context.Context) Result {
	a := newAttempt(d.logger)
	d.logger.Debug("will dispatch request", "attempt_id", a.id)

	report, body, err := d.build(a)
	a.report = report
	if err != nil {
		a.signal(OutcomeErrored, 0, err)
		return a.wait()
	}

	reqCtx, cancel := context.WithTimeout(ctx, d.timeout)

	hard := time.AfterFunc(d.hardTimeout, func() {
		a.signal(OutcomeHardTimeout, 0, ErrHardTimeout)
		// force a late abort
		cancel()
	})

	go d.send(reqCtx, cancel, a, body)

	result := a.wait()
	hard.Stop()
	return result
}

// build creates and serializes the report, converting panics into errors.
func (d *Dispatcher) build(a *attempt) (report Report, body []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverError(d.logger, "report builder panic", a.id, r)
		}
	}()

	report = d.newReport()
	body, err = json.Marshal(report)
	if err != nil {
		return report, nil, fmt.Errorf("marshal report: %w", err)
	}

	d.logger.Debug("built request data",
		"attempt_id", a.id,
		"replica_id", report.ReplicaID,
		"cpu", report.Load.CPU,
		"ram", report.Load.RAM,
	)
	return report, body, nil
}

// send runs the HTTP round trip and feeds its signals into the attempt.
//
// A close signal is always emitted last; it only resolves the attempt if no
// earlier signal did.
func (d *Dispatcher) send(ctx context.Context, cancel context.CancelFunc, a *attempt, body []byte) {
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			a.signal(OutcomeErrored, 0, recoverError(d.logger, "transport panic", a.id, r))
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.template.URL, bytes.NewReader(body))
	if err != nil {
		a.signal(OutcomeErrored, 0, fmt.Errorf("build request: %w", err))
		return
	}
	d.template.apply(req)

	resp, err := d.doer.Do(req)
	switch {
	case err != nil:
		outcome := classifyError(ctx, err)
		if outcome == OutcomeTimedOut {
			a.signal(OutcomeTimedOut, 0, fmt.Errorf("request timed out after %s: %w", d.timeout, err))
		} else {
			a.signal(outcome, 0, fmt.Errorf("send report: %w", err))
		}
	case resp != nil:
		if resp.StatusCode == http.StatusOK {
			a.signal(OutcomeSucceeded, resp.StatusCode, nil)
		} else {
			a.signal(OutcomeRejected, resp.StatusCode, &StatusError{StatusCode: resp.StatusCode})
		}
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodySize))
		_ = resp.Body.Close()
	}

	a.signal(OutcomeClosed, 0, nil)
}

// classifyError maps a transport error to an outcome using the request context.
func classifyError(ctx context.Context, err error) Outcome {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return OutcomeTimedOut
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, context.Canceled):
		return OutcomeAborted
	default:
		return OutcomeErrored
	}
}

// recoverError logs a recovered panic with a correlation ID and converts it
// to an error.
func recoverError(logger *slog.Logger, msg, attemptID string, r any) error {
	correlationID := uuid.NewString()
	logger.Error(msg,
		"attempt_id", attemptID,
		"correlation_id", correlationID,
		"panic", fmt.Sprintf("%v", r),
		"stack", string(debug.Stack()),
	)
	return fmt.Errorf("%s (correlation_id: %s)", msg, correlationID)
}

// attempt is the in-flight state of one dispatch cycle.
//
// The latch lets exactly one signal resolve the attempt. Later signals are
// still logged but never produce a second result.
type attempt struct {
	id        string
	startedAt time.Time
	report    Report
	logger    *slog.Logger

	latch  sync.Once
	result chan Result
}

func newAttempt(logger *slog.Logger) *attempt {
	return &attempt{
		id:        uuid.NewString(),
		startedAt: time.Now(),
		logger:    logger,
		result:    make(chan Result, 1),
	}
}

// signal records a termination signal and resolves the attempt if it is the
// first one. It returns true if this signal resolved the attempt.
func (a *attempt) signal(outcome Outcome, statusCode int, err error) bool {
	resolved := false
	a.latch.Do(func() {
		resolved = true
		a.result <- Result{
			AttemptID:  a.id,
			Outcome:    outcome,
			StatusCode: statusCode,
			StartedAt:  a.startedAt,
			Latency:    time.Since(a.startedAt),
			Report:     a.report,
			Error:      err,
		}
	})
	a.log(outcome, statusCode, err, resolved)
	return resolved
}

func (a *attempt) log(outcome Outcome, statusCode int, err error, resolved bool) {
	attrs := []any{"attempt_id", a.id, "resolved", resolved}
	if statusCode != 0 {
		attrs = append(attrs, "status_code", statusCode)
	}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}

	switch outcome {
	case OutcomeSucceeded:
		a.logger.Info("request succeeded", append(attrs,
			"replica_id", a.report.ReplicaID,
			"cpu", a.report.Load.CPU,
			"ram", a.report.Load.RAM,
		)...)
	case OutcomeRejected:
		a.logger.Error("failed dispatching request", attrs...)
	case OutcomeTimedOut:
		a.logger.Warn("request timed out", attrs...)
	case OutcomeAborted:
		a.logger.Error("request aborted", attrs...)
	case OutcomeErrored:
		a.logger.Error("request error", attrs...)
	case OutcomeHardTimeout:
		a.logger.Warn("hard timeout fired as request stalled", attrs...)
	case OutcomeClosed:
		if resolved {
			a.logger.Warn("request closed without a status, treating as unverified success", attrs...)
		} else {
			a.logger.Debug("request closed", attrs...)
		}
	}
}

// wait blocks until the attempt resolves.
func (a *attempt) wait() Result {
	return <-a.result
}
