package statusreporter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jpalmerr/statusreporter/internal/poller"
)

// Version is the library version, sent in the default User-Agent.
const Version = "1.0.0"

// State is the lifecycle state of a [Reporter].
type State string

const (
	// StateCreated is the state before the startup timer is armed.
	StateCreated State = "created"

	// StateWaitingToStart means the startup delay has not elapsed yet.
	StateWaitingToStart State = "waiting_to_start"

	// StateDispatching means a report attempt is in flight.
	StateDispatching State = "dispatching"

	// StateIdle means the next attempt is scheduled.
	StateIdle State = "idle"

	// StateStopped means no further attempt will be made.
	StateStopped State = "stopped"
)

// Reporter periodically reports this replica's load to a status endpoint.
//
// A Reporter is created with [New], which arms the first report after the
// startup delay. From then on a single timer drives the loop: each attempt
// is dispatched when the timer fires, and the next timer is armed only once
// the attempt has resolved, so at most one request is ever in flight. The
// next attempt follows after the full interval on success and after half
// the interval on failure.
//
// The typical lifecycle is:
//
//	r, err := statusreporter.New(
//	    statusreporter.WithAuthToken(token),
//	    statusreporter.WithIdentity("billing", "api", hostname),
//	)
//	if err != nil {
//	    slog.Error("failed to create reporter", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	r.Run(ctx) // blocks until context cancelled
//
// Callers that manage their own lifecycle can call [Reporter.Stop] instead.
type Reporter struct {
	reportURL  string
	interval   time.Duration
	replicaID  string
	loadSource LoadSource
	logger     *slog.Logger
	callbacks  []func(AttemptResult)

	scheduler  *poller.Scheduler
	dispatcher *poller.Dispatcher
	client     *poller.Client // nil when the caller supplied an HTTPDoer

	mu       sync.Mutex
	state    State
	stopped  bool
	inflight chan struct{} // closed once the latest attempt and its callbacks are done
}

// New creates a [Reporter] and schedules its first report.
//
// [WithAuthToken] and [WithIdentity] are required. Other options have
// defaults:
//   - Endpoint: [DefaultEndpoint]
//   - Interval: 30 seconds
//   - Startup delay: 10 seconds
//   - Request timeout: 10 seconds
//   - Load source: [SystemLoadSource]
//   - Logger: discards all output
//
// Returns a [*ConfigError] if a required field is missing or any option is
// invalid; no timer is armed in that case.
func New(opts ...Option) (*Reporter, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	template, err := requestTemplate(cfg)
	if err != nil {
		return nil, err
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	loadSource := cfg.loadSource
	if loadSource == nil {
		loadSource = SystemLoadSource()
	}

	r := &Reporter{
		reportURL:  template.URL,
		interval:   cfg.interval,
		replicaID:  cfg.replicaID,
		loadSource: loadSource,
		logger:     logger,
		callbacks:  cfg.callbacks,
		state:      StateCreated,
	}

	var doer poller.Doer = cfg.doer
	if cfg.doer == nil {
		r.client = poller.NewClient()
		doer = r.client
	}

	r.dispatcher = poller.NewDispatcher(poller.DispatcherConfig{
		Doer:      doer,
		Template:  template,
		Timeout:   cfg.requestTimeout,
		NewReport: r.newReport,
		Logger:    logger,
	})
	r.scheduler = poller.NewScheduler(cfg.interval, r.poll, logger)

	r.mu.Lock()
	r.state = StateWaitingToStart
	r.mu.Unlock()

	r.scheduler.Start(cfg.startupDelay)

	logger.Info("scheduled poll request trigger",
		"url", r.reportURL,
		"replica_id", r.replicaID,
		"startup_delay", cfg.startupDelay.String(),
		"interval", cfg.interval.String(),
	)

	return r, nil
}

// validate checks the required fields in a fixed order.
func validate(cfg *reporterConfig) error {
	required := []struct {
		field string
		value string
	}{
		{"auth_token", cfg.token},
		{"service_id", cfg.serviceID},
		{"node_id", cfg.nodeID},
		{"replica_id", cfg.replicaID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return configError(r.field, "is required")
		}
	}
	if cfg.interval <= 0 {
		return configError("interval", "must be positive")
	}
	return nil
}

// Stop cancels the pending report, if any, and prevents further reports.
//
// Returns true if a pending timer was cancelled. Returns false if the
// Reporter was already stopped, or if an attempt is in flight; that attempt
// completes but schedules nothing after it. Stop is idempotent and safe to
// call from any goroutine, including attempt callbacks.
//
// A timer that fired just before Stop also makes Stop return false. If its
// attempt had not started sending yet, it is dropped: no request is made
// and no callback runs.
func (r *Reporter) Stop() bool {
	cancelled := r.scheduler.Stop()

	r.mu.Lock()
	r.stopped = true
	if r.state != StateDispatching {
		r.state = StateStopped
	}
	r.mu.Unlock()

	if cancelled {
		r.logger.Info("reporter stopped")
	}
	return cancelled
}

// Run blocks until ctx is cancelled, then stops the Reporter.
//
// Run waits for an in-flight attempt to resolve before returning, which is
// bounded by the request timeout plus one second. It then closes idle
// connections of the Reporter's own HTTP client.
func (r *Reporter) Run(ctx context.Context) {
	<-ctx.Done()
	r.Stop()

	r.mu.Lock()
	inflight := r.inflight
	r.mu.Unlock()

	if inflight != nil {
		r.logger.Debug("waiting for in-flight request")
		<-inflight
	}

	r.client.Close()
}

// State returns the current lifecycle state.
func (r *Reporter) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Endpoint returns the full URL reports are posted to.
func (r *Reporter) Endpoint() string {
	return r.reportURL
}

// Interval returns the delay between reports after a successful attempt.
func (r *Reporter) Interval() time.Duration {
	return r.interval
}

// HardTimeout returns the longest an attempt can stay in flight: the request
// timeout plus one second.
func (r *Reporter) HardTimeout() time.Duration {
	return r.dispatcher.HardTimeout()
}

// Payload returns the JSON body an attempt would send now.
//
// The load source is sampled on every call.
func (r *Reporter) Payload() ([]byte, error) {
	return json.Marshal(r.newReport())
}

// poll runs one attempt. It is the scheduler's fire callback.
func (r *Reporter) poll() {
	r.mu.Lock()
	if r.scheduler.Stopped() {
		r.state = StateStopped
		r.mu.Unlock()
		return
	}
	r.state = StateDispatching
	done := make(chan struct{})
	r.inflight = done
	r.mu.Unlock()
	defer close(done)

	result := r.dispatcher.Dispatch(context.Background())

	failed := result.Failed()
	var nextDelay time.Duration
	armed := r.scheduler.ScheduleNext(failed)
	if armed {
		nextDelay = r.scheduler.NextDelay(failed)
	}

	r.mu.Lock()
	if armed && !r.stopped {
		r.state = StateIdle
	} else {
		r.state = StateStopped
	}
	r.mu.Unlock()

	if len(r.callbacks) > 0 {
		public := toAttemptResult(result, nextDelay)
		for _, cb := range r.callbacks {
			invokeCallbackSafe(cb, public, r.logger)
		}
	}
}

// newReport builds the payload of one attempt.
func (r *Reporter) newReport() poller.Report {
	return poller.Report{
		ReplicaID: r.replicaID,
		Interval:  r.interval.Seconds(),
		Load:      sampleLoad(r.loadSource, r.logger),
	}
}

// invokeCallbackSafe calls an attempt callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(AttemptResult), result AttemptResult, logger *slog.Logger) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("attempt callback panicked",
				"panic", rec,
				"attempt_id", result.AttemptID,
			)
		}
	}()
	cb(result)
}
