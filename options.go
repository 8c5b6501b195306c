package statusreporter

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultInterval is the delay between reports after a successful attempt.
	DefaultInterval = 30 * time.Second

	// DefaultStartupDelay is the delay before the first report.
	DefaultStartupDelay = 10 * time.Second

	// DefaultRequestTimeout is the per-request transport timeout. An attempt
	// is force-resolved as failed one second after it.
	DefaultRequestTimeout = 10 * time.Second
)

// HTTPDoer sends report requests. [*http.Client] satisfies it.
//
// A Doer that returns neither a response nor an error is treated as a
// connection closed without a status, which counts as an unverified success.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// reporterConfig holds mutable state during Reporter construction.
type reporterConfig struct {
	endpoint       string
	token          string
	serviceID      string
	nodeID         string
	replicaID      string
	interval       time.Duration
	startupDelay   time.Duration
	requestTimeout time.Duration
	logger         *slog.Logger
	loadSource     LoadSource
	doer           HTTPDoer
	userAgent      string
	headers        http.Header
	callbacks      []func(AttemptResult)
}

func defaultConfig() *reporterConfig {
	return &reporterConfig{
		endpoint:       DefaultEndpoint,
		interval:       DefaultInterval,
		startupDelay:   DefaultStartupDelay,
		requestTimeout: DefaultRequestTimeout,
		userAgent:      "go-statusreporter/" + Version,
		headers:        make(http.Header),
	}
}

// Option is a function that configures a [Reporter] during construction.
//
// Options return a [*ConfigError] if validation fails; [New] stops at the
// first failing option.
type Option func(*reporterConfig) error

// WithEndpoint sets the base URL of the status-aggregation service.
//
// Defaults to [DefaultEndpoint]. Reports are posted to
// {endpoint}/report/{service_id}/{node_id}/.
func WithEndpoint(endpoint string) Option {
	return func(cfg *reporterConfig) error {
		if strings.TrimSpace(endpoint) == "" {
			return configError("endpoint", "cannot be empty")
		}
		cfg.endpoint = endpoint
		return nil
	}
}

// WithAuthToken sets the token sent as the basic auth password. Required.
func WithAuthToken(token string) Option {
	return func(cfg *reporterConfig) error {
		cfg.token = token
		return nil
	}
}

// WithIdentity sets the IDs of the reporting service, node and replica.
// All three are required.
//
// Example:
//
//	r, err := statusreporter.New(
//	    statusreporter.WithAuthToken(token),
//	    statusreporter.WithIdentity("billing", "api", hostname),
//	)
func WithIdentity(serviceID, nodeID, replicaID string) Option {
	return func(cfg *reporterConfig) error {
		cfg.serviceID = serviceID
		cfg.nodeID = nodeID
		cfg.replicaID = replicaID
		return nil
	}
}

// WithInterval sets the delay between reports after a successful attempt.
//
// After a failed attempt the next report is sent after half the interval.
// Zero selects [DefaultInterval]. Returns an error if d is negative.
func WithInterval(d time.Duration) Option {
	return func(cfg *reporterConfig) error {
		if d < 0 {
			return configError("interval", "must be positive")
		}
		if d == 0 {
			d = DefaultInterval
		}
		cfg.interval = d
		return nil
	}
}

// WithStartupDelay sets the delay before the first report.
//
// Defaults to [DefaultStartupDelay]. Zero reports immediately.
// Returns an error if d is negative.
func WithStartupDelay(d time.Duration) Option {
	return func(cfg *reporterConfig) error {
		if d < 0 {
			return configError("startup_delay", "cannot be negative")
		}
		cfg.startupDelay = d
		return nil
	}
}

// WithRequestTimeout sets the per-request transport timeout.
//
// Defaults to [DefaultRequestTimeout]. An attempt still unresolved one second
// after the timeout is force-resolved as [OutcomeHardTimeout].
// Returns an error if d is zero or negative.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *reporterConfig) error {
		if d <= 0 {
			return configError("request_timeout", "must be positive")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Reporter.
//
// If not specified, all log output is discarded.
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *reporterConfig) error {
		if logger == nil {
			return configError("logger", "cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithLoadSource replaces the default [SystemLoadSource].
// Returns an error if src is nil.
func WithLoadSource(src LoadSource) Option {
	return func(cfg *reporterConfig) error {
		if src == nil {
			return configError("load_source", "cannot be nil")
		}
		cfg.loadSource = src
		return nil
	}
}

// WithHTTPClient sets the [HTTPDoer] used to send reports.
//
// By default the Reporter owns a pooled HTTP/2-capable client with
// OpenTelemetry instrumentation and closes its idle connections when
// [Reporter.Run] returns. A caller-supplied client is never closed.
// The per-request timeout still applies through the request context.
// Returns an error if doer is nil.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(cfg *reporterConfig) error {
		if doer == nil {
			return configError("http_client", "cannot be nil")
		}
		cfg.doer = doer
		return nil
	}
}

// WithUserAgent overrides the User-Agent header ("go-statusreporter/<version>").
// Returns an error if ua is empty.
func WithUserAgent(ua string) Option {
	return func(cfg *reporterConfig) error {
		if strings.TrimSpace(ua) == "" {
			return configError("user_agent", "cannot be empty")
		}
		cfg.userAgent = ua
		return nil
	}
}

// WithHeader adds a custom header to every report request.
//
// Content-Type and User-Agent are always set by the Reporter, and the
// Authorization header is always derived from the auth token.
// Returns an error if key is empty.
func WithHeader(key, value string) Option {
	return func(cfg *reporterConfig) error {
		if strings.TrimSpace(key) == "" {
			return configError("header", "name cannot be empty")
		}
		cfg.headers.Add(key, value)
		return nil
	}
}

// WithAttemptCallback registers a function called after every resolved attempt.
//
// The callback receives the [AttemptResult] once the next attempt has been
// scheduled. Multiple callbacks run in registration order on the attempt's
// goroutine, so they delay nothing but each other; long-running work should
// be handed to another goroutine. Panics are recovered and logged.
//
// Nil callbacks are silently ignored.
func WithAttemptCallback(cb func(AttemptResult)) Option {
	return func(cfg *reporterConfig) error {
		if cb == nil {
			return nil
		}
		cfg.callbacks = append(cfg.callbacks, cb)
		return nil
	}
}
