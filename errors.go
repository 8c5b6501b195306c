package statusreporter

import (
	"fmt"

	"github.com/jpalmerr/statusreporter/internal/poller"
)

// ConfigError reports a missing or invalid option passed to [New].
//
// ConfigError is the only error [New] returns. No [Reporter] is created when
// it is returned. Use errors.As to inspect the offending field:
//
//	var cfgErr *statusreporter.ConfigError
//	if errors.As(err, &cfgErr) {
//	    log.Printf("bad option %s: %s", cfgErr.Field, cfgErr.Reason)
//	}
type ConfigError struct {
	// Field names the option that failed validation (e.g. "auth_token").
	Field string

	// Reason describes what is wrong with the field.
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid reporter config: %s %s", e.Field, e.Reason)
}

func configError(field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason}
}

// StatusError is attached to an [AttemptResult] when the status endpoint
// answers with anything other than HTTP 200.
type StatusError = poller.StatusError

// ErrHardTimeout is attached to an [AttemptResult] resolved by the hard
// timeout guard.
var ErrHardTimeout = poller.ErrHardTimeout
