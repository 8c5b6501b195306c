package config

import (
	"log/slog"
	"sort"

	"github.com/jpalmerr/statusreporter"
)

// BuildOptions converts a validated configuration into SDK options.
//
// The logger is passed through as-is; a nil logger leaves the SDK default
// (discard) in place. Headers are added in sorted key order.
func BuildOptions(cfg *Config, logger *slog.Logger) []statusreporter.Option {
	opts := []statusreporter.Option{
		statusreporter.WithEndpoint(cfg.Endpoint),
		statusreporter.WithAuthToken(cfg.Token),
		statusreporter.WithIdentity(cfg.ServiceID, cfg.NodeID, cfg.ReplicaID),
		statusreporter.WithInterval(cfg.Interval.Duration()),
		statusreporter.WithStartupDelay(cfg.StartupDelay.Duration()),
		statusreporter.WithRequestTimeout(cfg.RequestTimeout.Duration()),
	}

	if cfg.UserAgent != "" {
		opts = append(opts, statusreporter.WithUserAgent(cfg.UserAgent))
	}

	for _, k := range sortedKeys(cfg.Headers) {
		opts = append(opts, statusreporter.WithHeader(k, cfg.Headers[k]))
	}

	if logger != nil {
		opts = append(opts, statusreporter.WithLogger(logger))
	}

	return opts
}

// sortedKeys returns the keys of m in sorted order for deterministic output.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
