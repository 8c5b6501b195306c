// Package config provides YAML configuration parsing for the status reporter.
//
// This package enables running the reporter as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	endpoint: https://report.crisp.watch/v1
//	token: ${CRISP_TOKEN}
//	service_id: billing
//	node_id: api
//	replica_id: ${HOSTNAME:-local}
//	interval: 30s
//
//	status:
//	  listen: 127.0.0.1:9464
package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// minInterval is the minimum reporting interval for production configs.
	// It keeps a misconfigured fleet from flooding the status endpoint.
	minInterval = 1 * time.Second

	minRequestTimeout = 1 * time.Second

	defaultEndpoint       = "https://report.crisp.watch/v1"
	defaultInterval       = 30 * time.Second
	defaultStartupDelay   = 10 * time.Second
	defaultRequestTimeout = 10 * time.Second
	defaultLogLevel       = "info"
	defaultHistory        = 50
)

// Config is the root configuration structure of the reporter.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML, or [Default] to start
// from defaults and fill fields from flags.
type Config struct {
	// Endpoint is the base URL of the status-aggregation service.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Endpoint string `yaml:"endpoint"`

	// Token is the auth token sent as the basic auth password.
	Token string `yaml:"token"`

	// ServiceID, NodeID and ReplicaID identify the reporting replica.
	ServiceID string `yaml:"service_id"`
	NodeID    string `yaml:"node_id"`
	ReplicaID string `yaml:"replica_id"`

	// Interval is the time between reports after a success.
	// Accepts duration strings like "30s", "1m". Defaults to 30s.
	Interval Duration `yaml:"interval"`

	// StartupDelay is the delay before the first report. Defaults to 10s.
	StartupDelay Duration `yaml:"startup_delay"`

	// RequestTimeout is the per-request timeout. Defaults to 10s.
	RequestTimeout Duration `yaml:"request_timeout"`

	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string `yaml:"log_level"`

	// UserAgent overrides the default User-Agent header.
	UserAgent string `yaml:"user_agent"`

	// Headers are custom HTTP headers sent with each report.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Status configures the optional local status server.
	Status StatusConfig `yaml:"status"`
}

// StatusConfig configures the local status server.
type StatusConfig struct {
	// Listen is the TCP address of the status server, e.g. "127.0.0.1:9464".
	// Empty disables the server.
	Listen string `yaml:"listen"`

	// History is the number of recent attempts kept for the API. Defaults to 50.
	History int `yaml:"history"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns a Config holding every default value and no identity.
func Default() *Config {
	return &Config{
		Endpoint:       defaultEndpoint,
		Interval:       Duration(defaultInterval),
		StartupDelay:   Duration(defaultStartupDelay),
		RequestTimeout: Duration(defaultRequestTimeout),
		LogLevel:       defaultLogLevel,
		Status:         StatusConfig{History: defaultHistory},
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before validation.
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates YAML configuration data.
//
// Fields missing from data keep their [Default] values. Environment variables
// are expanded in the endpoint, token, identity, header values and status
// listen address.
func Parse(data []byte) (*Config, error) {
	cfg, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Decode parses YAML over [Default] and expands environment variables
// without validating. Callers layering further overrides on top must call
// [Config.Validate] themselves.
func Decode(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.expand(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expand substitutes environment variables in place.
func (c *Config) expand() error {
	fields := []struct {
		name string
		ptr  *string
	}{
		{"endpoint", &c.Endpoint},
		{"token", &c.Token},
		{"service_id", &c.ServiceID},
		{"node_id", &c.NodeID},
		{"replica_id", &c.ReplicaID},
		{"status.listen", &c.Status.Listen},
	}
	for _, f := range fields {
		expanded, err := expandEnvVars(*f.ptr)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.ptr = expanded
	}

	for k, v := range c.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("headers[%s]: %w", k, err)
		}
		c.Headers[k] = expanded
	}
	return nil
}

// Validate checks the configuration and fills zero durations with defaults.
//
// Validate is called by [Parse]; call it again after overriding fields.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		c.Endpoint = defaultEndpoint
	}
	parsedURL, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("endpoint: invalid url: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("endpoint: url scheme must be http or https, got %q", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("endpoint: url must include a host")
	}

	required := []struct {
		name  string
		value string
	}{
		{"token", c.Token},
		{"service_id", c.ServiceID},
		{"node_id", c.NodeID},
		{"replica_id", c.ReplicaID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}

	if c.Interval == 0 {
		c.Interval = Duration(defaultInterval)
	}
	if c.Interval.Duration() < minInterval {
		return fmt.Errorf("interval must be at least %s, got %s", minInterval, c.Interval.Duration())
	}

	if c.StartupDelay.Duration() < 0 {
		return fmt.Errorf("startup_delay cannot be negative, got %s", c.StartupDelay.Duration())
	}

	if c.RequestTimeout == 0 {
		c.RequestTimeout = Duration(defaultRequestTimeout)
	}
	if c.RequestTimeout.Duration() < minRequestTimeout {
		return fmt.Errorf("request_timeout must be at least %s, got %s", minRequestTimeout, c.RequestTimeout.Duration())
	}

	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	for k := range c.Headers {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("headers: header name cannot be empty")
		}
	}

	if c.Status.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Status.Listen); err != nil {
			return fmt.Errorf("status.listen: invalid address %q: %w", c.Status.Listen, err)
		}
	}
	if c.Status.History < 0 {
		return fmt.Errorf("status.history cannot be negative, got %d", c.Status.History)
	}
	if c.Status.History == 0 {
		c.Status.History = defaultHistory
	}

	return nil
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown level %q (expected debug, info, warn or error)", s)
	}
}
