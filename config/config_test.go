package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalYAML = `
token: secret
service_id: billing
node_id: api
replica_id: replica-1
`

func TestParse_MinimalConfig(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// check defaults applied
	if cfg.Endpoint != "https://report.crisp.watch/v1" {
		t.Errorf("Endpoint = %q, want default", cfg.Endpoint)
	}
	if cfg.Interval.Duration() != 30*time.Second {
		t.Errorf("Interval = %v, want 30s", cfg.Interval.Duration())
	}
	if cfg.StartupDelay.Duration() != 10*time.Second {
		t.Errorf("StartupDelay = %v, want 10s", cfg.StartupDelay.Duration())
	}
	if cfg.RequestTimeout.Duration() != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s", cfg.RequestTimeout.Duration())
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.Status.Listen != "" {
		t.Errorf("Status.Listen = %q, want empty", cfg.Status.Listen)
	}
	if cfg.Status.History != 50 {
		t.Errorf("Status.History = %d, want 50", cfg.Status.History)
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
endpoint: http://localhost:8080/v1
token: secret
service_id: billing
node_id: api
replica_id: replica-1
interval: 1m
startup_delay: 0s
request_timeout: 5s
log_level: debug
user_agent: billing-reporter/2.0
headers:
  X-Region: eu-west-1
  X-Team: payments
status:
  listen: 127.0.0.1:9464
  history: 10
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Endpoint != "http://localhost:8080/v1" {
		t.Errorf("Endpoint = %q", cfg.Endpoint)
	}
	if cfg.Interval.Duration() != time.Minute {
		t.Errorf("Interval = %v, want 1m", cfg.Interval.Duration())
	}
	if cfg.StartupDelay.Duration() != 0 {
		t.Errorf("StartupDelay = %v, want 0 (explicit zero kept)", cfg.StartupDelay.Duration())
	}
	if cfg.RequestTimeout.Duration() != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.RequestTimeout.Duration())
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.UserAgent != "billing-reporter/2.0" {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
	if cfg.Headers["X-Region"] != "eu-west-1" || cfg.Headers["X-Team"] != "payments" {
		t.Errorf("Headers = %v", cfg.Headers)
	}
	if cfg.Status.Listen != "127.0.0.1:9464" {
		t.Errorf("Status.Listen = %q", cfg.Status.Listen)
	}
	if cfg.Status.History != 10 {
		t.Errorf("Status.History = %d, want 10", cfg.Status.History)
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	t.Setenv("TEST_TOKEN", "from-env")
	t.Setenv("TEST_REPLICA", "pod-7")
	t.Setenv("TEST_REGION", "us-east-1")

	yaml := `
token: ${TEST_TOKEN}
service_id: billing
node_id: api
replica_id: ${TEST_REPLICA}
headers:
  X-Region: ${TEST_REGION}
status:
  listen: ${TEST_LISTEN:-127.0.0.1:9464}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Token != "from-env" {
		t.Errorf("Token = %q, want from-env", cfg.Token)
	}
	if cfg.ReplicaID != "pod-7" {
		t.Errorf("ReplicaID = %q, want pod-7", cfg.ReplicaID)
	}
	if cfg.Headers["X-Region"] != "us-east-1" {
		t.Errorf("Headers[X-Region] = %q, want us-east-1", cfg.Headers["X-Region"])
	}
	if cfg.Status.Listen != "127.0.0.1:9464" {
		t.Errorf("Status.Listen = %q, want default applied", cfg.Status.Listen)
	}
}

func TestParse_EnvVarMissing(t *testing.T) {
	yaml := `
token: ${STATUSREPORTER_TEST_MISSING}
service_id: billing
node_id: api
replica_id: r
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() expected error for missing env var")
	}
	if !strings.Contains(err.Error(), "token") {
		t.Errorf("error = %q, want it to name the field", err.Error())
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		wantErrLike string
	}{
		{
			name:        "missing token",
			yaml:        "service_id: s\nnode_id: n\nreplica_id: r\n",
			wantErrLike: "token is required",
		},
		{
			name:        "missing service_id",
			yaml:        "token: t\nnode_id: n\nreplica_id: r\n",
			wantErrLike: "service_id is required",
		},
		{
			name:        "missing node_id",
			yaml:        "token: t\nservice_id: s\nreplica_id: r\n",
			wantErrLike: "node_id is required",
		},
		{
			name:        "blank replica_id",
			yaml:        "token: t\nservice_id: s\nnode_id: n\nreplica_id: '  '\n",
			wantErrLike: "replica_id is required",
		},
		{
			name:        "endpoint without scheme",
			yaml:        minimalYAML + "endpoint: report.crisp.watch\n",
			wantErrLike: "url scheme must be http or https",
		},
		{
			name:        "endpoint without host",
			yaml:        minimalYAML + "endpoint: https:///v1\n",
			wantErrLike: "must include a host",
		},
		{
			name:        "interval below minimum",
			yaml:        minimalYAML + "interval: 500ms\n",
			wantErrLike: "interval must be at least",
		},
		{
			name:        "negative interval",
			yaml:        minimalYAML + "interval: -5s\n",
			wantErrLike: "interval must be at least",
		},
		{
			name:        "negative startup delay",
			yaml:        minimalYAML + "startup_delay: -1s\n",
			wantErrLike: "startup_delay cannot be negative",
		},
		{
			name:        "request timeout below minimum",
			yaml:        minimalYAML + "request_timeout: 100ms\n",
			wantErrLike: "request_timeout must be at least",
		},
		{
			name:        "unknown log level",
			yaml:        minimalYAML + "log_level: verbose\n",
			wantErrLike: "log_level",
		},
		{
			name:        "bad listen address",
			yaml:        minimalYAML + "status:\n  listen: localhost\n",
			wantErrLike: "status.listen",
		},
		{
			name:        "negative history",
			yaml:        minimalYAML + "status:\n  history: -1\n",
			wantErrLike: "status.history cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErrLike) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErrLike)
			}
		})
	}
}

func TestParse_ZeroIntervalUsesDefault(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML + "interval: 0s\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Interval.Duration() != 30*time.Second {
		t.Errorf("Interval = %v, want 30s", cfg.Interval.Duration())
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("token: [unclosed"))
	if err == nil {
		t.Fatal("Parse() expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "failed to parse YAML") {
		t.Errorf("error = %q, want parse error", err.Error())
	}
}

func TestParse_InvalidDuration(t *testing.T) {
	_, err := Parse([]byte(minimalYAML + "interval: soon\n"))
	if err == nil {
		t.Fatal("Parse() expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error = %q, want invalid duration", err.Error())
	}
}

func TestDuration_RoundTrip(t *testing.T) {
	d := Duration(90 * time.Second)
	v, err := d.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML() error = %v", err)
	}
	if v != "1m30s" {
		t.Errorf("MarshalYAML() = %v, want 1m30s", v)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reporter.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServiceID != "billing" {
		t.Errorf("ServiceID = %q, want billing", cfg.ServiceID)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestValidate_AfterOverride(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() on bare defaults expected error, got nil")
	}

	cfg.Token = "t"
	cfg.ServiceID = "s"
	cfg.NodeID = "n"
	cfg.ReplicaID = "r"
	cfg.Interval = 0
	cfg.Status.History = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Interval.Duration() != 30*time.Second {
		t.Errorf("Interval = %v, want default filled", cfg.Interval.Duration())
	}
	if cfg.Status.History != 50 {
		t.Errorf("Status.History = %d, want default filled", cfg.Status.History)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "value")
	t.Setenv("EMPTY_VAR", "") // set but empty

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"no vars", "plain text", "plain text", false},
		{"simple var", "${TEST_VAR}", "value", false},
		{"var in text", "prefix ${TEST_VAR} suffix", "prefix value suffix", false},
		{"multiple vars", "${TEST_VAR}-${TEST_VAR}", "value-value", false},
		{"with default (var set)", "${TEST_VAR:-default}", "value", false},
		{"with default (var unset)", "${UNSET:-default}", "default", false},
		{"missing required", "${MISSING}", "", true},
		{"empty default (var unset)", "${UNSET:-}", "", false},
		{"set but empty var", "${EMPTY_VAR}", "", false},
		{"set but empty with default", "${EMPTY_VAR:-fallback}", "", false}, // set var takes precedence
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnvVars(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expandEnvVars() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnvVars() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecode_SkipsValidation(t *testing.T) {
	cfg, err := Decode([]byte("service_id: billing\n"))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if cfg.ServiceID != "billing" {
		t.Errorf("ServiceID = %q, want billing", cfg.ServiceID)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for missing token")
	}
}
