package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jpalmerr/statusreporter/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envPrefix is prepended to every override key, e.g. STATUSREPORTER_SERVICE_ID.
const envPrefix = "STATUSREPORTER"

// override binds one config key to a flag and an environment variable.
type override struct {
	key   string // viper key, also the YAML path
	flag  string
	usage string
	apply func(v *viper.Viper, cfg *config.Config, key string)
}

func setString(field func(*config.Config) *string) func(*viper.Viper, *config.Config, string) {
	return func(v *viper.Viper, cfg *config.Config, key string) {
		*field(cfg) = v.GetString(key)
	}
}

func setDuration(field func(*config.Config) *config.Duration) func(*viper.Viper, *config.Config, string) {
	return func(v *viper.Viper, cfg *config.Config, key string) {
		*field(cfg) = config.Duration(v.GetDuration(key))
	}
}

var overrides = []override{
	{"endpoint", "endpoint", "base URL of the status service", setString(func(c *config.Config) *string { return &c.Endpoint })},
	{"token", "token", "auth token (prefer STATUSREPORTER_TOKEN)", setString(func(c *config.Config) *string { return &c.Token })},
	{"service_id", "service-id", "ID of the reporting service", setString(func(c *config.Config) *string { return &c.ServiceID })},
	{"node_id", "node-id", "ID of the reporting node", setString(func(c *config.Config) *string { return &c.NodeID })},
	{"replica_id", "replica-id", "ID of this replica", setString(func(c *config.Config) *string { return &c.ReplicaID })},
	{"interval", "interval", "delay between reports after a success", setDuration(func(c *config.Config) *config.Duration { return &c.Interval })},
	{"startup_delay", "startup-delay", "delay before the first report", setDuration(func(c *config.Config) *config.Duration { return &c.StartupDelay })},
	{"request_timeout", "request-timeout", "per-request timeout", setDuration(func(c *config.Config) *config.Duration { return &c.RequestTimeout })},
	{"log_level", "log-level", "debug, info, warn or error", setString(func(c *config.Config) *string { return &c.LogLevel })},
	{"user_agent", "user-agent", "User-Agent header override", setString(func(c *config.Config) *string { return &c.UserAgent })},
	{"status.listen", "status-listen", "address of the local status server, empty to disable", setString(func(c *config.Config) *string { return &c.Status.Listen })},
}

// addConfigFlags registers --config and every override flag on cmd.
func addConfigFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("config", "c", "", "path to config file")
	for _, o := range overrides {
		switch o.key {
		case "interval", "startup_delay", "request_timeout":
			flags.Duration(o.flag, 0, o.usage)
		default:
			flags.String(o.flag, "", o.usage)
		}
	}
}

// newViper returns a viper instance bound to the override flags of fs and to
// STATUSREPORTER_* environment variables.
func newViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, o := range overrides {
		if err := v.BindPFlag(o.key, fs.Lookup(o.flag)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", o.flag, err)
		}
	}
	return v, nil
}

// loadConfig builds the effective configuration for cmd.
//
// Precedence, highest first: flags, STATUSREPORTER_* variables, the config
// file, defaults. The result is validated.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		cfg, err = config.Decode(data)
		if err != nil {
			return nil, err
		}
	}

	v, err := newViper(cmd.Flags())
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		if v.IsSet(o.key) {
			o.apply(v, cfg, o.key)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
