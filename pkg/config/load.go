package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default returns a configuration with every field at its default value.
// The result does not validate as-is: the file policy source requires a path.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// LoadConfig loads configuration from a YAML file, applies defaults, and
// validates the result. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// EUROPA_SECTION_FIELD (e.g., EUROPA_SERVER_LISTEN_ADDRESS) and always take
// precedence over file values.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate the final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("EUROPA_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("EUROPA_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("EUROPA_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("EUROPA_SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("EUROPA_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envInt("EUROPA_SERVER_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes)

	// Policy overrides
	envString("EUROPA_POLICY_SOURCE", &cfg.Policy.Source)
	envString("EUROPA_POLICY_PATH", &cfg.Policy.Path)
	envString("EUROPA_POLICY_QUERY_PATH", &cfg.Policy.QueryPath)
	envBool("EUROPA_POLICY_WATCH", &cfg.Policy.Watch)
	envDuration("EUROPA_POLICY_WATCH_DEBOUNCE", &cfg.Policy.WatchDebounce)
	envString("EUROPA_POLICY_GIT_URL", &cfg.Policy.Git.URL)
	envString("EUROPA_POLICY_GIT_BRANCH", &cfg.Policy.Git.Branch)
	envString("EUROPA_POLICY_GIT_LOCAL_PATH", &cfg.Policy.Git.LocalPath)
	envInt("EUROPA_POLICY_GIT_DEPTH", &cfg.Policy.Git.Depth)
	envString("EUROPA_POLICY_GIT_TOKEN", &cfg.Policy.Git.Token)
	envDuration("EUROPA_POLICY_GIT_POLL_INTERVAL", &cfg.Policy.Git.PollInterval)

	// Decision log overrides
	envBool("EUROPA_DECISION_LOG_ENABLED", &cfg.DecisionLog.Enabled)
	envString("EUROPA_DECISION_LOG_PATH", &cfg.DecisionLog.Path)
	envDuration("EUROPA_DECISION_LOG_RETENTION", &cfg.DecisionLog.Retention)
	envString("EUROPA_DECISION_LOG_SWEEP_SCHEDULE", &cfg.DecisionLog.SweepSchedule)

	// Telemetry overrides
	envString("EUROPA_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("EUROPA_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("EUROPA_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("EUROPA_TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
}

func envString(name string, dst *string) {
	if val := os.Getenv(name); val != "" {
		*dst = val
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
