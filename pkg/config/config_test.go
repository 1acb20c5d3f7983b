package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "europa.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
policy:
  path: ./policies
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("listen address = %q, want %q", cfg.Server.ListenAddress, DefaultListenAddress)
	}
	if cfg.Server.ReadTimeout != DefaultReadTimeout {
		t.Errorf("read timeout = %v, want %v", cfg.Server.ReadTimeout, DefaultReadTimeout)
	}
	if cfg.Policy.Source != SourceFile {
		t.Errorf("policy source = %q, want %q", cfg.Policy.Source, SourceFile)
	}
	if cfg.Policy.QueryPath != DefaultQueryPath {
		t.Errorf("query path = %q, want %q", cfg.Policy.QueryPath, DefaultQueryPath)
	}
	if cfg.Policy.WatchDebounce != DefaultWatchDebounce {
		t.Errorf("watch debounce = %v, want %v", cfg.Policy.WatchDebounce, DefaultWatchDebounce)
	}
	if cfg.DecisionLog.Enabled {
		t.Error("decision log enabled by default")
	}
	if cfg.DecisionLog.Retention != DefaultRetention {
		t.Errorf("retention = %v, want %v", cfg.DecisionLog.Retention, DefaultRetention)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("metrics disabled by default")
	}
	if cfg.Telemetry.Logging.Level != "info" || cfg.Telemetry.Logging.Format != "json" {
		t.Errorf("logging defaults = %q/%q, want info/json",
			cfg.Telemetry.Logging.Level, cfg.Telemetry.Logging.Format)
	}
}

func TestLoadConfigFull(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "0.0.0.0:9999"
  read_timeout: 10s
policy:
  source: git
  query_path: data.authz.allow
  git:
    url: https://example.com/policies.git
    branch: release
    depth: 1
    poll_interval: 30s
decision_log:
  enabled: true
  path: /var/lib/europa/decisions.db
  retention: 48h
  sweep_schedule: "30 2 * * *"
telemetry:
  logging:
    level: debug
    format: text
  metrics:
    enabled: true
    path: /internal/metrics
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9999" {
		t.Errorf("listen address = %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("read timeout = %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("write timeout = %v, want default", cfg.Server.WriteTimeout)
	}
	if cfg.Policy.Source != SourceGit {
		t.Errorf("source = %q", cfg.Policy.Source)
	}
	if cfg.Policy.Git.URL != "https://example.com/policies.git" {
		t.Errorf("git url = %q", cfg.Policy.Git.URL)
	}
	if cfg.Policy.Git.Branch != "release" || cfg.Policy.Git.Depth != 1 {
		t.Errorf("git branch/depth = %q/%d", cfg.Policy.Git.Branch, cfg.Policy.Git.Depth)
	}
	if cfg.Policy.Git.PollInterval != 30*time.Second {
		t.Errorf("poll interval = %v", cfg.Policy.Git.PollInterval)
	}
	if !cfg.DecisionLog.Enabled || cfg.DecisionLog.Retention != 48*time.Hour {
		t.Errorf("decision log = %+v", cfg.DecisionLog)
	}
	if cfg.Telemetry.Metrics.Path != "/internal/metrics" {
		t.Errorf("metrics path = %q", cfg.Telemetry.Metrics.Path)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Fatal("expected error for missing file")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfig(t, "policy: [unclosed")
		if _, err := LoadConfig(path); err == nil {
			t.Fatal("expected error for malformed yaml")
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Policy.Path = "./policies"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad listen address", func(c *Config) { c.Server.ListenAddress = "no-port" }, "server.listen_address"},
		{"negative read timeout", func(c *Config) { c.Server.ReadTimeout = -time.Second }, "server.read_timeout"},
		{"unknown source", func(c *Config) { c.Policy.Source = "svn" }, "policy.source"},
		{"file source without path", func(c *Config) { c.Policy.Path = "" }, "policy.path"},
		{"git source without url", func(c *Config) { c.Policy.Source = SourceGit }, "policy.git.url"},
		{"watch with git source", func(c *Config) {
			c.Policy.Source = SourceGit
			c.Policy.Git.URL = "https://example.com/p.git"
			c.Policy.Watch = true
		}, "policy.watch"},
		{"query path outside data", func(c *Config) { c.Policy.QueryPath = "input.foo" }, "policy.query_path"},
		{"bad sweep schedule", func(c *Config) {
			c.DecisionLog.Enabled = true
			c.DecisionLog.SweepSchedule = "every hour"
		}, "decision_log.sweep_schedule"},
		{"non-positive retention", func(c *Config) {
			c.DecisionLog.Enabled = true
			c.DecisionLog.Retention = 0
		}, "decision_log.retention"},
		{"bad log level", func(c *Config) { c.Telemetry.Logging.Level = "verbose" }, "telemetry.logging.level"},
		{"bad log format", func(c *Config) { c.Telemetry.Logging.Format = "xml" }, "telemetry.logging.format"},
		{"bad metrics path", func(c *Config) { c.Telemetry.Metrics.Path = "metrics" }, "telemetry.metrics.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			verr, ok := err.(ValidationError)
			if !ok {
				t.Fatalf("error type = %T, want ValidationError", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %q in %v", tt.field, verr.Errors)
			}
		})
	}

	t.Run("valid passes", func(t *testing.T) {
		if err := Validate(valid()); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	})

	t.Run("disabled decision log skips checks", func(t *testing.T) {
		cfg := valid()
		cfg.DecisionLog.SweepSchedule = "garbage"
		if err := Validate(cfg); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	})
}

func TestValidationErrorMessage(t *testing.T) {
	err := ValidationError{Errors: []FieldError{
		{Field: "a.b", Message: "first"},
		{Field: "c.d", Message: "second"},
	}}
	msg := err.Error()
	if !strings.Contains(msg, "2 errors") || !strings.Contains(msg, "a.b: first") {
		t.Errorf("message = %q", msg)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
policy:
  path: ./policies
`)

	t.Setenv("EUROPA_SERVER_LISTEN_ADDRESS", "0.0.0.0:8282")
	t.Setenv("EUROPA_POLICY_QUERY_PATH", "data.authz")
	t.Setenv("EUROPA_POLICY_WATCH", "true")
	t.Setenv("EUROPA_DECISION_LOG_ENABLED", "true")
	t.Setenv("EUROPA_DECISION_LOG_RETENTION", "24h")
	t.Setenv("EUROPA_TELEMETRY_LOGGING_LEVEL", "warn")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:8282" {
		t.Errorf("listen address = %q", cfg.Server.ListenAddress)
	}
	if cfg.Policy.QueryPath != "data.authz" {
		t.Errorf("query path = %q", cfg.Policy.QueryPath)
	}
	if !cfg.Policy.Watch {
		t.Error("watch not overridden")
	}
	if !cfg.DecisionLog.Enabled || cfg.DecisionLog.Retention != 24*time.Hour {
		t.Errorf("decision log = %+v", cfg.DecisionLog)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("log level = %q", cfg.Telemetry.Logging.Level)
	}
}

func TestEnvOverridesRevalidate(t *testing.T) {
	path := writeConfig(t, `
policy:
  path: ./policies
`)
	t.Setenv("EUROPA_POLICY_SOURCE", "svn")

	if _, err := LoadConfigWithEnvOverrides(path); err == nil {
		t.Fatal("expected validation error after override")
	}
}
