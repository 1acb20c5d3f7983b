package config

import "time"

// Server defaults.
const (
	DefaultListenAddress   = "127.0.0.1:8181"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20
)

// Policy defaults.
const (
	DefaultPolicySource    = SourceFile
	DefaultQueryPath       = "data"
	DefaultWatchDebounce   = 100 * time.Millisecond
	DefaultGitBranch       = "main"
	DefaultGitPollInterval = time.Minute
)

// Decision log defaults.
const (
	DefaultDecisionLogPath = "europa-decisions.db"
	DefaultRetention       = 7 * 24 * time.Hour
	DefaultSweepSchedule   = "0 * * * *"
)

// Telemetry defaults.
const (
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	DefaultMetricsEnabled = true
	DefaultMetricsPath    = "/metrics"
)

// ApplyDefaults fills zero-valued fields with their documented defaults.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyPolicyDefaults(&cfg.Policy)
	applyDecisionLogDefaults(&cfg.DecisionLog)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyServerDefaults(s *ServerConfig) {
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultListenAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.MaxHeaderBytes == 0 {
		s.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
}

func applyPolicyDefaults(p *PolicyConfig) {
	if p.Source == "" {
		p.Source = DefaultPolicySource
	}
	if p.QueryPath == "" {
		p.QueryPath = DefaultQueryPath
	}
	if p.WatchDebounce == 0 {
		p.WatchDebounce = DefaultWatchDebounce
	}
	if p.Git.Branch == "" {
		p.Git.Branch = DefaultGitBranch
	}
	if p.Git.PollInterval == 0 {
		p.Git.PollInterval = DefaultGitPollInterval
	}
}

func applyDecisionLogDefaults(d *DecisionLogConfig) {
	if d.Path == "" {
		d.Path = DefaultDecisionLogPath
	}
	if d.Retention == 0 {
		d.Retention = DefaultRetention
	}
	if d.SweepSchedule == "" {
		d.SweepSchedule = DefaultSweepSchedule
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLogLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLogFormat
	}
	// Metrics default to enabled unless any metrics field is set,
	// in which case an absent enabled means the user turned them off.
	if !t.Metrics.Enabled && t.Metrics.Path == "" {
		t.Metrics.Enabled = DefaultMetricsEnabled
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
}
