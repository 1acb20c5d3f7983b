package config

import "time"

// Policy source modes.
const (
	SourceFile = "file"
	SourceGit  = "git"
)

// Config is the root configuration structure for Europa.
type Config struct {
	// Server contains the HTTP API server configuration.
	Server ServerConfig `yaml:"server"`

	// Policy describes where policies come from and how they are evaluated.
	Policy PolicyConfig `yaml:"policy"`

	// DecisionLog configures persistent decision recording.
	DecisionLog DecisionLogConfig `yaml:"decision_log"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP API server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8181"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// PolicyConfig describes the policy source and evaluation settings.
type PolicyConfig struct {
	// Source selects where policies are loaded from: "file" or "git".
	// Default: "file"
	Source string `yaml:"source"`

	// Path is the policy file or directory for the file source, or the
	// subdirectory inside the checkout for the git source.
	Path string `yaml:"path"`

	// QueryPath is the dotted path evaluated per request.
	// Default: "data"
	QueryPath string `yaml:"query_path"`

	// Watch reloads the policy when the file source changes.
	// Only valid with the file source. Default: false
	Watch bool `yaml:"watch"`

	// WatchDebounce coalesces bursts of filesystem events.
	// Default: 100ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	// Git configures the git source. Required when Source is "git".
	Git GitConfig `yaml:"git"`
}

// GitConfig configures a git-backed policy source.
type GitConfig struct {
	// URL is the clone URL of the policy repository.
	URL string `yaml:"url"`

	// Branch is the branch to track. Default: "main"
	Branch string `yaml:"branch"`

	// LocalPath is where the checkout lives. Defaults to a temp directory.
	LocalPath string `yaml:"local_path"`

	// Depth limits clone history. Zero means a full clone.
	Depth int `yaml:"depth"`

	// Token authenticates HTTPS access to private repositories.
	// Prefer setting EUROPA_POLICY_GIT_TOKEN over putting it in the file.
	Token string `yaml:"token"`

	// PollInterval is how often to pull for changes. Default: 1m
	PollInterval time.Duration `yaml:"poll_interval"`
}

// DecisionLogConfig configures the SQLite decision log.
type DecisionLogConfig struct {
	// Enabled turns decision recording on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file.
	// Default: "europa-decisions.db"
	Path string `yaml:"path"`

	// Retention is how long decisions are kept. Older rows are purged
	// by the sweep schedule. Default: 168h (7 days)
	Retention time.Duration `yaml:"retention"`

	// SweepSchedule is a standard cron expression for retention sweeps.
	// Default: "0 * * * *" (hourly)
	SweepSchedule string `yaml:"sweep_schedule"`
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled exposes metrics on the API server.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the metrics endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
