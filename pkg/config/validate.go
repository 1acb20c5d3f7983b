package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError is a validation error for one configuration field.
type FieldError struct {
	// Field is the dotted path to the field (e.g., "policy.source").
	Field string

	// Message is a human-readable error message.
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every validation failure in a configuration.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Validate checks the whole configuration and returns a ValidationError
// listing every problem, or nil if the configuration is valid.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validatePolicy(&cfg.Policy)...)
	errs = append(errs, validateDecisionLog(&cfg.DecisionLog)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(s *ServerConfig) []FieldError {
	var errs []FieldError
	if _, _, err := net.SplitHostPort(s.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid address %q: must be host:port", s.ListenAddress),
		})
	}
	if s.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "must not be negative"})
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "must not be negative"})
	}
	if s.ShutdownTimeout <= 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "must be positive"})
	}
	if s.MaxHeaderBytes <= 0 {
		errs = append(errs, FieldError{Field: "server.max_header_bytes", Message: "must be positive"})
	}
	return errs
}

func validatePolicy(p *PolicyConfig) []FieldError {
	var errs []FieldError
	switch p.Source {
	case SourceFile:
		if p.Path == "" {
			errs = append(errs, FieldError{Field: "policy.path", Message: "required for the file source"})
		}
	case SourceGit:
		if p.Git.URL == "" {
			errs = append(errs, FieldError{Field: "policy.git.url", Message: "required for the git source"})
		}
		if p.Git.Depth < 0 {
			errs = append(errs, FieldError{Field: "policy.git.depth", Message: "must not be negative"})
		}
		if p.Git.PollInterval <= 0 {
			errs = append(errs, FieldError{Field: "policy.git.poll_interval", Message: "must be positive"})
		}
		if p.Watch {
			errs = append(errs, FieldError{Field: "policy.watch", Message: "watch applies to the file source only; the git source polls"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "policy.source",
			Message: fmt.Sprintf("unknown source %q: must be %q or %q", p.Source, SourceFile, SourceGit),
		})
	}
	if p.QueryPath == "" || !strings.HasPrefix(p.QueryPath, "data") {
		errs = append(errs, FieldError{
			Field:   "policy.query_path",
			Message: fmt.Sprintf("invalid query path %q: must start with \"data\"", p.QueryPath),
		})
	}
	if p.WatchDebounce <= 0 {
		errs = append(errs, FieldError{Field: "policy.watch_debounce", Message: "must be positive"})
	}
	return errs
}

func validateDecisionLog(d *DecisionLogConfig) []FieldError {
	if !d.Enabled {
		return nil
	}
	var errs []FieldError
	if d.Path == "" {
		errs = append(errs, FieldError{Field: "decision_log.path", Message: "required when the decision log is enabled"})
	}
	if d.Retention <= 0 {
		errs = append(errs, FieldError{Field: "decision_log.retention", Message: "must be positive"})
	}
	if _, err := cron.ParseStandard(d.SweepSchedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "decision_log.sweep_schedule",
			Message: fmt.Sprintf("invalid cron expression %q: %v", d.SweepSchedule, err),
		})
	}
	return errs
}

func validateTelemetry(t *TelemetryConfig) []FieldError {
	var errs []FieldError
	switch t.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown level %q: must be debug, info, warn, or error", t.Logging.Level),
		})
	}
	switch t.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown format %q: must be json or text", t.Logging.Format),
		})
	}
	if t.Metrics.Enabled && !strings.HasPrefix(t.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: fmt.Sprintf("invalid path %q: must start with /", t.Metrics.Path),
		})
	}
	return errs
}
