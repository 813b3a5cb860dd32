package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// LogLevels lists the accepted logging level names, most severe first.
var LogLevels = []string{"CRITICAL", "ERROR", "WARNING", "INFO", "DEBUG", "NOTSET"}

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "backend.timeout").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
//
// Validate expects values already passed through Normalize.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateBackend(&cfg.Backend)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateMetrics(&cfg.Metrics)...)
	errs = append(errs, validateTracing(&cfg.Tracing)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be positive",
		})
	}

	return errs
}

func validateBackend(cfg *BackendConfig) []FieldError {
	var errs []FieldError

	if cfg.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "backend.endpoint",
			Message: "endpoint is required",
		})
	} else if u, err := url.Parse(cfg.Endpoint); err != nil {
		errs = append(errs, FieldError{
			Field:   "backend.endpoint",
			Message: fmt.Sprintf("invalid URL format: %v", err),
		})
	} else if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "backend.endpoint",
			Message: fmt.Sprintf("endpoint %q must be an absolute http or https URL", cfg.Endpoint),
		})
	}

	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "backend.timeout",
			Message: fmt.Sprintf("timeout must be a positive number of seconds, got %d", cfg.Timeout),
		})
	}

	_, mountErrs := ParseProxyMounts("backend.proxies", cfg.Proxies)
	errs = append(errs, mountErrs...)

	if cfg.Auth.CertFile == "" {
		errs = append(errs, FieldError{
			Field:   "backend.auth.cert_file",
			Message: "certificate file is required",
		})
	}
	if cfg.Auth.KeyFile == "" {
		errs = append(errs, FieldError{
			Field:   "backend.auth.key_file",
			Message: "key file is required",
		})
	}
	if cfg.Auth.ExpiryCheckSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Auth.ExpiryCheckSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "backend.auth.expiry_check_schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Auth.ExpiryCheckSchedule, err),
			})
		}
	}
	if cfg.Auth.ExpiryWarningDays < 0 {
		errs = append(errs, FieldError{
			Field:   "backend.auth.expiry_warning_days",
			Message: "expiry warning days must be non-negative",
		})
	}

	return errs
}

func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError

	if !IsValidLogLevel(cfg.Level) {
		errs = append(errs, FieldError{
			Field: "logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be one of %s",
				cfg.Level, strings.Join(LogLevels, ", ")),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Format] {
		errs = append(errs, FieldError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Format),
		})
	}

	return errs
}

// IsValidLogLevel reports whether level names one of LogLevels. The
// comparison is exact; callers normalize first.
func IsValidLogLevel(level string) bool {
	for _, l := range LogLevels {
		if level == l {
			return true
		}
	}
	return false
}

func validateMetrics(cfg *MetricsConfig) []FieldError {
	var errs []FieldError

	if cfg.Enabled && cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "metrics.path",
			Message: "metrics path is required when metrics are enabled",
		})
	}
	if cfg.Path != "" && cfg.Path[0] != '/' {
		errs = append(errs, FieldError{
			Field:   "metrics.path",
			Message: "metrics path must start with /",
		})
	}

	return errs
}

func validateTracing(cfg *TracingConfig) []FieldError {
	var errs []FieldError

	if cfg.Enabled && cfg.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	if cfg.SampleRatio < 0 || cfg.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	return errs
}
