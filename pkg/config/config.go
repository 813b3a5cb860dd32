package config

import (
	"strings"
	"time"
)

// Config is the root configuration structure for cla-proxy.
// It is built once at startup by Load and is treated as read-only afterwards;
// components receive it (or one of its sections) by pointer and never mutate it.
type Config struct {
	// Server contains listener configuration for the local HTTP surface.
	Server ServerConfig `toml:"server" yaml:"server" json:"server"`

	// Backend describes the remote inference endpoint and how to reach it.
	Backend BackendConfig `toml:"backend" yaml:"backend" json:"backend"`

	// Logging contains the [logging] section.
	Logging LoggingConfig `toml:"logging" yaml:"logging" json:"logging"`

	// Metrics contains Prometheus exposition settings.
	Metrics MetricsConfig `toml:"metrics" yaml:"metrics" json:"metrics"`

	// Tracing contains OpenTelemetry settings.
	Tracing TracingConfig `toml:"tracing" yaml:"tracing" json:"tracing"`
}

// ServerConfig contains configuration for the local HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `toml:"listen_address" yaml:"listen_address" json:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout Duration `toml:"read_timeout" yaml:"read_timeout" json:"read_timeout"`

	// WriteTimeout bounds writing the response. It must exceed the backend
	// timeout, otherwise the fallback body could never be delivered.
	// Default: backend timeout + 10s
	WriteTimeout Duration `toml:"write_timeout" yaml:"write_timeout" json:"write_timeout"`

	// IdleTimeout is how long keep-alive connections wait for the next request.
	// Default: 120s
	IdleTimeout Duration `toml:"idle_timeout" yaml:"idle_timeout" json:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `toml:"max_header_bytes" yaml:"max_header_bytes" json:"max_header_bytes"`
}

// BackendConfig represents the [backend] section.
type BackendConfig struct {
	// Endpoint is the absolute base URL of the inference backend.
	// Default: "https://0.0.0.0:8080"
	Endpoint string `toml:"endpoint" yaml:"endpoint" json:"endpoint"`

	// Timeout is the per-request budget in whole seconds. It bounds the
	// entire handling path, including client construction.
	// Default: 30
	Timeout int `toml:"timeout" yaml:"timeout" json:"timeout"`

	// Proxies maps a URL scheme ("http", "https" or "all") to a proxy URL.
	Proxies map[string]string `toml:"proxies" yaml:"proxies,omitempty" json:"proxies,omitempty"`

	// Auth is the client identity presented to the backend.
	Auth AuthConfig `toml:"auth" yaml:"auth" json:"auth"`

	// Mounts is the parsed form of Proxies. It is populated by Load after
	// validation succeeds.
	Mounts ProxyMounts `toml:"-" yaml:"-" json:"-"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (b BackendConfig) TimeoutDuration() time.Duration {
	return time.Duration(b.Timeout) * time.Second
}

// URL joins the configured endpoint with path.
func (b BackendConfig) URL(path string) string {
	return strings.TrimRight(b.Endpoint, "/") + "/" + strings.TrimLeft(path, "/")
}

// AuthConfig represents the [backend.auth] section.
type AuthConfig struct {
	// CertFile is the PEM client certificate.
	// Default: "/etc/pki/consumer/cert.pem"
	CertFile string `toml:"cert_file" yaml:"cert_file" json:"cert_file"`

	// KeyFile is the PEM private key matching CertFile.
	// Default: "/etc/pki/consumer/key.pem"
	KeyFile string `toml:"key_file" yaml:"key_file" json:"key_file"`

	// CAFile is an optional PEM bundle used to verify the backend. When
	// empty the system roots are used.
	CAFile string `toml:"ca_file" yaml:"ca_file,omitempty" json:"ca_file,omitempty"`

	// Watch keeps the key pair in memory and reloads it when the files
	// change on disk. When false the pair is read for every request.
	Watch bool `toml:"watch" yaml:"watch" json:"watch"`

	// ExpiryCheckSchedule is a cron expression for the certificate expiry
	// check. Empty disables the check.
	// Default: "@hourly"
	ExpiryCheckSchedule string `toml:"expiry_check_schedule" yaml:"expiry_check_schedule" json:"expiry_check_schedule"`

	// ExpiryWarningDays is the threshold below which expiry is logged as a warning.
	// Default: 30
	ExpiryWarningDays int `toml:"expiry_warning_days" yaml:"expiry_warning_days" json:"expiry_warning_days"`
}

// LoggingConfig represents the [logging] section.
type LoggingConfig struct {
	// Level is one of CRITICAL, ERROR, WARNING, INFO, DEBUG, NOTSET.
	// Matching is case-insensitive; Load stores the uppercased form.
	// Default: "INFO"
	Level string `toml:"level" yaml:"level" json:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `toml:"format" yaml:"format" json:"format"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled controls whether /metrics is served and metrics are recorded.
	// Default: true
	Enabled bool `toml:"enabled" yaml:"enabled" json:"enabled"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `toml:"path" yaml:"path" json:"path"`

	// Namespace is the metric name prefix.
	// Default: "cla_proxy"
	Namespace string `toml:"namespace" yaml:"namespace" json:"namespace"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// Enabled turns on span export.
	// Default: false
	Enabled bool `toml:"enabled" yaml:"enabled" json:"enabled"`

	// Endpoint is the OTLP/gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `toml:"endpoint" yaml:"endpoint" json:"endpoint"`

	// Insecure disables TLS towards the collector.
	Insecure bool `toml:"insecure" yaml:"insecure" json:"insecure"`

	// SampleRatio is the fraction of root traces sampled (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `toml:"sample_ratio" yaml:"sample_ratio" json:"sample_ratio"`

	// ServiceName is reported as service.name.
	// Default: "cla-proxy"
	ServiceName string `toml:"service_name" yaml:"service_name" json:"service_name"`
}

// Duration is a time.Duration that reads and writes as a Go duration
// string ("30s", "2m").
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
