package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// writeTimeoutSlack is added to the backend timeout to derive the
	// default server write timeout.
	writeTimeoutSlack = 10 * time.Second

	// Backend defaults
	DefaultBackendEndpoint     = "https://0.0.0.0:8080"
	DefaultBackendTimeout      = 30
	DefaultCertFile            = "/etc/pki/consumer/cert.pem"
	DefaultKeyFile             = "/etc/pki/consumer/key.pem"
	DefaultExpiryCheckSchedule = "@hourly"
	DefaultExpiryWarningDays   = 30

	// Telemetry defaults
	DefaultLoggingLevel       = "INFO"
	DefaultLoggingFormat      = "json"
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "cla_proxy"
	DefaultTracingEnabled     = false
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingSampleRatio = 1.0
	DefaultServiceName        = "cla-proxy"
)

// Default returns a Config populated with every default value.
func Default() *Config {
	cfg := baseConfig()
	ApplyDefaults(cfg)
	return cfg
}

// baseConfig holds the defaults that cannot be told apart from an explicit
// zero value after decoding: booleans defaulting to true, a sample ratio
// whose zero is meaningful, and the expiry schedule whose empty value
// disables the check. Load decodes the TOML document on top of it.
func baseConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			Auth: AuthConfig{ExpiryCheckSchedule: DefaultExpiryCheckSchedule},
		},
		Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
		Tracing: TracingConfig{
			Enabled:     DefaultTracingEnabled,
			SampleRatio: DefaultTracingSampleRatio,
		},
	}
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Backend defaults
	if cfg.Backend.Endpoint == "" {
		cfg.Backend.Endpoint = DefaultBackendEndpoint
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = DefaultBackendTimeout
	}
	if cfg.Backend.Auth.CertFile == "" {
		cfg.Backend.Auth.CertFile = DefaultCertFile
	}
	if cfg.Backend.Auth.KeyFile == "" {
		cfg.Backend.Auth.KeyFile = DefaultKeyFile
	}
	if cfg.Backend.Auth.ExpiryWarningDays == 0 {
		cfg.Backend.Auth.ExpiryWarningDays = DefaultExpiryWarningDays
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = Duration(DefaultReadTimeout)
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = Duration(cfg.Backend.TimeoutDuration() + writeTimeoutSlack)
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = Duration(DefaultIdleTimeout)
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}

	// Metrics defaults
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	// Tracing defaults
	if cfg.Tracing.Endpoint == "" {
		cfg.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultServiceName
	}
}
