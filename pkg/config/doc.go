// Package config provides configuration management for cla-proxy.
//
// Configuration is read from a single TOML file. Environment variables are
// not consulted; the file is the only source besides the built-in defaults.
//
// # Configuration Loading
//
// The usual entry point resolves the file and loads it:
//
//	cfg, path, err := config.Load(flagPath)
//
// With an empty flagPath the location comes from ConfigPath, which follows
// XDG_CONFIG_DIRS:
//
//   - unset or empty: /etc/xdg/cla-proxy/config.toml
//   - a single entry: <entry>/cla-proxy/config.toml
//   - several entries: the first entry that exists, else /etc/xdg
//
// A discovered file that does not exist yields the defaults. An explicit path
// that does not exist is an error.
//
// # File Format
//
//	[backend]
//	endpoint = "https://backend.example.com/api/v1"
//	timeout = 30
//
//	[backend.proxies]
//	https = "http://proxy.example.com:3128"
//
//	[backend.auth]
//	cert_file = "/etc/pki/consumer/cert.pem"
//	key_file = "/etc/pki/consumer/key.pem"
//
//	[logging]
//	level = "info"
//
// Unknown keys are rejected.
//
// # Validation
//
// All configuration is validated during loading and every field error is
// reported together in a ValidationError. The logging level is matched
// case-insensitively against CRITICAL, ERROR, WARNING, INFO, DEBUG and
// NOTSET and stored uppercased.
//
// The returned Config is never mutated afterwards. Pass it, or one of its
// sections, to the components that need it.
package config
