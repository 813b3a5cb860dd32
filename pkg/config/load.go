package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// LoadConfig loads configuration from a TOML file at the specified path.
// Keys absent from the file keep their default values. Unknown keys are
// rejected. The result is normalized and validated before it is returned.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("configuration file %q: %w", path, err)
	}
	return cfg, nil
}

// Load resolves the configuration file and loads it.
//
// When explicitPath is set the file must exist. Otherwise ConfigPath is
// consulted and a missing file yields the default configuration.
// Load returns the path it used alongside the configuration.
func Load(explicitPath string) (*Config, string, error) {
	if explicitPath != "" {
		cfg, err := LoadConfig(explicitPath)
		return cfg, explicitPath, err
	}

	path := ConfigPath()
	cfg, err := LoadConfig(path)
	if err == nil {
		return cfg, path, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, path, err
	}

	slog.Warn("configuration file not found, using defaults", "path", path)
	cfg, err = finalize(Default())
	return cfg, path, err
}

// Parse decodes a TOML document on top of the defaults, then normalizes and
// validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	// The write timeout default depends on the decoded backend timeout.
	cfg.Server.WriteTimeout = 0

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("unknown configuration keys:\n%s", strict.String())
		}
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, fmt.Errorf("failed to parse configuration at line %d, column %d: %w", row, col, err)
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = Duration(cfg.Backend.TimeoutDuration() + writeTimeoutSlack)
	}

	return finalize(cfg)
}

// finalize normalizes, validates and derives the parsed forms of cfg.
func finalize(cfg *Config) (*Config, error) {
	Normalize(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	// Validate has already reported every bad entry.
	cfg.Backend.Mounts, _ = ParseProxyMounts("backend.proxies", cfg.Backend.Proxies)

	return cfg, nil
}

// Normalize canonicalizes case-insensitive values in place. The logging
// level is uppercased and nothing else, so a padded name still fails
// validation. The format is trimmed and lowercased.
func Normalize(cfg *Config) {
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
}

// Encode writes cfg as a TOML document.
func Encode(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	return buf.Bytes(), nil
}
