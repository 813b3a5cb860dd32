package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
[backend]
endpoint = "https://backend.example.com/api/v1"
timeout = 45

[backend.proxies]
https = "http://proxy.example.com:3128"

[backend.auth]
cert_file = "/tmp/cert.pem"
key_file = "/tmp/key.pem"

[logging]
level = "debug"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Backend.Endpoint != "https://backend.example.com/api/v1" {
		t.Errorf("unexpected endpoint %q", cfg.Backend.Endpoint)
	}
	if cfg.Backend.Timeout != 45 {
		t.Errorf("expected timeout 45, got %d", cfg.Backend.Timeout)
	}
	if cfg.Backend.TimeoutDuration() != 45*time.Second {
		t.Errorf("expected 45s, got %v", cfg.Backend.TimeoutDuration())
	}
	if cfg.Backend.Auth.CertFile != "/tmp/cert.pem" || cfg.Backend.Auth.KeyFile != "/tmp/key.pem" {
		t.Errorf("unexpected auth %+v", cfg.Backend.Auth)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("expected level DEBUG, got %q", cfg.Logging.Level)
	}

	proxy := cfg.Backend.Mounts.ProxyFor("https")
	if proxy == nil || proxy.Host != "proxy.example.com:3128" {
		t.Errorf("expected https mount to proxy.example.com:3128, got %v", proxy)
	}
	if p := cfg.Backend.Mounts.ProxyFor("http"); p != nil {
		t.Errorf("expected no http mount, got %v", p)
	}

	// Unset sections keep their defaults.
	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("expected default listen address, got %q", cfg.Server.ListenAddress)
	}
	if !cfg.Metrics.Enabled {
		t.Error("expected metrics to stay enabled")
	}
	if cfg.Server.WriteTimeout.Std() != 55*time.Second {
		t.Errorf("expected write timeout derived from backend timeout, got %v", cfg.Server.WriteTimeout.Std())
	}
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Backend.Endpoint != DefaultBackendEndpoint {
		t.Errorf("expected endpoint %q, got %q", DefaultBackendEndpoint, cfg.Backend.Endpoint)
	}
	if cfg.Backend.Timeout != DefaultBackendTimeout {
		t.Errorf("expected timeout %d, got %d", DefaultBackendTimeout, cfg.Backend.Timeout)
	}
	if cfg.Backend.Auth.CertFile != DefaultCertFile {
		t.Errorf("expected cert %q, got %q", DefaultCertFile, cfg.Backend.Auth.CertFile)
	}
	if cfg.Backend.Auth.KeyFile != DefaultKeyFile {
		t.Errorf("expected key %q, got %q", DefaultKeyFile, cfg.Backend.Auth.KeyFile)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("expected level INFO, got %q", cfg.Logging.Level)
	}
	if len(cfg.Backend.Mounts) != 0 {
		t.Errorf("expected no proxy mounts, got %v", cfg.Backend.Mounts)
	}
}

func TestLoadConfig_ExplicitZeroTimeoutRejected(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "[backend]\ntimeout = 0\n"))
	if err == nil {
		t.Fatal("expected error for zero timeout")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if verr.Errors[0].Field != "backend.timeout" {
		t.Errorf("expected backend.timeout error, got %v", verr.Errors)
	}
}

func TestLoadConfig_ServerDurations(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
[server]
listen_address = "0.0.0.0:9000"
read_timeout = "5s"
write_timeout = "2m"
`))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9000" {
		t.Errorf("unexpected listen address %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout.Std() != 5*time.Second {
		t.Errorf("expected 5s read timeout, got %v", cfg.Server.ReadTimeout.Std())
	}
	if cfg.Server.WriteTimeout.Std() != 2*time.Minute {
		t.Errorf("expected 2m write timeout, got %v", cfg.Server.WriteTimeout.Std())
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown key",
			content: "[backend]\nendpont = \"https://x\"\n",
			wantErr: "unknown configuration keys",
		},
		{
			name:    "unknown section",
			content: "[frontend]\nport = 1\n",
			wantErr: "unknown configuration keys",
		},
		{
			name:    "malformed toml",
			content: "[backend\nendpoint = 1",
			wantErr: "failed to parse configuration",
		},
		{
			name:    "wrong type",
			content: "[backend]\ntimeout = \"thirty\"\n",
			wantErr: "failed to parse configuration",
		},
		{
			name:    "invalid level",
			content: "[logging]\nlevel = \"verbose\"\n",
			wantErr: "logging.level",
		},
		{
			name:    "padded level",
			content: "[logging]\nlevel = \" info \"\n",
			wantErr: "logging.level",
		},
		{
			name:    "level with trailing newline",
			content: "[logging]\nlevel = \"info\\n\"\n",
			wantErr: "logging.level",
		},
		{
			name:    "bad duration",
			content: "[server]\nread_timeout = \"soon\"\n",
			wantErr: "failed to parse configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfig_LevelNormalization(t *testing.T) {
	for _, level := range LogLevels {
		variants := []string{level, strings.ToLower(level), level[:1] + strings.ToLower(level[1:])}
		for _, v := range variants {
			t.Run(v, func(t *testing.T) {
				cfg, err := LoadConfig(writeConfig(t, "[logging]\nlevel = \""+v+"\"\n"))
				if err != nil {
					t.Fatalf("level %q should be accepted: %v", v, err)
				}
				if cfg.Logging.Level != level {
					t.Errorf("expected stored level %q, got %q", level, cfg.Logging.Level)
				}
			})
		}
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestLoad_ExplicitMissingFileIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	_, used, err := Load(path)
	if err == nil {
		t.Fatal("expected error for missing explicit file")
	}
	if used != path {
		t.Errorf("expected path %q, got %q", path, used)
	}
}

func TestLoad_DiscoveredMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_DIRS", dir)

	cfg, used, err := Load("")
	if err != nil {
		t.Fatalf("expected defaults, got error: %v", err)
	}
	if want := filepath.Join(dir, ConfigFileName); used != want {
		t.Errorf("expected path %q, got %q", want, used)
	}
	if cfg.Backend.Endpoint != DefaultBackendEndpoint {
		t.Errorf("expected default endpoint, got %q", cfg.Backend.Endpoint)
	}
}

func TestLoad_Discovered(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "cla-proxy"), 0o755); err != nil {
		t.Fatal(err)
	}
	content := "[backend]\nendpoint = \"https://discovered.example.com\"\n"
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("XDG_CONFIG_DIRS", dir)

	cfg, _, err := Load("")
	if err != nil {
		t.Fatalf("failed to load discovered config: %v", err)
	}
	if cfg.Backend.Endpoint != "https://discovered.example.com" {
		t.Errorf("unexpected endpoint %q", cfg.Backend.Endpoint)
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Backend.Proxies = map[string]string{"all": "socks5://127.0.0.1:1080"}

	data, err := Encode(cfg)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("encoded config does not load back: %v\n%s", err, data)
	}
	if parsed.Backend.Mounts.ProxyFor("https").String() != "socks5://127.0.0.1:1080" {
		t.Errorf("proxy mount lost in round trip: %v", parsed.Backend.Mounts)
	}
	if parsed.Server.WriteTimeout != cfg.Server.WriteTimeout {
		t.Errorf("write timeout changed: %v vs %v", parsed.Server.WriteTimeout, cfg.Server.WriteTimeout)
	}
}
