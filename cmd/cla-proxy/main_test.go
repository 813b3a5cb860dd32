package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// executeCommand runs the root command with args and returns what it wrote
// to stdout. Global flag values are reset first.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgFile = ""
	runFlags.listenAddress, runFlags.logLevel, runFlags.dryRun = "", "", false
	configFlags.format = "toml"
	infoFlags.format, infoFlags.warnDays = "text", 0

	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

const testConfig = `
[server]
listen_address = "127.0.0.1:9191"

[backend]
endpoint = "https://inference.example.com/api"
timeout = 45

[backend.proxies]
https = "http://proxy.example.com:3128"

[backend.auth]
cert_file = "/etc/pki/consumer/cert.pem"
key_file = "/etc/pki/consumer/key.pem"

[logging]
level = "debug"
`
