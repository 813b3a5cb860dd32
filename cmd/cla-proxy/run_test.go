package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"rhel-lightspeed/cla-proxy/pkg/cli"
)

func TestRunDryRun(t *testing.T) {
	path := writeConfig(t, testConfig)

	out, err := executeCommand(t, "run", "--dry-run", "--config", path)
	if err != nil {
		t.Fatalf("run --dry-run error = %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Errorf("output = %q", out)
	}
}

func TestRunOverrides(t *testing.T) {
	path := writeConfig(t, testConfig)

	t.Run("valid overrides", func(t *testing.T) {
		_, err := executeCommand(t, "run", "--dry-run", "--config", path,
			"--listen", "127.0.0.1:9292", "--log-level", "warning")
		if err != nil {
			t.Fatalf("run error = %v", err)
		}
	})

	t.Run("invalid log level", func(t *testing.T) {
		_, err := executeCommand(t, "run", "--dry-run", "--config", path, "--log-level", "chatty")
		if err == nil {
			t.Fatal("expected error for invalid log level")
		}
		if cli.ExitCode(err) != cli.ExitConfig {
			t.Errorf("ExitCode = %d, want %d", cli.ExitCode(err), cli.ExitConfig)
		}
	})

	t.Run("empty listen keeps file value", func(t *testing.T) {
		_, err := executeCommand(t, "run", "--dry-run", "--config", path, "--listen", "")
		if err != nil {
			t.Fatalf("empty --listen keeps the file value, got %v", err)
		}
	})
}

func TestRunMissingConfig(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.toml")

	_, err := executeCommand(t, "run", "--config", missing)
	if err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}

	var cfgErr *cli.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %T, want *cli.ConfigError", err)
	}
	if cfgErr.Path != missing {
		t.Errorf("path = %q, want %q", cfgErr.Path, missing)
	}
}
