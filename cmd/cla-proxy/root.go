package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rhel-lightspeed/cla-proxy/pkg/cli"
	"rhel-lightspeed/cla-proxy/pkg/config"
)

var (
	// Global flags
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "cla-proxy",
	Short: "cla-proxy - mTLS forwarding proxy for the command line assistant",
	Long: `cla-proxy accepts inference requests from local clients over plain HTTP
and forwards them to a remote LLM backend, authenticating with the host's
client certificate.

It provides:
  - OpenAI-compatible /v1/chat/completions and /v1/models forwarding
  - mutual TLS with the consumer certificate, reloaded on rotation
  - a per-request deadline with a fixed fallback answer
  - normalized error bodies, Prometheus metrics and OpenTelemetry traces

The configuration file is read from $XDG_CONFIG_DIRS/cla-proxy/config.toml
(default /etc/xdg/cla-proxy/config.toml) unless --config is given.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file path (default $XDG_CONFIG_DIRS/"+config.ConfigFileName+")")
}

// loadConfig loads the configuration named by --config, or the discovered
// file when the flag is empty.
func loadConfig() (*config.Config, string, error) {
	cfg, path, err := config.Load(cfgFile)
	if err != nil {
		return nil, path, cli.NewConfigError(path, err)
	}
	return cfg, path, nil
}
