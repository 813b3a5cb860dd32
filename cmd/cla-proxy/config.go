package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rhel-lightspeed/cla-proxy/pkg/cli"
	"rhel-lightspeed/cla-proxy/pkg/config"
)

var configFlags struct {
	format string
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the proxy configuration",
	Long: `Inspect the proxy configuration.

Subcommands:
  show     - Print the effective configuration, defaults included
  validate - Load and validate the configuration file
  path     - Print the configuration file location

Examples:
  # Print the effective configuration as TOML
  cla-proxy config show

  # Print it as YAML
  cla-proxy config show --format yaml

  # Check a file before installing it
  cla-proxy config validate --config ./config.toml`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseFormat(configFlags.format)
		if err != nil {
			return err
		}

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		// Text output is the configuration file format itself.
		if format == cli.FormatText || format == cli.FormatTOML {
			data, err := config.Encode(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}

		formatter, err := cli.NewFormatter(format)
		if err != nil {
			return err
		}
		return formatter.FormatTo(cmd.OutOrStdout(), cfg)
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, path, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Configuration valid: %s\n", path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	Long: `Print the configuration file the proxy reads.

With --config the given path is printed. Otherwise the location is derived
from XDG_CONFIG_DIRS: a single entry is used as is, with several the first
existing directory wins, and /etc/xdg is the fallback.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path := cfgFile
		if path == "" {
			path = config.ConfigPath()
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configValidateCmd, configPathCmd)

	configShowCmd.Flags().StringVar(&configFlags.format, "format", "toml", "output format: toml, yaml, json")
}
