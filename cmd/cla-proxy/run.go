package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rhel-lightspeed/cla-proxy/pkg/cli"
	"rhel-lightspeed/cla-proxy/pkg/config"
	"rhel-lightspeed/cla-proxy/pkg/server"
	"rhel-lightspeed/cla-proxy/pkg/telemetry/logging"
	"rhel-lightspeed/cla-proxy/pkg/telemetry/tracing"
)

// tracerShutdownTimeout bounds the final span flush on exit.
const tracerShutdownTimeout = 5 * time.Second

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the proxy server",
	Long: `Start the proxy server with the specified configuration.

The server listens on the configured address and forwards chat completion
and model listing requests to the backend using the client certificate.
SIGINT or SIGTERM stops it gracefully.

Examples:
  # Start with the discovered config
  cla-proxy run

  # Start with a custom config
  cla-proxy run --config /etc/xdg/cla-proxy/config.toml

  # Override listen address
  cla-proxy run --listen 127.0.0.1:9090

  # Validate config without starting the server
  cla-proxy run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (CRITICAL, ERROR, WARNING, INFO, DEBUG, NOTSET)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	if err := applyRunOverrides(cfg); err != nil {
		return cli.NewConfigError(path, err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return cli.NewConfigError(path, err)
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Configuration valid: %s\n", path)
		return nil
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	logger.Info("configuration loaded", "path", path)

	tracer, err := tracing.New(ctx, &cfg.Tracing)
	if err != nil {
		logging.Critical(ctx, logger, "failed to initialize tracing", "error", err)
		return cli.NewCommandError("run", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), tracerShutdownTimeout)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}()

	srv, err := server.New(cfg,
		server.WithLogger(logger),
		server.WithTracerProvider(tracer.Provider()),
	)
	if err != nil {
		logging.Critical(ctx, logger, "failed to create server", "error", err)
		return cli.NewCommandError("run", err)
	}

	if err := srv.Start(ctx); err != nil {
		logging.Critical(ctx, logger, "server stopped with error", "error", err)
		return cli.NewCommandError("run", err)
	}
	return nil
}

// applyRunOverrides applies the run flags on top of the loaded file and
// validates the result again.
func applyRunOverrides(cfg *config.Config) error {
	changed := false
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
		changed = true
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = strings.ToUpper(runFlags.logLevel)
		changed = true
	}
	if !changed {
		return nil
	}
	return config.Validate(cfg)
}
