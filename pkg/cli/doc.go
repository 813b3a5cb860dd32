/*
Package cli provides command-line interface utilities for cla-proxy.

The cli package includes output formatters, error types and signal handling
used by the cla-proxy command.

Output Formatting:

Command results can be printed as text, JSON, YAML or TOML:

	formatter, err := cli.NewFormatter(cli.FormatYAML)
	if err != nil {
		return err
	}
	if err := formatter.FormatTo(os.Stdout, cfg); err != nil {
		return err
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()
	// Use ctx for operations that should be cancelled on shutdown
*/
package cli
