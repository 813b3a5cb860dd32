package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownSignals are the signals that stop the proxy gracefully.
var ShutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// SetupSignalHandler creates a context that is canceled on SIGINT or SIGTERM.
// Calling stop releases the signal registration; a second signal after the
// context is done terminates the process with the default behavior.
func SetupSignalHandler() (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(context.Background(), ShutdownSignals...)
}

// WaitForShutdown returns a channel that receives the first shutdown signal.
func WaitForShutdown() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, ShutdownSignals...)
	return sigChan
}
