// Package logging builds the process logger on top of log/slog.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  cfg.Logging.Level,
//	    Format: cfg.Logging.Format,
//	})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
// # Levels
//
// Level names are CRITICAL, ERROR, WARNING, INFO, DEBUG and NOTSET. They map
// onto slog levels, with LevelCritical above slog.LevelError and LevelNotset
// below slog.LevelDebug. Records render their level with the same names.
//
// # Context Fields
//
// A request ID stored with WithRequestID, and the active OpenTelemetry span,
// are added to every record logged with that context:
//
//	ctx = logging.WithRequestID(ctx, id)
//	slog.InfoContext(ctx, "forwarding request")
//	// {"level":"INFO","msg":"forwarding request","request_id":"..."}
package logging
