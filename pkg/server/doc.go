// Package server assembles the proxy's HTTP surface and runs it.
//
// # Basic Usage
//
//	cfg, _, err := config.Load(configPath)
//	if err != nil {
//	    return err
//	}
//
//	srv, err := server.New(cfg, server.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx)
//
// Start blocks until ctx is cancelled, then shuts down gracefully within
// server.shutdown_timeout.
//
// # Routes
//
//   - GET /health: liveness, always 200 with an empty body
//   - GET /ready: 200 when the client identity loads and is valid, 503 otherwise
//   - POST /v1/chat/completions: forwarded to <endpoint>/chat/completions
//   - GET /v1/models: forwarded to <endpoint>/models
//   - GET /metrics: Prometheus exposition, when metrics are enabled
//
// The two /v1/ routes run under the deadline guard with backend.timeout.
//
// # Middleware Chain
//
// Outermost first: recovery, logging, request ID, trace context
// extraction, metrics. See package middleware.
//
// # Client Identity
//
// With backend.auth.watch unset the key pair is read from disk for every
// request. With watch set it is loaded at startup, cached and reloaded when
// the files change. Either way a cron-scheduled monitor reports how long the
// certificate has left.
package server
