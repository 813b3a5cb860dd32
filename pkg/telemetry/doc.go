// Package telemetry groups the proxy's observability packages.
//
// # Components
//
//   - logging: slog logger with request and trace context fields
//   - metrics: Prometheus collector and /metrics handler
//   - tracing: OpenTelemetry spans around backend calls, OTLP export
//   - health: readiness checks behind /ready
//
// Each is built from the loaded configuration in pkg/server and passed to
// the components that record into it. None of them are globals, apart from
// the OpenTelemetry provider and propagator that tracing installs when
// enabled.
package telemetry
