// Package middleware provides the HTTP middleware of the proxy.
//
// # Middleware Chain
//
// The server wraps its mux, outermost first:
//
//	RecoveryMiddleware -> LoggingMiddleware -> RequestIDMiddleware ->
//	tracing.HTTPMiddleware -> MetricsMiddleware -> mux
//
// DeadlineGuard is not part of the chain. It wraps only the forwarding
// routes, inside the mux, so the metrics middleware sees the 504 it writes
// and the recovery middleware sees any panic it re-raises.
//
// # Request ID
//
// RequestIDMiddleware keeps a client supplied X-Request-ID or generates a
// UUID. The ID is stored with logging.WithRequestID, echoed in the response
// and forwarded to the backend.
//
// # Deadline
//
// DeadlineGuard buffers the handler's response and races it against the
// configured timeout. When the deadline wins the client receives
//
//	HTTP/1.1 504 Gateway Timeout
//	{"data":{"text":"There was a problem while generating an answer. Please try again."}}
//
// and the handler's own response is discarded.
package middleware
