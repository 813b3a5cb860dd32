// Package tracing provides OpenTelemetry tracing for the proxy.
//
// Spans are created around every backend call and exported over OTLP/gRPC
// when [tracing] enabled = true. With tracing disabled a noop provider is
// used and nothing leaves the process.
//
// # Propagation
//
// W3C Trace Context is extracted from incoming requests (HTTPMiddleware) and
// injected into outbound backend requests (Inject), so the backend can join
// the caller's trace:
//
//	traceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//
// # Sampling
//
// Root spans are sampled with probability sample_ratio. Child spans follow
// their parent.
package tracing
