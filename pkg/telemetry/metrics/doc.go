// Package metrics provides the proxy's Prometheus metrics.
//
// # Metrics
//
//   - http_requests_total{route,method,code}
//   - http_request_duration_seconds{route,method}
//   - request_timeouts_total{route}
//   - errors_total{code,shape}
//   - backend_requests_total{operation,outcome}
//   - backend_request_duration_seconds{operation,outcome}
//   - client_certificate_expiry_timestamp_seconds{subject}
//
// All names carry the configured namespace (default "cla_proxy").
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Metrics, nil)
//	mux.Handle(cfg.Metrics.Path, collector.Handler())
//
// When [metrics] enabled = false the collector records nothing and the
// endpoint is not mounted.
package metrics
