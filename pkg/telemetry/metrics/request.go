package metrics

import (
	"strconv"
	"time"

	"rhel-lightspeed/cla-proxy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// defaultDurationBuckets cover inference latencies from 50ms to the
// longest configurable backend timeouts.
var defaultDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}

// RequestMetrics tracks inbound HTTP requests.
//
// Metrics:
//   - cla_proxy_http_requests_total: requests by route, method and status code
//   - cla_proxy_http_request_duration_seconds: request duration histogram
//   - cla_proxy_request_timeouts_total: requests answered with the timeout fallback
//   - cla_proxy_errors_total: error responses by status and body shape
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	timeoutsTotal   *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests served",
			},
			[]string{"route", "method", "code"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultDurationBuckets,
			},
			[]string{"route", "method"},
		),

		timeoutsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "request_timeouts_total",
				Help:      "Total number of requests that exceeded the backend deadline",
			},
			[]string{"route"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "errors_total",
				Help:      "Total number of error responses by status and body shape",
			},
			[]string{"code", "shape"},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.timeoutsTotal,
		rm.errorsTotal,
	)

	return rm
}

// RecordRequest records a completed request.
func (rm *RequestMetrics) RecordRequest(route, method string, status int, duration time.Duration) {
	rm.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	rm.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordTimeout records a request answered with the timeout fallback.
func (rm *RequestMetrics) RecordTimeout(route string) {
	rm.timeoutsTotal.WithLabelValues(route).Inc()
}

// RecordError records an error response. shape is "envelope" or "default".
func (rm *RequestMetrics) RecordError(status int, shape string) {
	rm.errorsTotal.WithLabelValues(strconv.Itoa(status), shape).Inc()
}
