package metrics

import (
	"time"

	"rhel-lightspeed/cla-proxy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// BackendMetrics tracks calls to the inference backend and the client
// certificate used to make them.
//
// Metrics:
//   - cla_proxy_backend_requests_total: backend calls by operation and outcome
//   - cla_proxy_backend_request_duration_seconds: backend call latency
//   - cla_proxy_client_certificate_expiry_timestamp_seconds: NotAfter of the client certificate
type BackendMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	certExpiry      *prometheus.GaugeVec
}

// NewBackendMetrics creates and registers backend metrics with the provided registry.
func NewBackendMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *BackendMetrics {
	bm := &BackendMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "backend_requests_total",
				Help:      "Total number of backend requests by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "backend_request_duration_seconds",
				Help:      "Latency of backend requests in seconds",
				Buckets:   defaultDurationBuckets,
			},
			[]string{"operation", "outcome"},
		),

		certExpiry: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "client_certificate_expiry_timestamp_seconds",
				Help:      "Unix time at which the client certificate expires",
			},
			[]string{"subject"},
		),
	}

	registry.MustRegister(
		bm.requestsTotal,
		bm.requestDuration,
		bm.certExpiry,
	)

	return bm
}

// RecordRequest records one backend call.
func (bm *BackendMetrics) RecordRequest(operation, outcome string, duration time.Duration) {
	bm.requestsTotal.WithLabelValues(operation, outcome).Inc()
	bm.requestDuration.WithLabelValues(operation, outcome).Observe(duration.Seconds())
}

// SetCertificateExpiry sets the expiry gauge for subject.
func (bm *BackendMetrics) SetCertificateExpiry(subject string, notAfter time.Time) {
	bm.certExpiry.WithLabelValues(subject).Set(float64(notAfter.Unix()))
}
