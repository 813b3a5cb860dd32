package metrics

import (
	"net/http"
	"sync"
	"time"

	"rhel-lightspeed/cla-proxy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// OtherRoute is the route label used once the cardinality limit is reached.
const OtherRoute = "other"

// Collector owns the proxy's Prometheus registry and records every metric
// the proxy exposes. All methods are safe on a nil or disabled Collector.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics *RequestMetrics
	backendMetrics *BackendMetrics

	routeLimiter *CardinalityLimiter
}

// NewCollector creates a collector registered with registry. If registry is
// nil a fresh one is created, preloaded with the Go runtime and process
// collectors.
//
//	collector := metrics.NewCollector(&cfg.Metrics, nil)
//	mux.Handle(cfg.Metrics.Path, collector.Handler())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c := &Collector{
		config:       cfg,
		registry:     registry,
		routeLimiter: NewCardinalityLimiter(100),
	}

	c.requestMetrics = NewRequestMetrics(cfg, registry)
	c.backendMetrics = NewBackendMetrics(cfg, registry)

	return c
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordRequest records a completed inbound request. Routes beyond the
// cardinality limit are folded into OtherRoute.
func (c *Collector) RecordRequest(route, method string, status int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.requestMetrics.RecordRequest(c.route(route), method, status, duration)
}

// RecordTimeout records a request answered with the timeout fallback.
func (c *Collector) RecordTimeout(route string) {
	if !c.enabled() {
		return
	}
	c.requestMetrics.RecordTimeout(c.route(route))
}

// RecordError records a normalized error response.
func (c *Collector) RecordError(status int, shape string) {
	if !c.enabled() {
		return
	}
	c.requestMetrics.RecordError(status, shape)
}

// RecordBackendRequest records one backend call. outcome is "success" or
// the failure kind.
func (c *Collector) RecordBackendRequest(operation, outcome string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.backendMetrics.RecordRequest(operation, outcome, duration)
}

// SetCertificateExpiry records when the client certificate for subject expires.
func (c *Collector) SetCertificateExpiry(subject string, notAfter time.Time) {
	if !c.enabled() {
		return
	}
	c.backendMetrics.SetCertificateExpiry(subject, notAfter)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler is a convenience for mounting the exposition endpoint.
func (c *Collector) Handler() http.Handler {
	return newHandler(c.registry)
}

func (c *Collector) route(route string) string {
	if route == "" {
		return OtherRoute
	}
	if !c.routeLimiter.Allow(route) {
		return OtherRoute
	}
	return route
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
