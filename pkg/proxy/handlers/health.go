package handlers

import (
	"log/slog"
	"net/http"

	"rhel-lightspeed/cla-proxy/pkg/proxy"
	"rhel-lightspeed/cla-proxy/pkg/telemetry/health"
)

// HealthHandler handles liveness probes. It always answers 200 with an
// empty body.
type HealthHandler struct{}

// NewHealthHandler creates a new health check handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// ServeHTTP implements http.Handler for liveness checks.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ReadyResponse is the body of a successful readiness probe.
type ReadyResponse struct {
	Status string `json:"status"`
}

// ReadyHandler handles readiness probes by running the registered checks.
type ReadyHandler struct {
	checker  *health.Checker
	recorder ErrorRecorder
	logger   *slog.Logger
}

// NewReadyHandler creates a new readiness check handler.
func NewReadyHandler(checker *health.Checker, recorder ErrorRecorder, logger *slog.Logger) *ReadyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReadyHandler{checker: checker, recorder: recorder, logger: logger}
}

// ServeHTTP answers 200 {"status":"ready"} when every check passes and a 503
// envelope naming the failed checks otherwise.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	readiness := h.checker.CheckReadiness(r.Context())
	if !readiness.Ready() {
		err := readiness.Err()
		h.logger.WarnContext(r.Context(), "readiness check failed", "error", err)
		writeError(w, h.recorder, proxy.NewHTTPError(http.StatusServiceUnavailable, err.Error()))
		return
	}

	_ = proxy.WriteJSONResponse(w, http.StatusOK, ReadyResponse{Status: health.StatusReady})
}
