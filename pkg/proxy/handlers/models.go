package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"rhel-lightspeed/cla-proxy/pkg/proxy"
	"rhel-lightspeed/cla-proxy/pkg/proxy/types"
)

// ModelLister lists the models served by the backend.
type ModelLister interface {
	ListModels(ctx context.Context) (*types.ModelsResponse, error)
}

// ModelsHandler serves GET /v1/models.
type ModelsHandler struct {
	forwarder ModelLister
	recorder  ErrorRecorder
	logger    *slog.Logger
}

// NewModelsHandler creates a model listing handler.
func NewModelsHandler(forwarder ModelLister, recorder ErrorRecorder, logger *slog.Logger) *ModelsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelsHandler{forwarder: forwarder, recorder: recorder, logger: logger}
}

// ServeHTTP implements http.Handler.
func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	models, err := h.forwarder.ListModels(r.Context())
	if err != nil {
		writeError(w, h.recorder, proxy.FromBackendError(err))
		return
	}

	if err := proxy.WriteJSONResponse(w, http.StatusOK, models); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write response", "error", err)
	}
}
