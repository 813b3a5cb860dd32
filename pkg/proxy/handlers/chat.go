package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"rhel-lightspeed/cla-proxy/pkg/proxy"
	"rhel-lightspeed/cla-proxy/pkg/proxy/types"
)

// ChatCompleter forwards chat completion requests to the backend.
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, req *types.ChatCompletionRequest) (*types.ChatCompletionResponse, error)
}

// ErrorRecorder records the normalized error responses written by handlers.
type ErrorRecorder interface {
	RecordError(status int, shape string)
}

// ChatHandler serves POST /v1/chat/completions.
type ChatHandler struct {
	forwarder ChatCompleter
	recorder  ErrorRecorder
	logger    *slog.Logger
}

// NewChatHandler creates a chat completion handler. recorder and logger may
// be nil.
func NewChatHandler(forwarder ChatCompleter, recorder ErrorRecorder, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{forwarder: forwarder, recorder: recorder, logger: logger}
}

// ServeHTTP decodes the request, forwards it and writes the backend's
// response unchanged. Backend failures are normalized with
// proxy.FromBackendError.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	chatReq, err := proxy.ParseChatCompletionRequest(r)
	if err != nil {
		h.logger.InfoContext(ctx, "rejected chat completion request", "error", err)
		writeError(w, h.recorder, err)
		return
	}

	h.logger.DebugContext(ctx, "forwarding chat completion request",
		"model", chatReq.Model,
		"messages", len(chatReq.Messages),
	)

	resp, err := h.forwarder.ChatCompletion(ctx, chatReq)
	if err != nil {
		writeError(w, h.recorder, proxy.FromBackendError(err))
		return
	}

	if err := proxy.WriteJSONResponse(w, http.StatusOK, resp); err != nil {
		h.logger.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, recorder ErrorRecorder, err error) {
	status, shape := proxy.WriteError(w, err)
	if recorder != nil {
		recorder.RecordError(status, shape)
	}
}
