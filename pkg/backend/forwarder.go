package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"rhel-lightspeed/cla-proxy/pkg/config"
	"rhel-lightspeed/cla-proxy/pkg/proxy/types"
	"rhel-lightspeed/cla-proxy/pkg/telemetry/logging"
	"rhel-lightspeed/cla-proxy/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Backend operations, used as span suffixes and metric labels.
const (
	OpChatCompletions = "chat_completions"
	OpListModels      = "list_models"
)

const (
	chatCompletionsPath = "/chat/completions"
	modelsPath          = "/models"

	// DefaultMaxResponseBytes bounds the backend response body.
	DefaultMaxResponseBytes int64 = 32 << 20

	// maxMessageBytes bounds the error detail copied from a non-JSON body.
	maxMessageBytes = 1024
)

// LatencyRecorder receives one observation per backend call.
type LatencyRecorder interface {
	RecordBackendRequest(operation, outcome string, duration time.Duration)
}

// Forwarder relays inference requests to the backend. Every call builds its
// own client, makes exactly one attempt and closes the client before
// returning.
type Forwarder struct {
	cfg     config.BackendConfig
	builder ClientBuilder

	tracer           trace.Tracer
	metrics          LatencyRecorder
	logger           *slog.Logger
	maxResponseBytes int64
}

// ForwarderOption configures a Forwarder.
type ForwarderOption func(*Forwarder)

// WithTracerProvider sets the provider backend spans are created with.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) ForwarderOption {
	return func(f *Forwarder) {
		f.tracer = tp.Tracer(tracing.InstrumentationName)
	}
}

// WithMetrics records backend latency into m.
func WithMetrics(m LatencyRecorder) ForwarderOption {
	return func(f *Forwarder) {
		f.metrics = m
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ForwarderOption {
	return func(f *Forwarder) {
		f.logger = logger
	}
}

// WithMaxResponseBytes overrides DefaultMaxResponseBytes.
func WithMaxResponseBytes(n int64) ForwarderOption {
	return func(f *Forwarder) {
		f.maxResponseBytes = n
	}
}

// NewForwarder creates a Forwarder for the [backend] section.
func NewForwarder(cfg config.BackendConfig, builder ClientBuilder, opts ...ForwarderOption) (*Forwarder, error) {
	if builder == nil {
		return nil, errors.New("client builder is nil")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("backend endpoint is empty")
	}

	f := &Forwarder{
		cfg:              cfg,
		builder:          builder,
		maxResponseBytes: DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.tracer == nil {
		f.tracer = otel.GetTracerProvider().Tracer(tracing.InstrumentationName)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}

	return f, nil
}

// ChatCompletion POSTs req to <endpoint>/chat/completions and decodes the
// completion.
func (f *Forwarder) ChatCompletion(ctx context.Context, req *types.ChatCompletionRequest) (*types.ChatCompletionResponse, error) {
	if req == nil {
		return nil, errors.New("chat completion request is nil")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat completion request: %w", err)
	}

	var resp types.ChatCompletionResponse
	err = f.do(ctx, OpChatCompletions, http.MethodPost, chatCompletionsPath, body, &resp, func() error {
		if resp.Choices == nil {
			return errors.New("response has no choices")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListModels GETs <endpoint>/models and decodes the model list.
func (f *Forwarder) ListModels(ctx context.Context) (*types.ModelsResponse, error) {
	var resp types.ModelsResponse
	err := f.do(ctx, OpListModels, http.MethodGet, modelsPath, nil, &resp, func() error {
		if resp.Data == nil {
			return errors.New("response has no data")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (f *Forwarder) do(ctx context.Context, op, method, path string, body []byte, out any, check func() error) error {
	url := f.cfg.URL(path)
	start := time.Now()

	ctx, span := f.tracer.Start(ctx, "backend."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", url),
		),
	)
	defer span.End()

	status, err := f.roundTrip(ctx, op, method, url, body, out, check)
	duration := time.Since(start)

	if status > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}

	outcome := "success"
	if err != nil {
		outcome = string(kindOf(err))
		tracing.SetError(span, err)
	}
	if f.metrics != nil {
		f.metrics.RecordBackendRequest(op, outcome, duration)
	}

	if err != nil {
		f.logger.WarnContext(ctx, "backend request failed",
			"operation", op,
			"url", url,
			"status", status,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return err
	}

	f.logger.DebugContext(ctx, "backend request completed",
		"operation", op,
		"url", url,
		"status", status,
		"duration_ms", duration.Milliseconds(),
	)
	return nil
}

// roundTrip performs the single attempt. It returns the backend status
// when a response was received.
func (f *Forwarder) roundTrip(ctx context.Context, op, method, url string, body []byte, out any, check func() error) (int, error) {
	client, err := f.builder.Build(ctx)
	if err != nil {
		var be *BackendError
		if errors.As(err, &be) {
			be.Op = op
			return 0, be
		}
		return 0, &BackendError{Op: op, Kind: KindIdentity, Message: "failed to build client", Cause: err}
	}
	defer client.Close()

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return 0, &BackendError{Op: op, Kind: KindTransport, Message: "failed to create request", Cause: err}
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := logging.GetRequestID(ctx); id != "" {
		req.Header.Set(logging.RequestIDHeader, id)
	}
	tracing.Inject(ctx, req.Header)

	resp, err := client.Do(req)
	if err != nil {
		return 0, &BackendError{Op: op, Kind: KindTransport, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxResponseBytes+1))
	if err != nil {
		return resp.StatusCode, &BackendError{Op: op, Kind: KindTransport, Message: "failed to read response body", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &BackendError{
			Op:         op,
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, data),
		}
	}

	if int64(len(data)) > f.maxResponseBytes {
		return resp.StatusCode, &BackendError{
			Op:      op,
			Kind:    KindDecode,
			Message: fmt.Sprintf("response body exceeds %d bytes", f.maxResponseBytes),
		}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return resp.StatusCode, &BackendError{Op: op, Kind: KindDecode, Message: "response is not a JSON object"}
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return resp.StatusCode, &BackendError{Op: op, Kind: KindDecode, Message: "failed to decode response", Cause: err}
	}
	if err := check(); err != nil {
		return resp.StatusCode, &BackendError{Op: op, Kind: KindDecode, Message: err.Error()}
	}

	return resp.StatusCode, nil
}

// errorMessage extracts a human-readable detail from an error body. JSON
// bodies may carry {"detail": ...} or {"error": {"message": ...}}; any
// other body is used as text. An empty body falls back to the status text.
func errorMessage(status int, body []byte) string {
	trimmed := bytes.TrimSpace(body)

	var doc struct {
		Detail json.RawMessage `json:"detail"`
		Error  json.RawMessage `json:"error"`
	}
	if len(trimmed) > 0 && trimmed[0] == '{' && json.Unmarshal(trimmed, &doc) == nil {
		if msg := rawMessage(doc.Detail); msg != "" {
			return msg
		}
		var apiErr struct {
			Message string `json:"message"`
		}
		if len(doc.Error) > 0 && json.Unmarshal(doc.Error, &apiErr) == nil && apiErr.Message != "" {
			return apiErr.Message
		}
		if msg := rawMessage(doc.Error); msg != "" {
			return msg
		}
	}

	if len(trimmed) > 0 {
		text := string(trimmed)
		if len(text) > maxMessageBytes {
			text = text[:maxMessageBytes]
		}
		return strings.ToValidUTF8(text, "")
	}

	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", status)
}

// rawMessage renders a JSON value as a message: strings unquoted, anything
// else compact.
func rawMessage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
