package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"rhel-lightspeed/cla-proxy/internal/backendtest"
	"rhel-lightspeed/cla-proxy/pkg/config"
	"rhel-lightspeed/cla-proxy/pkg/proxy/types"
	"rhel-lightspeed/cla-proxy/pkg/telemetry/logging"
	"rhel-lightspeed/cla-proxy/pkg/telemetry/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordingBuilder remembers every client it hands out.
type recordingBuilder struct {
	inner ClientBuilder

	mu      sync.Mutex
	clients []*ScopedClient
}

func (b *recordingBuilder) Build(ctx context.Context) (*ScopedClient, error) {
	c, err := b.inner.Build(ctx)
	if err == nil {
		b.mu.Lock()
		b.clients = append(b.clients, c)
		b.mu.Unlock()
	}
	return c, err
}

func (b *recordingBuilder) assertAllClosed(t *testing.T, want int) {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.clients) != want {
		t.Errorf("built %d clients, want %d", len(b.clients), want)
	}
	for i, c := range b.clients {
		if !c.Closed() {
			t.Errorf("client %d was not closed", i)
		}
	}
}

type recordedLatency struct {
	operation string
	outcome   string
}

type fakeRecorder struct {
	mu   sync.Mutex
	seen []recordedLatency
}

func (r *fakeRecorder) RecordBackendRequest(operation, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, recordedLatency{operation, outcome})
}

func newForwarder(t *testing.T, cfg config.BackendConfig, opts ...ForwarderOption) (*Forwarder, *recordingBuilder) {
	t.Helper()
	builder := &recordingBuilder{inner: newFactory(t, cfg)}
	fwd, err := NewForwarder(cfg, builder, opts...)
	if err != nil {
		t.Fatalf("NewForwarder() error = %v", err)
	}
	return fwd, builder
}

func chatRequest(content string) *types.ChatCompletionRequest {
	return &types.ChatCompletionRequest{
		Model:    "granite",
		Messages: []types.Message{{Role: "user", Content: content}},
	}
}

func TestNewForwarder(t *testing.T) {
	backend := backendtest.New(t)
	factory := newFactory(t, backend.BackendConfig())

	if _, err := NewForwarder(backend.BackendConfig(), nil); err == nil {
		t.Error("expected error for nil builder")
	}

	cfg := backend.BackendConfig()
	cfg.Endpoint = ""
	if _, err := NewForwarder(cfg, factory); err == nil {
		t.Error("expected error for empty endpoint")
	}
}

func TestForwarder_ChatCompletion_EchoRoundTrip(t *testing.T) {
	backend := backendtest.New(t)
	backend.EnableEcho()

	fwd, builder := newForwarder(t, backend.BackendConfig())

	ctx := logging.WithRequestID(context.Background(), "req-42")
	resp, err := fwd.ChatCompletion(ctx, chatRequest("hello backend"))
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}

	if len(resp.Choices) != 1 || resp.Choices[0].Message.Content != "hello backend" {
		t.Errorf("choices = %+v, want echoed content", resp.Choices)
	}
	if resp.Model != "granite" {
		t.Errorf("Model = %q, want granite", resp.Model)
	}

	reqs := backend.Requests()
	if len(reqs) != 1 {
		t.Fatalf("backend received %d requests, want 1", len(reqs))
	}
	got := reqs[0]
	if got.Method != http.MethodPost || got.Path != "/chat/completions" {
		t.Errorf("request = %s %s, want POST /chat/completions", got.Method, got.Path)
	}
	if ct := got.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if id := got.Header.Get(logging.RequestIDHeader); id != "req-42" {
		t.Errorf("%s = %q, want req-42", logging.RequestIDHeader, id)
	}

	// The body is a JSON object, not a JSON-encoded string.
	var sent map[string]interface{}
	if err := json.Unmarshal(got.Body, &sent); err != nil {
		t.Fatalf("request body is not a JSON object: %s", got.Body)
	}
	if sent["model"] != "granite" {
		t.Errorf("sent model = %v", sent["model"])
	}

	builder.assertAllClosed(t, 1)
}

func TestForwarder_ChatCompletion_ForwardsRequestUnchanged(t *testing.T) {
	backend := backendtest.New(t)
	backend.EnableEcho()

	in := `{"model":"granite","messages":[{"role":"user","content":"hi"}],` +
		`"stream":false,"tools":[{"type":"function","function":{"name":"lookup"}}],` +
		`"tool_choice":"auto","logprobs":true,"stream_options":{"include_usage":true},` +
		`"parallel_tool_calls":false}`
	var req types.ChatCompletionRequest
	if err := json.Unmarshal([]byte(in), &req); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	fwd, _ := newForwarder(t, backend.BackendConfig())
	if _, err := fwd.ChatCompletion(context.Background(), &req); err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}

	reqs := backend.Requests()
	if len(reqs) != 1 {
		t.Fatalf("backend received %d requests, want 1", len(reqs))
	}
	var sent map[string]json.RawMessage
	if err := json.Unmarshal(reqs[0].Body, &sent); err != nil {
		t.Fatalf("request body is not a JSON object: %s", reqs[0].Body)
	}

	want := map[string]string{
		"stream":              `false`,
		"tools":               `[{"type":"function","function":{"name":"lookup"}}]`,
		"tool_choice":         `"auto"`,
		"logprobs":            `true`,
		"stream_options":      `{"include_usage":true}`,
		"parallel_tool_calls": `false`,
	}
	for name, value := range want {
		if got := string(sent[name]); got != value {
			t.Errorf("sent %s = %s, want %s", name, got, value)
		}
	}
}

func TestForwarder_EndpointTrailingSlash(t *testing.T) {
	backend := backendtest.New(t)
	backend.SetResponse("/models", backendtest.Response{Body: backendtest.ModelList("a", "b")})

	cfg := backend.BackendConfig()
	cfg.Endpoint += "/"
	fwd, builder := newForwarder(t, cfg)

	resp, err := fwd.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(resp.Data) != 2 || resp.Data[0].ID != "a" {
		t.Errorf("Data = %+v", resp.Data)
	}
	if reqs := backend.Requests(); reqs[0].Path != "/models" || reqs[0].Method != http.MethodGet {
		t.Errorf("request = %s %s, want GET /models", reqs[0].Method, reqs[0].Path)
	}
	builder.assertAllClosed(t, 1)
}

func TestForwarder_StatusPropagation(t *testing.T) {
	tests := []struct {
		name        string
		response    backendtest.Response
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "detail body",
			response:    backendtest.ErrorResponse(http.StatusForbidden, "subscription inactive"),
			wantStatus:  http.StatusForbidden,
			wantMessage: "subscription inactive",
		},
		{
			name:        "openai error body",
			response:    backendtest.Response{StatusCode: http.StatusUnauthorized, Body: map[string]interface{}{"error": map[string]interface{}{"message": "bad key"}}},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "bad key",
		},
		{
			name:        "structured detail",
			response:    backendtest.Response{StatusCode: http.StatusUnprocessableEntity, Body: map[string]interface{}{"detail": []interface{}{map[string]interface{}{"loc": "body"}}}},
			wantStatus:  http.StatusUnprocessableEntity,
			wantMessage: `[{"loc":"body"}]`,
		},
		{
			name:        "text body",
			response:    backendtest.Response{StatusCode: http.StatusBadGateway, Body: "  upstream unavailable\n"},
			wantStatus:  http.StatusBadGateway,
			wantMessage: "upstream unavailable",
		},
		{
			name:        "empty body",
			response:    backendtest.Response{StatusCode: http.StatusServiceUnavailable},
			wantStatus:  http.StatusServiceUnavailable,
			wantMessage: "Service Unavailable",
		},
		{
			name:        "internal error",
			response:    backendtest.ErrorResponse(http.StatusInternalServerError, "boom"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := backendtest.New(t)
			backend.SetResponse("/chat/completions", tt.response)
			fwd, builder := newForwarder(t, backend.BackendConfig())

			_, err := fwd.ChatCompletion(context.Background(), chatRequest("hi"))

			var be *BackendError
			if !errors.As(err, &be) {
				t.Fatalf("error = %v, want *BackendError", err)
			}
			if be.Kind != KindStatus || be.StatusCode != tt.wantStatus {
				t.Errorf("Kind = %q StatusCode = %d, want status/%d", be.Kind, be.StatusCode, tt.wantStatus)
			}
			if be.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", be.Message, tt.wantMessage)
			}
			if code, ok := StatusCode(err); !ok || code != tt.wantStatus {
				t.Errorf("StatusCode() = %d, %v", code, ok)
			}
			if backend.RequestCount() != 1 {
				t.Errorf("backend received %d requests, want exactly 1 attempt", backend.RequestCount())
			}
			builder.assertAllClosed(t, 1)
		})
	}
}

func TestForwarder_MalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		path string
		body interface{}
	}{
		{
			name: "not JSON",
			path: "/chat/completions",
			body: "<html>oops</html>",
		},
		{
			name: "JSON array",
			path: "/chat/completions",
			body: "[]",
		},
		{
			name: "JSON string",
			path: "/chat/completions",
			body: `"{\"choices\":[]}"`,
		},
		{
			name: "missing choices",
			path: "/chat/completions",
			body: map[string]interface{}{"id": "x"},
		},
		{
			name: "wrong choices type",
			path: "/chat/completions",
			body: map[string]interface{}{"choices": "none"},
		},
		{
			name: "empty body",
			path: "/chat/completions",
			body: "",
		},
		{
			name: "models without data",
			path: "/models",
			body: map[string]interface{}{"object": "list"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := backendtest.New(t)
			backend.SetResponse(tt.path, backendtest.Response{StatusCode: http.StatusOK, Body: tt.body})
			fwd, builder := newForwarder(t, backend.BackendConfig())

			var err error
			if tt.path == "/models" {
				_, err = fwd.ListModels(context.Background())
			} else {
				_, err = fwd.ChatCompletion(context.Background(), chatRequest("hi"))
			}

			var be *BackendError
			if !errors.As(err, &be) {
				t.Fatalf("error = %v, want *BackendError", err)
			}
			if be.Kind != KindDecode || be.StatusCode != 0 {
				t.Errorf("Kind = %q StatusCode = %d, want decode/0", be.Kind, be.StatusCode)
			}
			builder.assertAllClosed(t, 1)
		})
	}
}

func TestForwarder_ResponseTooLarge(t *testing.T) {
	backend := backendtest.New(t)
	backend.SetResponse("/models", backendtest.Response{Body: backendtest.ModelList("a", "b", "c")})
	fwd, _ := newForwarder(t, backend.BackendConfig(), WithMaxResponseBytes(16))

	_, err := fwd.ListModels(context.Background())

	var be *BackendError
	if !errors.As(err, &be) || be.Kind != KindDecode {
		t.Fatalf("error = %v, want decode BackendError", err)
	}
}

func TestForwarder_TransportFailure(t *testing.T) {
	backend := backendtest.New(t)

	// Reserve a port and release it so nothing is listening.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	cfg := backend.BackendConfig()
	cfg.Endpoint = "https://" + addr
	fwd, builder := newForwarder(t, cfg)

	_, err = fwd.ListModels(context.Background())

	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("error = %v, want *BackendError", err)
	}
	if be.Kind != KindTransport || be.StatusCode != 0 || be.Cause == nil {
		t.Errorf("got Kind = %q StatusCode = %d Cause = %v, want transport/0/non-nil", be.Kind, be.StatusCode, be.Cause)
	}
	builder.assertAllClosed(t, 1)
}

func TestForwarder_IdentityFailure(t *testing.T) {
	backend := backendtest.New(t)
	cfg := backend.BackendConfig()
	cfg.Auth.KeyFile = cfg.Auth.CertFile

	fwd, _ := newForwarder(t, cfg)
	_, err := fwd.ChatCompletion(context.Background(), chatRequest("hi"))

	var be *BackendError
	if !errors.As(err, &be) || be.Kind != KindIdentity {
		t.Fatalf("error = %v, want identity BackendError", err)
	}
	if be.Op != OpChatCompletions {
		t.Errorf("Op = %q, want %q", be.Op, OpChatCompletions)
	}
	if backend.RequestCount() != 0 {
		t.Error("backend should not be contacted without an identity")
	}
}

func TestForwarder_ContextDeadline(t *testing.T) {
	backend := backendtest.New(t)
	backend.SetResponse("/chat/completions", backendtest.Response{
		Body:  backendtest.ChatCompletion("late", "granite"),
		Delay: 2 * time.Second,
	})
	fwd, builder := newForwarder(t, backend.BackendConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := fwd.ChatCompletion(ctx, chatRequest("hi"))
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("call took %v, want it cut short by the context", elapsed)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
	builder.assertAllClosed(t, 1)
}

func TestForwarder_NilRequest(t *testing.T) {
	backend := backendtest.New(t)
	fwd, builder := newForwarder(t, backend.BackendConfig())

	if _, err := fwd.ChatCompletion(context.Background(), nil); err == nil {
		t.Error("expected error for nil request")
	}
	builder.assertAllClosed(t, 0)
}

func TestForwarder_TracingAndMetrics(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tr, err := tracing.NewWithExporter(&config.TracingConfig{Enabled: true, SampleRatio: 1, ServiceName: "test"}, exporter, sdktrace.WithSyncer(exporter))
	if err != nil {
		t.Fatalf("NewWithExporter() error = %v", err)
	}
	defer tr.Shutdown(context.Background())

	backend := backendtest.New(t)
	backend.EnableEcho()
	backend.SetResponse("/models", backendtest.ErrorResponse(http.StatusBadGateway, "down"))

	recorder := &fakeRecorder{}
	fwd, _ := newForwarder(t, backend.BackendConfig(),
		WithTracerProvider(tr.Provider()),
		WithMetrics(recorder),
	)

	if _, err := fwd.ChatCompletion(context.Background(), chatRequest("traced")); err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}
	if _, err := fwd.ListModels(context.Background()); err == nil {
		t.Fatal("ListModels() expected error")
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].Name != "backend.chat_completions" || spans[1].Name != "backend.list_models" {
		t.Errorf("span names = %q, %q", spans[0].Name, spans[1].Name)
	}

	reqs := backend.Requests()
	if reqs[0].Header.Get("traceparent") == "" {
		t.Error("trace context was not propagated to the backend")
	}

	want := []recordedLatency{
		{OpChatCompletions, "success"},
		{OpListModels, string(KindStatus)},
	}
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.seen) != len(want) {
		t.Fatalf("recorded %v, want %v", recorder.seen, want)
	}
	for i := range want {
		if recorder.seen[i] != want[i] {
			t.Errorf("recorded[%d] = %v, want %v", i, recorder.seen[i], want[i])
		}
	}
}

func TestBackendError_Error(t *testing.T) {
	tests := []struct {
		err  *BackendError
		want string
	}{
		{
			err:  &BackendError{Op: "list_models", Kind: KindStatus, StatusCode: 503, Message: "busy"},
			want: "backend list_models failed (status 503): busy",
		},
		{
			err:  &BackendError{Op: "list_models", Kind: KindDecode, Message: "response is not a JSON object"},
			want: "backend list_models failed (decode): response is not a JSON object",
		},
		{
			err:  &BackendError{Op: "list_models", Kind: KindTransport, Message: "request failed", Cause: errors.New("refused")},
			want: "backend list_models failed (transport): request failed: refused",
		},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
