// Package backendtest runs a fake inference backend for tests. The server
// speaks TLS, requires a client certificate from a testcerts bundle, and
// answers per-path canned responses.
package backendtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"rhel-lightspeed/cla-proxy/internal/testcerts"
	"rhel-lightspeed/cla-proxy/pkg/config"
)

// Response defines a canned response.
type Response struct {
	StatusCode int

	// Body is written as-is when it is a string or []byte, and JSON-encoded
	// otherwise.
	Body interface{}

	// Delay is applied before answering. It ends early if the client goes away.
	Delay time.Duration

	Headers map[string]string
}

// Request is a request the server received.
type Request struct {
	Method     string
	Path       string
	Header     http.Header
	Body       []byte
	ClientName string
}

// Server is a fake backend behind mutual TLS.
type Server struct {
	Certs *testcerts.Bundle

	server    *httptest.Server
	responses map[string]Response
	echo      bool
	requests  []Request
	mu        sync.Mutex
}

// New starts a server with a fresh certificate bundle. It is closed when the
// test ends.
func New(t testing.TB) *Server {
	t.Helper()
	return NewWithCerts(t, testcerts.Generate(t, testcerts.Options{}))
}

// NewWithCerts starts a server that trusts clients signed by certs' CA.
func NewWithCerts(t testing.TB, certs *testcerts.Bundle) *Server {
	t.Helper()

	s := &Server{
		Certs:     certs,
		responses: make(map[string]Response),
	}

	s.server = httptest.NewUnstartedServer(http.HandlerFunc(s.handler))
	s.server.TLS = certs.ServerTLSConfig()
	s.server.StartTLS()
	t.Cleanup(s.server.Close)

	return s
}

// URL returns the server's base URL.
func (s *Server) URL() string {
	return s.server.URL
}

// BackendConfig returns a [backend] section pointing at the server with the
// bundle's client identity.
func (s *Server) BackendConfig() config.BackendConfig {
	return config.BackendConfig{
		Endpoint: s.server.URL,
		Timeout:  5,
		Auth: config.AuthConfig{
			CertFile: s.Certs.CertFile,
			KeyFile:  s.Certs.KeyFile,
			CAFile:   s.Certs.CAFile,
		},
	}
}

// SetResponse sets the canned response for path.
func (s *Server) SetResponse(path string, response Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.responses[path] = response
}

// EnableEcho makes /chat/completions answer with the last message of the
// request as the assistant's reply, unless a canned response is set.
func (s *Server) EnableEcho() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.echo = true
}

// Requests returns a copy of the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestCount returns the number of requests received.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.requests)
}

func (s *Server) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	rec := Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	}
	if r.TLS != nil && len(r.TLS.PeerCertificates) > 0 {
		rec.ClientName = r.TLS.PeerCertificates[0].Subject.CommonName
	}

	s.mu.Lock()
	s.requests = append(s.requests, rec)
	response, ok := s.responses[r.URL.Path]
	echo := s.echo
	s.mu.Unlock()

	if !ok && echo && r.URL.Path == "/chat/completions" {
		response, ok = echoResponse(body), true
	}
	if !ok {
		writeBody(w, http.StatusNotFound, ErrorBody("Not Found"))
		return
	}

	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}
	writeBody(w, response.StatusCode, response.Body)
}

func writeBody(w http.ResponseWriter, status int, body interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	switch v := body.(type) {
	case nil:
		w.WriteHeader(status)
	case string:
		w.WriteHeader(status)
		_, _ = io.WriteString(w, v)
	case []byte:
		w.WriteHeader(status)
		_, _ = w.Write(v)
	default:
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
}

func echoResponse(body []byte) Response {
	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Content interface{} `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(body, &req); err != nil || len(req.Messages) == 0 {
		return Response{StatusCode: http.StatusUnprocessableEntity, Body: ErrorBody("invalid request")}
	}

	content, _ := req.Messages[len(req.Messages)-1].Content.(string)
	return Response{StatusCode: http.StatusOK, Body: ChatCompletion(content, req.Model)}
}

// ChatCompletion creates a chat completion body with one assistant choice.
func ChatCompletion(content, model string) map[string]interface{} {
	return map[string]interface{}{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]interface{}{
			{
				"index": 0,
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]interface{}{
			"prompt_tokens":     10,
			"completion_tokens": 20,
			"total_tokens":      30,
		},
	}
}

// ModelList creates a /models body listing ids.
func ModelList(ids ...string) map[string]interface{} {
	data := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		data = append(data, map[string]interface{}{
			"id":       id,
			"object":   "model",
			"created":  1700000000,
			"owned_by": "rhel-lightspeed",
		})
	}
	return map[string]interface{}{"object": "list", "data": data}
}

// ErrorBody creates a {"detail": ...} error body.
func ErrorBody(detail string) map[string]interface{} {
	return map[string]interface{}{"detail": detail}
}

// ErrorResponse creates a canned error response with a detail body.
func ErrorResponse(statusCode int, detail string) Response {
	return Response{StatusCode: statusCode, Body: ErrorBody(detail)}
}
