package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"rhel-lightspeed/cla-proxy/pkg/proxy"
	"rhel-lightspeed/cla-proxy/pkg/proxy/types"
)

// TimeoutRecorder records requests that exceeded their deadline.
type TimeoutRecorder interface {
	RecordTimeout(route string)
}

// GuardOption configures DeadlineGuard.
type GuardOption func(*guard)

// WithTimeoutRecorder records every timeout against the matched route.
func WithTimeoutRecorder(recorder TimeoutRecorder) GuardOption {
	return func(g *guard) {
		g.recorder = recorder
	}
}

// WithGuardLogger sets the logger used to report timeouts.
func WithGuardLogger(logger *slog.Logger) GuardOption {
	return func(g *guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

type guard struct {
	timeout  time.Duration
	recorder TimeoutRecorder
	logger   *slog.Logger
}

// DeadlineGuard races the wrapped handler against timeout. Exactly one
// response reaches the client:
//
//   - the handler finishes first: its buffered status, headers and body are
//     copied to the client unchanged
//   - the deadline fires first: the client receives 504 with the fixed
//     fallback body and every later write by the handler fails with
//     http.ErrHandlerTimeout
//
// The handler runs in its own goroutine with a context that carries the
// deadline, so it keeps running its deferred cleanup after losing the race.
// A panic in the handler is re-raised on the serving goroutine.
//
//	mux.Handle("POST /v1/chat/completions",
//	    DeadlineGuard(30*time.Second, WithTimeoutRecorder(collector))(chat))
func DeadlineGuard(timeout time.Duration, opts ...GuardOption) func(http.Handler) http.Handler {
	g := &guard{timeout: timeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.serve(next, w, r)
		})
	}
}

func (g *guard) serve(next http.Handler, w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), g.timeout)
	defer cancel()

	bw := &bufferedWriter{header: make(http.Header)}
	done := make(chan struct{})
	panicChan := make(chan any, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				panicChan <- p
			}
		}()
		next.ServeHTTP(bw, r.WithContext(ctx))
		close(done)
	}()

	select {
	case p := <-panicChan:
		panic(p)
	case <-done:
		// A handler that returns only because its context expired has
		// still lost the race.
		if ctx.Err() == nil {
			bw.flush(w)
			return
		}
	case <-ctx.Done():
	}

	g.timedOut(w, r, bw, ctx.Err())
}

func (g *guard) timedOut(w http.ResponseWriter, r *http.Request, bw *bufferedWriter, cause error) {
	bw.mu.Lock()
	bw.timedOut = true
	bw.mu.Unlock()

	if errors.Is(cause, context.DeadlineExceeded) {
		g.logger.WarnContext(r.Context(), "request deadline exceeded",
			"method", r.Method,
			"path", r.URL.Path,
			"timeout", g.timeout.String(),
			"elapsed_ms", elapsedMillis(r.Context()),
		)
		if g.recorder != nil {
			g.recorder.RecordTimeout(r.Pattern)
		}
	} else {
		g.logger.DebugContext(r.Context(), "request cancelled by client",
			"method", r.Method,
			"path", r.URL.Path,
		)
	}

	_ = proxy.WriteJSONResponse(w, http.StatusGatewayTimeout, types.NewFallbackResponse())
}

func elapsedMillis(ctx context.Context) int64 {
	start := GetStartTime(ctx)
	if start.IsZero() {
		return 0
	}
	return time.Since(start).Milliseconds()
}

// bufferedWriter holds the handler's response until the race is decided.
type bufferedWriter struct {
	header http.Header

	mu          sync.Mutex
	buf         bytes.Buffer
	code        int
	wroteHeader bool
	timedOut    bool
}

// flush copies the completed response to w.
func (bw *bufferedWriter) flush(w http.ResponseWriter) {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	dst := w.Header()
	for k, vv := range bw.header {
		dst[k] = vv
	}
	if !bw.wroteHeader {
		bw.code = http.StatusOK
	}
	w.WriteHeader(bw.code)
	_, _ = w.Write(bw.buf.Bytes())
}

func (bw *bufferedWriter) Header() http.Header {
	return bw.header
}

func (bw *bufferedWriter) Write(p []byte) (int, error) {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	if bw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if !bw.wroteHeader {
		bw.writeHeaderLocked(http.StatusOK)
	}
	return bw.buf.Write(p)
}

func (bw *bufferedWriter) WriteHeader(code int) {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	if bw.timedOut || bw.wroteHeader {
		return
	}
	bw.writeHeaderLocked(code)
}

func (bw *bufferedWriter) writeHeaderLocked(code int) {
	bw.wroteHeader = true
	bw.code = code
}
