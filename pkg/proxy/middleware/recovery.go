package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"rhel-lightspeed/cla-proxy/pkg/proxy"
)

// ErrorRecorder records the error responses written by the middleware.
type ErrorRecorder interface {
	RecordError(status int, shape string)
}

var errPanic = errors.New("panic in handler")

// RecoveryMiddleware recovers from panics in HTTP handlers and answers with
// 500 {"detail": "Internal Server Error"}. The panic and its stack are
// logged; neither is exposed to the client.
//
// recorder may be nil.
//
//	handler = RecoveryMiddleware(logger, collector)(handler)
func RecoveryMiddleware(logger *slog.Logger, recorder ErrorRecorder) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.ErrorContext(r.Context(), "panic in handler",
						"error", err,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)

					status, shape := proxy.WriteError(w, errPanic)
					if recorder != nil {
						recorder.RecordError(status, shape)
					}
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
