package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"rhel-lightspeed/cla-proxy/pkg/telemetry/logging"
)

// RequestIDMiddleware assigns every request an ID and adds it to the context
// and the X-Request-ID response header. An ID supplied by the client is kept.
//
// The ID is forwarded to the backend and attached to every log record
// written with the request context.
//
//	handler = RequestIDMiddleware(handler)
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(logging.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(logging.RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), requestID)))
	})
}
