package middleware

import (
	"net/http"
	"time"
)

// RequestRecorder records completed requests.
type RequestRecorder interface {
	RecordRequest(route, method string, status int, duration time.Duration)
}

// MetricsMiddleware records the route, method, status and duration of every
// request. The route is the ServeMux pattern that matched, so the wrapped
// handler must receive the request unchanged from this middleware; requests
// that matched no pattern are recorded under an empty route.
func MetricsMiddleware(recorder RequestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			recorder.RecordRequest(r.Pattern, r.Method, rw.statusCode, time.Since(start))
		})
	}
}
