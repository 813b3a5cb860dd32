package proxy

import (
	"errors"
	"fmt"
	"net/http"

	"rhel-lightspeed/cla-proxy/pkg/backend"
	"rhel-lightspeed/cla-proxy/pkg/proxy/types"
)

// Response body shapes, as reported to metrics.
const (
	ShapeEnvelope = "envelope"
	ShapeDefault  = "default"
)

// normalizedStatuses are answered with the {"errors": [...]} envelope. Every
// other status keeps the default {"detail": ...} body.
var normalizedStatuses = map[int]bool{
	http.StatusForbidden:          true,
	http.StatusRequestTimeout:     true,
	http.StatusServiceUnavailable: true,
	http.StatusGatewayTimeout:     true,
}

// IsNormalized reports whether status is answered with the envelope.
func IsNormalized(status int) bool {
	return normalizedStatuses[status]
}

// HTTPError is an error that carries the status and detail to answer with.
type HTTPError struct {
	Status int
	Detail string
}

// NewHTTPError creates an HTTPError. An empty detail becomes the status text.
func NewHTTPError(status int, detail string) *HTTPError {
	if detail == "" {
		detail = http.StatusText(status)
	}
	return &HTTPError{Status: status, Detail: detail}
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Detail)
}

// ErrorBody returns the status and body err should be answered with, and
// the shape of that body. Anything that is not an *HTTPError is an internal
// error and its message is not exposed.
func ErrorBody(err error) (int, interface{}, string) {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		status := http.StatusInternalServerError
		return status, &types.DefaultError{Detail: http.StatusText(status)}, ShapeDefault
	}

	if IsNormalized(httpErr.Status) {
		return httpErr.Status, types.NewErrorEnvelope(httpErr.Status, httpErr.Detail), ShapeEnvelope
	}
	return httpErr.Status, &types.DefaultError{Detail: httpErr.Detail}, ShapeDefault
}

// WriteError answers with the normalized form of err and returns the status
// and shape written.
//
//	if err != nil {
//	    status, shape := proxy.WriteError(w, err)
//	    metrics.RecordError(status, shape)
//	    return
//	}
func WriteError(w http.ResponseWriter, err error) (int, string) {
	status, body, shape := ErrorBody(err)
	_ = WriteJSONResponse(w, status, body)
	return status, shape
}

// FromBackendError converts a forwarding failure into the HTTPError the
// caller receives. A backend status propagates with the backend's detail;
// failures without a status become 500.
func FromBackendError(err error) error {
	if err == nil {
		return nil
	}

	var be *backend.BackendError
	if !errors.As(err, &be) {
		return err
	}

	if be.StatusCode > 0 {
		return NewHTTPError(be.StatusCode, be.Message)
	}

	switch be.Kind {
	case backend.KindIdentity:
		return NewHTTPError(http.StatusInternalServerError, "Client identity is unavailable")
	case backend.KindDecode:
		return NewHTTPError(http.StatusInternalServerError, "Invalid response from backend")
	default:
		return NewHTTPError(http.StatusInternalServerError, "Backend request failed")
	}
}
