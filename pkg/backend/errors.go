package backend

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a backend failure.
type ErrorKind string

const (
	// KindStatus means the backend answered with a non-2xx status.
	KindStatus ErrorKind = "status"

	// KindTransport covers connection, TLS handshake, proxy and
	// cancellation failures.
	KindTransport ErrorKind = "transport"

	// KindIdentity means the client key pair could not be loaded.
	KindIdentity ErrorKind = "identity"

	// KindDecode means the backend answered 2xx with a body that is not
	// the expected JSON document.
	KindDecode ErrorKind = "decode"
)

// BackendError describes a failed backend call. StatusCode is set only for
// KindStatus.
type BackendError struct {
	// Op is the backend operation, e.g. "chat_completions".
	Op string

	Kind ErrorKind

	// StatusCode is the backend's HTTP status (0 if not applicable)
	StatusCode int

	// Message is the backend's error detail, or a description of the failure
	Message string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("backend %s failed (status %d): %s", e.Op, e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("backend %s failed (%s): %s: %v", e.Op, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("backend %s failed (%s): %s", e.Op, e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *BackendError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the backend status carried by err, if any.
func StatusCode(err error) (int, bool) {
	var be *BackendError
	if errors.As(err, &be) && be.StatusCode > 0 {
		return be.StatusCode, true
	}
	return 0, false
}

func kindOf(err error) ErrorKind {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindTransport
}
