// Package proxy holds the request and error plumbing shared by the HTTP
// handlers.
//
// # Errors
//
// Handlers return errors as *HTTPError and write them with WriteError. A
// curated set of statuses (403, 408, 503, 504) is answered with a uniform
// envelope:
//
//	{"errors": [{"status": 503, "detail": "backend unavailable"}]}
//
// Every other status keeps the default body:
//
//	{"detail": "Unauthorized"}
//
// Errors that are not *HTTPError become 500 {"detail": "Internal Server Error"}.
// FromBackendError maps forwarding failures: a backend status is passed
// through with the backend's detail, anything else is a 500.
//
// # Requests
//
// ParseChatCompletionRequest enforces the 10MB body limit and answers 400
// for malformed JSON and 422 for structurally invalid requests.
//
// # Subpackages
//
//   - handlers: the HTTP endpoints
//   - middleware: request ID, logging, recovery, metrics and the deadline guard
//   - types: request, response and error bodies
package proxy
