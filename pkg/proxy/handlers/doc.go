// Package handlers provides the HTTP endpoint handlers of the proxy.
//
//   - HealthHandler: GET /health, liveness, always 200 with an empty body
//   - ReadyHandler: GET /ready, 200 {"status":"ready"} when the client
//     identity is usable, 503 envelope otherwise
//   - ChatHandler: POST /v1/chat/completions, forwarded to the backend
//   - ModelsHandler: GET /v1/models, forwarded to the backend
//
// The forwarding handlers pass the backend's JSON through without
// reinterpreting it. Failures are written with proxy.WriteError, so the
// curated statuses share the {"errors": [...]} envelope.
package handlers
