// Package types defines the request and response bodies exchanged by the proxy.
//
// Request types:
//   - ChatCompletionRequest: body of POST /v1/chat/completions
//   - Message: one message of the conversation history
//
// Response types:
//   - ChatCompletionResponse: the backend's completion, passed through
//   - ModelsResponse: the backend's model list, passed through
//
// Error types:
//   - ErrorEnvelope: {"errors": [{"status", "detail"}]} for 403, 408, 503, 504
//   - DefaultError: {"detail": "..."} for every other failure status
//   - FallbackResponse: the fixed body sent when a request times out
//
// The request and response types mirror the backend's OpenAI-compatible
// schemas. Unknown fields are ignored on decode. Only structure is checked;
// values are for the backend to judge.
package types
