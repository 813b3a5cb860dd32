package types

import (
	"encoding/json"
	"fmt"
)

// ChatCompletionRequest is the body of POST /v1/chat/completions. It mirrors
// the backend's OpenAI-compatible request and is forwarded unchanged:
// top-level fields without a typed counterpart are kept in Extra and
// written back by MarshalJSON.
type ChatCompletionRequest struct {
	// Model is the ID of the model to use. Optional; the backend picks its
	// default when empty.
	Model string `json:"model,omitempty"`

	// Messages is the conversation history.
	Messages []Message `json:"messages"`

	Temperature      *float64 `json:"temperature,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	N                *int     `json:"n,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	Seed             *int     `json:"seed,omitempty"`

	// Stop is a string or an array of strings.
	Stop json.RawMessage `json:"stop,omitempty"`

	// Stream asks the backend for server-sent events.
	Stream        *bool           `json:"stream,omitempty"`
	StreamOptions json.RawMessage `json:"stream_options,omitempty"`

	Tools      json.RawMessage `json:"tools,omitempty"`
	ToolChoice json.RawMessage `json:"tool_choice,omitempty"`

	Logprobs    *bool           `json:"logprobs,omitempty"`
	TopLogprobs *int            `json:"top_logprobs,omitempty"`
	LogitBias   json.RawMessage `json:"logit_bias,omitempty"`

	// User identifies the end user to the backend.
	User string `json:"user,omitempty"`

	// ResponseFormat is {"type": "json_object"} for JSON mode.
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`

	// Extra holds the remaining top-level fields, keyed by name.
	Extra map[string]json.RawMessage `json:"-"`
}

// chatCompletionFields is the set of JSON names ChatCompletionRequest
// decodes into typed fields.
var chatCompletionFields = map[string]struct{}{
	"model": {}, "messages": {}, "temperature": {}, "max_tokens": {},
	"top_p": {}, "n": {}, "presence_penalty": {}, "frequency_penalty": {},
	"seed": {}, "stop": {}, "stream": {}, "stream_options": {}, "tools": {},
	"tool_choice": {}, "logprobs": {}, "top_logprobs": {}, "logit_bias": {},
	"user": {}, "response_format": {},
}

// chatCompletionRequest has the fields of ChatCompletionRequest without its
// methods.
type chatCompletionRequest ChatCompletionRequest

// UnmarshalJSON decodes the typed fields and collects everything else into
// Extra.
func (r *ChatCompletionRequest) UnmarshalJSON(data []byte) error {
	var typed chatCompletionRequest
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for name := range chatCompletionFields {
		delete(all, name)
	}
	if len(all) == 0 {
		all = nil
	}

	*r = ChatCompletionRequest(typed)
	r.Extra = all
	return nil
}

// MarshalJSON encodes the typed fields and merges Extra back in. A typed
// field wins over an Extra entry of the same name.
func (r ChatCompletionRequest) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(chatCompletionRequest(r))
	if err != nil || len(r.Extra) == 0 {
		return data, err
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for name, value := range r.Extra {
		if _, ok := merged[name]; !ok {
			merged[name] = value
		}
	}
	return json.Marshal(merged)
}

// Message represents a single message in a conversation.
type Message struct {
	// Role is the author of the message ("system", "user", "assistant", or "tool").
	Role string `json:"role"`

	// Content is a string or an array of content parts.
	Content interface{} `json:"content"`

	// Name is the name of the author (optional).
	Name string `json:"name,omitempty"`

	// ToolCalls and ToolCallID carry function calling turns.
	ToolCalls  json.RawMessage `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}

// ResponseFormat specifies the format of the model's output.
type ResponseFormat struct {
	Type string `json:"type"`
}

// Validate checks the structure of the request. Values are left for the
// backend to judge.
func (r *ChatCompletionRequest) Validate() error {
	if len(r.Messages) == 0 {
		return &ValidationError{
			Field:   "messages",
			Message: "messages must contain at least one message",
		}
	}

	for i, msg := range r.Messages {
		if msg.Role == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: "role is required",
			}
		}
	}

	return nil
}

// ValidationError reports a structurally invalid request.
type ValidationError struct {
	// Field is the JSON path of the offending field.
	Field string

	// Message describes what is wrong with it.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %q: %s", e.Field, e.Message)
}
