package types

// ChatCompletionResponse is the backend's answer to a chat completion,
// returned to the caller unchanged.
type ChatCompletionResponse struct {
	// ID is a unique identifier for this completion.
	ID string `json:"id,omitempty"`

	// Object is "chat.completion".
	Object string `json:"object,omitempty"`

	// Created is the Unix timestamp when the completion was created.
	Created int64 `json:"created,omitempty"`

	// Model is the model used for the completion.
	Model string `json:"model,omitempty"`

	// Choices holds the generated completions. A response without it does
	// not match the schema.
	Choices []Choice `json:"choices"`

	// Usage contains token usage statistics.
	Usage *Usage `json:"usage,omitempty"`

	// SystemFingerprint identifies the backend configuration.
	SystemFingerprint string `json:"system_fingerprint,omitempty"`
}

// Choice represents a single completion choice.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ModelsResponse is the body of GET /v1/models.
type ModelsResponse struct {
	// Object is "list".
	Object string `json:"object,omitempty"`

	// Data lists the available models. A response without it does not
	// match the schema.
	Data []Model `json:"data"`
}

// Model describes one model offered by the backend.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	Created int64  `json:"created,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}
