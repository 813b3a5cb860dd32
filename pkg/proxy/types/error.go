package types

// FallbackText is the message returned when a request exceeds its deadline.
const FallbackText = "There was a problem while generating an answer. Please try again."

// ErrorEnvelope is the normalized error shape used for the curated set of
// statuses:
//
//	{"errors": [{"status": 504, "detail": "..."}]}
type ErrorEnvelope struct {
	Errors []ErrorItem `json:"errors"`
}

// ErrorItem is a single entry of an ErrorEnvelope.
type ErrorItem struct {
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// NewErrorEnvelope creates an envelope holding one error.
func NewErrorEnvelope(status int, detail string) *ErrorEnvelope {
	return &ErrorEnvelope{Errors: []ErrorItem{{Status: status, Detail: detail}}}
}

// DefaultError is the shape used for every status outside the curated set:
//
//	{"detail": "..."}
type DefaultError struct {
	Detail string `json:"detail"`
}

// FallbackResponse is the body sent when the deadline fires:
//
//	{"data": {"text": "There was a problem while generating an answer. Please try again."}}
type FallbackResponse struct {
	Data FallbackData `json:"data"`
}

// FallbackData carries the fallback text.
type FallbackData struct {
	Text string `json:"text"`
}

// NewFallbackResponse returns the fixed timeout body.
func NewFallbackResponse() *FallbackResponse {
	return &FallbackResponse{Data: FallbackData{Text: FallbackText}}
}
