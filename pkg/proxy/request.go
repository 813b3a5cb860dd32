package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"rhel-lightspeed/cla-proxy/pkg/proxy/types"
)

// MaxRequestBodySize is the maximum allowed request body size (10MB).
const MaxRequestBodySize = 10 * 1024 * 1024

// ParseChatCompletionRequest decodes and validates the body of a chat
// completion request. Failures are returned as *HTTPError:
//   - 413 when the body exceeds MaxRequestBodySize
//   - 400 when the body is not valid JSON
//   - 422 when the request is structurally invalid
//
// Unknown fields are ignored.
func ParseChatCompletionRequest(r *http.Request) (*types.ChatCompletionRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("failed to read request body: %v", err))
	}

	if len(body) > MaxRequestBodySize {
		return nil, NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request body exceeds maximum size of %d bytes", MaxRequestBodySize))
	}

	var req types.ChatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, NewHTTPError(http.StatusUnprocessableEntity,
				fmt.Sprintf("invalid type for field %q: expected %s", typeErr.Field, typeErr.Type))
		}
		return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
	}

	if err := req.Validate(); err != nil {
		var valErr *types.ValidationError
		if errors.As(err, &valErr) {
			return nil, NewHTTPError(http.StatusUnprocessableEntity, valErr.Error())
		}
		return nil, err
	}

	return &req, nil
}
