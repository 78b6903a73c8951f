package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ChatRequest is the body of POST /v1/chat/completions.
type ChatRequest struct {
	// Prompt is the user prompt. Required.
	Prompt string `json:"prompt"`

	// System is optional system text prepended to the prompt.
	System string `json:"system,omitempty"`

	// Params are optional generation parameters; omitted fields take
	// their defaults.
	Params *ChatParams `json:"params,omitempty"`

	// SessionID optionally names the session the exchange is recorded in.
	SessionID string `json:"sessionId,omitempty"`
}

// ChatParams carries the client's raw generation parameters. Pointers
// distinguish "omitted" from explicit zero values.
type ChatParams struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// CreateSessionRequest is the body of POST /v1/sessions.
type CreateSessionRequest struct {
	Title string `json:"title,omitempty"`
}

// ParseJSONBody decodes a JSON request body into dst, rejecting unknown
// garbage with a descriptive error.
func ParseJSONBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}
	return nil
}
