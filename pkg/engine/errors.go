package engine

import "fmt"

// StreamError indicates a transport-level failure while streaming from the
// engine. Tokens delivered before the failure stand; the stream simply
// terminates with this error instead of a done signal.
type StreamError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("engine stream: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("engine stream: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Cause
}

// RequestError indicates the engine rejected the request before any
// streaming happened (bad status, unreachable host).
type RequestError struct {
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("engine request: %s (status %d)", e.Message, e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("engine request: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("engine request: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *RequestError) Unwrap() error {
	return e.Cause
}
