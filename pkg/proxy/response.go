package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrStreamClosed is returned when an event is written after the terminal
// event of a stream.
var ErrStreamClosed = errors.New("stream already terminated")

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}
	return nil
}

// WriteError writes a JSON error response {"error": code} with an optional
// human-readable detail field.
func WriteError(w http.ResponseWriter, statusCode int, code, detail string) error {
	body := map[string]string{"error": code}
	if detail != "" {
		body["detail"] = detail
	}
	return WriteJSON(w, statusCode, body)
}

// StreamEmitter serializes token events to the client connection as
// server-sent events, in strict arrival order.
//
// Three event kinds exist: token, done, and error. Exactly one terminal
// event (done or error) is emitted per stream; every write after the
// terminal event is refused with ErrStreamClosed.
type StreamEmitter struct {
	w        http.ResponseWriter
	flusher  http.Flusher
	terminal bool
}

// NewStreamEmitter sets the event-stream headers, flushes them, and
// returns an emitter bound to the connection. The headers disable
// intermediary buffering so tokens reach the client as they arrive.
func NewStreamEmitter(w http.ResponseWriter) *StreamEmitter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	flusher, _ := w.(http.Flusher)

	e := &StreamEmitter{w: w, flusher: flusher}
	w.WriteHeader(http.StatusOK)
	e.flush()

	return e
}

// Token emits one text fragment.
func (e *StreamEmitter) Token(token string) error {
	if e.terminal {
		return ErrStreamClosed
	}
	return e.writeEvent("token", map[string]string{"token": token})
}

// Done emits the successful terminal event.
func (e *StreamEmitter) Done() error {
	if e.terminal {
		return ErrStreamClosed
	}
	e.terminal = true
	return e.writeEvent("done", map[string]string{})
}

// Error emits the failing terminal event with a message.
func (e *StreamEmitter) Error(message string) error {
	if e.terminal {
		return ErrStreamClosed
	}
	e.terminal = true
	return e.writeEvent("error", map[string]string{"message": message})
}

// Terminated reports whether the terminal event has been emitted.
func (e *StreamEmitter) Terminated() bool {
	return e.terminal
}

// writeEvent writes one SSE frame and flushes it.
func (e *StreamEmitter) writeEvent(event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event, err)
	}

	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return fmt.Errorf("failed to write %s event: %w", event, err)
	}

	e.flush()
	return nil
}

func (e *StreamEmitter) flush() {
	if e.flusher != nil {
		e.flusher.Flush()
	}
}
