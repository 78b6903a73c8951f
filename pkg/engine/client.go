// Package engine adapts prompt-completion requests into live token streams
// against the local inference engine's HTTP API.
package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// Client is the inference client: it turns one request into a lazy, finite,
// non-restartable sequence of token events.
type Client interface {
	// Generate opens a streaming generation call. The returned channel
	// yields token events in arrival order and is closed after exactly one
	// terminal event (Done or Err). Cancelling the context abandons the
	// underlying engine request promptly.
	Generate(ctx context.Context, req *Request) (<-chan Event, error)

	// Health checks that the engine is reachable.
	Health(ctx context.Context) error

	// Model returns the configured model identifier.
	Model() string
}

// HTTPClient implements Client over the engine's newline-delimited JSON
// streaming API.
type HTTPClient struct {
	config Config
	logger *slog.Logger

	// client performs generation requests. It carries no timeout:
	// long-running generations must not be killed by the proxy.
	client *http.Client

	// healthClient performs health checks with a short timeout.
	healthClient *http.Client

	// onMalformed, when set, is invoked once per skipped unparseable
	// stream fragment. Used to feed the metrics sink.
	onMalformed func()
}

// NewHTTPClient creates an engine client.
func NewHTTPClient(cfg Config) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if cfg.ConnectTimeout > 0 {
		transport.DialContext = (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext
	}

	return &HTTPClient{
		config: cfg,
		logger: slog.Default().With("component", "engine.client"),
		client: &http.Client{Transport: transport},
		healthClient: &http.Client{
			Transport: transport,
			Timeout:   5 * time.Second,
		},
	}
}

// SetMalformedHook registers a callback invoked for every stream fragment
// skipped as unparseable.
func (c *HTTPClient) SetMalformedHook(fn func()) {
	c.onMalformed = fn
}

// Model returns the configured model identifier.
func (c *HTTPClient) Model() string {
	return c.config.Model
}

// Generate opens the streaming generation call and parses the engine's
// newline-delimited JSON fragments into token events.
//
// Parsing is best-effort: a line that fails to parse is skipped, not fatal.
// The stream terminates on the engine's explicit done flag; end-of-stream
// without it is reported as a stream error.
func (c *HTTPClient) Generate(ctx context.Context, req *Request) (<-chan Event, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.config.Model,
		Prompt: req.Prompt,
		Stream: true,
		Options: generateOptions{
			Temperature: req.Params.Temperature,
			TopP:        req.Params.TopP,
			NumPredict:  req.Params.MaxTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generate request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/api/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &RequestError{Message: "engine unreachable", Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &RequestError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(detail)),
		}
	}

	events := make(chan Event, 16)
	go c.readStream(ctx, resp.Body, events)

	return events, nil
}

// readStream parses the response body line by line and forwards events.
// It always sends exactly one terminal event before closing the channel.
func (c *HTTPClient) readStream(ctx context.Context, body io.ReadCloser, events chan<- Event) {
	defer close(events)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			c.emit(ctx, events, Event{Err: &StreamError{Message: "cancelled", Cause: ctx.Err()}})
			return
		default:
		}

		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var frag generateFragment
		if err := json.Unmarshal(line, &frag); err != nil {
			// Best-effort parse: a fragment split across network chunks
			// produces an unparseable line. Skip it, count it, move on.
			c.logger.Debug("skipping malformed engine fragment", "error", err)
			if c.onMalformed != nil {
				c.onMalformed()
			}
			continue
		}

		if frag.Response != "" {
			if !c.emit(ctx, events, Event{Token: frag.Response}) {
				return
			}
		}

		if frag.Done {
			c.emit(ctx, events, Event{Done: true})
			return
		}
	}

	if err := scanner.Err(); err != nil {
		c.emit(ctx, events, Event{Err: &StreamError{Message: "failed to read stream", Cause: err}})
		return
	}

	// The engine signals completion in-band; a bare EOF means the stream
	// was cut short.
	c.emit(ctx, events, Event{Err: &StreamError{Message: "stream ended without completion signal"}})
}

// emit sends an event unless the consumer is gone. Returns false when the
// context was cancelled before the send completed.
func (c *HTTPClient) emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Health checks engine reachability via its version endpoint.
func (c *HTTPClient) Health(ctx context.Context) error {
	url := strings.TrimRight(c.config.BaseURL, "/") + "/api/version"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}

	resp, err := c.healthClient.Do(req)
	if err != nil {
		return &RequestError{Message: "engine unreachable", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &RequestError{StatusCode: resp.StatusCode, Message: "health check failed"}
	}

	var hr healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return fmt.Errorf("failed to decode health response: %w", err)
	}

	return nil
}
