package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"emberhq/ember/pkg/cache"
	"emberhq/ember/pkg/engine"
	"emberhq/ember/pkg/metrics"
	"emberhq/ember/pkg/proxy"
	"emberhq/ember/pkg/proxy/middleware"
	"emberhq/ember/pkg/session"
	"emberhq/ember/pkg/store"
)

// ChatHandler serves POST /v1/chat/completions: the streaming
// chat-completion pipeline. Admission control has already run by the time
// this handler executes.
type ChatHandler struct {
	Ledger  *session.Ledger
	Cache   *cache.Controller
	Engine  engine.Client
	Metrics *metrics.Metrics
}

// NewChatHandler creates a chat handler.
func NewChatHandler(l *session.Ledger, c *cache.Controller, e engine.Client, m *metrics.Metrics) *ChatHandler {
	return &ChatHandler{Ledger: l, Cache: c, Engine: e, Metrics: m}
}

// ServeHTTP implements http.Handler.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	startTime := time.Now()

	var req proxy.ChatRequest
	if err := proxy.ParseJSONBody(r, &req); err != nil {
		h.Metrics.IncErrors()
		_ = proxy.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		h.Metrics.IncErrors()
		_ = proxy.WriteError(w, http.StatusBadRequest, "invalid_request", "prompt is required")
		return
	}

	// Record the user turn before anything else; an unknown session id is
	// a silent no-op inside the ledger.
	if err := h.Ledger.Append(ctx, req.SessionID, store.RoleUser, req.Prompt); err != nil {
		h.Metrics.IncErrors()
		slog.ErrorContext(ctx, "failed to record user turn",
			"request_id", requestID,
			"session_id", req.SessionID,
			"error", err,
		)
		_ = proxy.WriteError(w, http.StatusInternalServerError, "backend_error", "failed to record session turn")
		return
	}

	var temperature, topP *float64
	var maxTokens *int
	if req.Params != nil {
		temperature = req.Params.Temperature
		topP = req.Params.TopP
		maxTokens = req.Params.MaxTokens
	}
	params := engine.ResolveParams(temperature, topP, maxTokens)

	key := cache.DeriveKey(req.Prompt, req.System, params)

	if entry, ok := h.Cache.Lookup(ctx, key); ok {
		h.replay(ctx, w, requestID, req.SessionID, entry)
		return
	}

	h.generate(ctx, w, requestID, key, &req, params, startTime)
}

// replay serves a cache hit: the stored token sequence is emitted in
// stored order with no call to the inference engine.
func (h *ChatHandler) replay(ctx context.Context, w http.ResponseWriter, requestID, sessionID string, entry *store.CacheEntry) {
	emitter := proxy.NewStreamEmitter(w)

	for _, token := range entry.Tokens {
		if err := emitter.Token(token); err != nil {
			slog.WarnContext(ctx, "client disconnected during cache replay",
				"request_id", requestID,
				"key", entry.Key,
			)
			return
		}
	}

	if err := h.Ledger.Append(ctx, sessionID, store.RoleAssistant, strings.Join(entry.Tokens, "")); err != nil {
		slog.ErrorContext(ctx, "failed to record assistant turn",
			"request_id", requestID,
			"session_id", sessionID,
			"error", err,
		)
	}

	_ = emitter.Done()

	slog.InfoContext(ctx, "chat completion served from cache",
		"request_id", requestID,
		"key", entry.Key,
		"tokens", len(entry.Tokens),
	)
}

// generate serves a cache miss: tokens stream live from the engine to the
// client while being accumulated, and only a successful completion signal
// commits the result to the cache and the session transcript.
func (h *ChatHandler) generate(ctx context.Context, w http.ResponseWriter, requestID, key string, req *proxy.ChatRequest, params engine.Params, startTime time.Time) {
	events, err := h.Engine.Generate(ctx, &engine.Request{
		Prompt: engine.EffectivePrompt(req.System, req.Prompt),
		Params: params,
	})
	if err != nil {
		// Headers are not sent yet, so this failure can still be a
		// synchronous error response.
		h.Metrics.IncErrors()
		slog.ErrorContext(ctx, "engine request failed",
			"request_id", requestID,
			"error", err,
		)
		_ = proxy.WriteError(w, http.StatusInternalServerError, "backend_error", err.Error())
		return
	}

	emitter := proxy.NewStreamEmitter(w)

	var tokens []string
	var firstTokenTime time.Time

	for ev := range events {
		if ev.Err != nil {
			// Partial output is discarded: no cache entry, no
			// assistant turn.
			h.Metrics.IncErrors()
			slog.ErrorContext(ctx, "engine stream failed",
				"request_id", requestID,
				"tokens_delivered", len(tokens),
				"error", ev.Err,
			)
			_ = emitter.Error("stream error")
			return
		}

		if ev.Done {
			h.commit(ctx, requestID, key, req.SessionID, tokens)
			_ = emitter.Done()

			var firstTokenLatency time.Duration
			if !firstTokenTime.IsZero() {
				firstTokenLatency = firstTokenTime.Sub(startTime)
			}
			slog.InfoContext(ctx, "chat completion streamed",
				"request_id", requestID,
				"tokens", len(tokens),
				"first_token_latency_ms", firstTokenLatency.Milliseconds(),
				"total_latency_ms", time.Since(startTime).Milliseconds(),
			)
			return
		}

		if len(tokens) == 0 {
			firstTokenTime = time.Now()
		}

		if err := emitter.Token(ev.Token); err != nil {
			slog.WarnContext(ctx, "client disconnected during streaming",
				"request_id", requestID,
				"tokens_delivered", len(tokens),
			)
			return
		}
		tokens = append(tokens, ev.Token)
		h.Metrics.AddTokensStreamed(1)

		select {
		case <-ctx.Done():
			// Client gone. The engine call is abandoned via the shared
			// context; nothing is committed.
			slog.WarnContext(ctx, "client disconnected during streaming",
				"request_id", requestID,
				"tokens_delivered", len(tokens),
			)
			return
		default:
		}
	}

	// The events channel closed without a terminal event; treat it as a
	// stream error unless the terminal event was already written.
	if !emitter.Terminated() {
		h.Metrics.IncErrors()
		_ = emitter.Error("stream ended unexpectedly")
	}
}

// commit records a successful generation in the cache and the session
// transcript. Failures are logged but do not fail the stream: the client
// already has the full response.
func (h *ChatHandler) commit(ctx context.Context, requestID, key, sessionID string, tokens []string) {
	if err := h.Cache.Commit(ctx, key, tokens); err != nil {
		slog.ErrorContext(ctx, "failed to write cache entry",
			"request_id", requestID,
			"key", key,
			"error", err,
		)
	}

	if err := h.Ledger.Append(ctx, sessionID, store.RoleAssistant, strings.Join(tokens, "")); err != nil {
		slog.ErrorContext(ctx, "failed to record assistant turn",
			"request_id", requestID,
			"session_id", sessionID,
			"error", err,
		)
	}
}
