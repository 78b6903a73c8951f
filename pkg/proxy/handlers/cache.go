package handlers

import (
	"log/slog"
	"net/http"

	"emberhq/ember/pkg/cache"
	"emberhq/ember/pkg/proxy"
)

// CacheHandler serves the cache admin endpoints.
type CacheHandler struct {
	Cache *cache.Controller
}

// NewCacheHandler creates a cache handler.
func NewCacheHandler(c *cache.Controller) *CacheHandler {
	return &CacheHandler{Cache: c}
}

// Keys serves GET /v1/cache.
func (h *CacheHandler) Keys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.Cache.Keys(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list cache keys", "error", err)
		_ = proxy.WriteError(w, http.StatusInternalServerError, "backend_error", "failed to list cache keys")
		return
	}
	if keys == nil {
		keys = []string{}
	}
	_ = proxy.WriteJSON(w, http.StatusOK, map[string][]string{"keys": keys})
}

// Clear serves DELETE /v1/cache.
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Cache.Clear(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "failed to clear cache", "error", err)
		_ = proxy.WriteError(w, http.StatusInternalServerError, "backend_error", "failed to clear cache")
		return
	}
	_ = proxy.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
