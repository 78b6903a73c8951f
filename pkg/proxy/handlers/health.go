package handlers

import (
	"net/http"

	"emberhq/ember/pkg/engine"
	"emberhq/ember/pkg/proxy"
)

// HealthHandler serves GET /v1/health, the liveness probe.
type HealthHandler struct {
	Engine engine.Client
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(e engine.Client) *HealthHandler {
	return &HealthHandler{Engine: e}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = proxy.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"model":  h.Engine.Model(),
	})
}

// ReadyHandler serves GET /v1/ready: ready only when the inference engine
// is reachable.
type ReadyHandler struct {
	Engine engine.Client
}

// NewReadyHandler creates a readiness handler.
func NewReadyHandler(e engine.Client) *ReadyHandler {
	return &ReadyHandler{Engine: e}
}

// ServeHTTP implements http.Handler.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Health(r.Context()); err != nil {
		_ = proxy.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"detail": err.Error(),
		})
		return
	}
	_ = proxy.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
