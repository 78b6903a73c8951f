package handlers

import (
	"net/http"

	"emberhq/ember/pkg/metrics"
	"emberhq/ember/pkg/proxy"
)

// MetricsHandler serves GET /v1/admin/metrics: a JSON snapshot of the
// process counters. Prometheus exposition lives separately on /metrics.
type MetricsHandler struct {
	Metrics *metrics.Metrics
}

// NewMetricsHandler creates a metrics snapshot handler.
func NewMetricsHandler(m *metrics.Metrics) *MetricsHandler {
	return &MetricsHandler{Metrics: m}
}

// ServeHTTP implements http.Handler.
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = proxy.WriteJSON(w, http.StatusOK, h.Metrics.Snapshot())
}
