package handlers

import (
	"net/http"

	"legal-assistant/internal/service"
)

// MetricsHandler exposes query metrics.
type MetricsHandler struct {
	metrics service.MetricsService
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(metrics service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Get returns the current metrics snapshot.
//
// swagger:route GET /api/v1/metrics metrics
func (h *MetricsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(ctx, w, http.StatusOK, h.metrics.Snapshot(ctx))
}

// Reset zeroes all metrics and returns the snapshot taken just before.
//
// swagger:route POST /api/v1/metrics/reset resetMetrics
func (h *MetricsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(ctx, w, http.StatusOK, h.metrics.Reset(ctx))
}
