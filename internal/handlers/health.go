package handlers

import (
	"net/http"
	"time"

	"legal-assistant/internal/contextutil"
	"legal-assistant/internal/service"
)

// Version is reported by the info and health endpoints.
const Version = "1.0.0"

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	health service.HealthService
	prefix string
	now    func() time.Time
}

// NewHealthHandler creates a new HealthHandler. prefix is the API route prefix
// listed by the info endpoint.
func NewHealthHandler(health service.HealthService, prefix string) *HealthHandler {
	return &HealthHandler{health: health, prefix: prefix, now: time.Now}
}

// HealthResponse represents the liveness response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// Always "healthy" when the process answers
	Status string `json:"status"`

	// Application version
	Version string `json:"version"`

	// Timestamp of the check
	Timestamp string `json:"timestamp"`
}

// ChatHealthResponse represents the dependency health response.
//
// swagger:model ChatHealthResponse
type ChatHealthResponse struct {
	// Overall health status: "healthy" or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the check
	Timestamp string `json:"timestamp"`

	// Individual dependency results
	Checks service.HealthReport `json:"checks"`
}

// InfoResponse describes the API.
type InfoResponse struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// Info lists the available endpoints.
//
// swagger:route GET / apiInfo
func (h *HealthHandler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, InfoResponse{
		Name:    "Polish Legal Assistant API",
		Version: Version,
		Endpoints: map[string]string{
			"health":        "GET /health",
			"chat":          "POST " + h.prefix + "/chat",
			"chat_health":   "GET " + h.prefix + "/chat/health",
			"metrics":       "GET " + h.prefix + "/metrics",
			"metrics_reset": "POST " + h.prefix + "/metrics/reset",
		},
	})
}

// Live reports that the process is up without touching dependencies.
//
// swagger:route GET /health healthCheck
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

// Chat checks the vector store and the chat model.
// Returns 200 OK if healthy, 503 Service Unavailable otherwise.
//
// swagger:route GET /api/v1/chat/health chatHealth
func (h *HealthHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report := h.health.Check(ctx)
	status, code := "healthy", http.StatusOK
	if !report.OverallHealthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "dependencies unhealthy", "errors", report.Errors)
	}

	writeJSON(ctx, w, code, ChatHealthResponse{
		Status:    status,
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Checks:    report,
	})
}
