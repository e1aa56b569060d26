package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"legal-assistant/internal/handlers"
	"legal-assistant/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	ChatService    service.ChatService
	MetricsService service.MetricsService
	HealthService  service.HealthService
	// APIPrefix is where versioned routes are mounted, e.g. "/api/v1".
	APIPrefix   string
	CORSOrigins []string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS(deps.CORSOrigins))

	prefix := deps.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}

	chatHandler := handlers.NewChatHandler(deps.ChatService)
	metricsHandler := handlers.NewMetricsHandler(deps.MetricsService)
	healthHandler := handlers.NewHealthHandler(deps.HealthService, prefix)

	r.Get("/", healthHandler.Info)
	r.Get("/health", healthHandler.Live)

	r.Route(prefix, func(r chi.Router) {
		r.Handle("/chat", chatHandler)
		r.Get("/chat/health", healthHandler.Chat)
		r.Get("/metrics", metricsHandler.Get)
		r.Post("/metrics/reset", metricsHandler.Reset)
	})

	return r
}
