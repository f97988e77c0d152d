package routes

import (
	"net/http"
	"time"

	"github.com/zatekoja/sisma-inspection/internal/api/handlers"
	"github.com/zatekoja/sisma-inspection/internal/api/middleware"
	"github.com/zatekoja/sisma-inspection/internal/domain/providers"
	"github.com/zatekoja/sisma-inspection/internal/infrastructure/observability"
)

// RateLimit configures the per-client limit on the POST endpoints
type RateLimit struct {
	Cache      providers.CacheProvider
	Requests   int
	Window     time.Duration
	TrustProxy bool
}

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	checklistHandler *handlers.ChecklistHandler
	assistantHandler *handlers.AssistantHandler
	imageHandler     *handlers.ImageHandler

	rateLimit      RateLimit
	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	checklistHandler *handlers.ChecklistHandler,
	assistantHandler *handlers.AssistantHandler,
	imageHandler *handlers.ImageHandler,
	rateLimit RateLimit,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		checklistHandler: checklistHandler,
		assistantHandler: assistantHandler,
		imageHandler:     imageHandler,
		rateLimit:        rateLimit,
		allowedOrigins:   allowedOrigins,
		metrics:          metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	limit := middleware.RateLimitMiddleware(r.rateLimit.Cache, r.rateLimit.Requests, r.rateLimit.Window, r.rateLimit.TrustProxy)

	// Checklist evaluation
	if r.checklistHandler != nil {
		r.mux.Handle("POST /api/checklists/evaluate", limit(http.HandlerFunc(r.checklistHandler.EvaluateChecklist)))
	}

	// Normative assistant
	if r.assistantHandler != nil {
		r.mux.Handle("POST /api/assistant/query", limit(http.HandlerFunc(r.assistantHandler.Query)))
	}

	// Hazard image analysis
	if r.imageHandler != nil {
		r.mux.Handle("POST /api/images/analyze", limit(http.HandlerFunc(r.imageHandler.AnalyzeImage)))
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.Compression(handler)

	// CORS wraps everything so rejected requests still carry headers
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
