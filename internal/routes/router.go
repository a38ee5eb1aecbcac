package routes

import (
	"net/http"
	"time"

	"infinite-experiment/keydrop/internal/api"
	"infinite-experiment/keydrop/internal/logging"
	"infinite-experiment/keydrop/internal/metrics"
	"infinite-experiment/keydrop/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// RouterConfig carries the settings the HTTP surface needs from config
type RouterConfig struct {
	AdminAPIKey    string
	AdminID        int64
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func RegisterRoutes(deps *api.Dependencies, metricsReg *metrics.MetricsRegistry, cfg RouterConfig, upSince time.Time) http.Handler {
	// initialize Chi router
	r := chi.NewRouter()

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.MetricsMiddleware(metricsReg))
	r.Use(middleware.Logging)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:8081"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	logging.Info("Router initialized with metrics and logging middleware")

	// health check
	r.Get("/healthCheck", api.HealthCheckHandler(deps, upSince))

	handlers := api.NewHandlers(deps)
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	RegisterAPIRoutes(r, handlers, limiter, cfg)

	return r
}
