package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sungwon/heartpost/internal/storage"
)

// RouterConfig carries the dependencies for NewRouter. Composer may be nil
// when no AI drafting backend is configured; the compose route is then not
// registered.
type RouterConfig struct {
	Queries    storage.Querier
	DB         *storage.DB
	Engine     CycleRunner
	Composer   Drafter
	Log        zerolog.Logger
	CronSecret string
}

// NewRouter creates a chi.Mux with all routes, middleware, and handlers configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CorrelationIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(RecoverMiddleware(cfg.Log))
	r.Use(MetricsMiddleware)

	// Health and metrics endpoints (no auth required)
	r.Get("/healthz", HealthzHandler())
	r.Get("/readyz", ReadyzHandler(cfg.DB))
	r.Method("GET", "/metrics", promhttp.Handler())

	// Dispatch trigger, invoked by the external scheduler.
	r.Route("/api/cron", func(r chi.Router) {
		r.Use(SecretAuth(cfg.CronSecret))
		r.Get("/send-scheduled", SendScheduledHandler(cfg.Engine))
	})

	// Authoring routes. These share the pre-shared secret guard; full user
	// authentication lives in the front-end layer, not this service.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SecretAuth(cfg.CronSecret))

		r.Post("/messages", CreateMessageHandler(cfg.Queries))
		r.Get("/messages", ListMessagesHandler(cfg.Queries))
		r.Get("/messages/{id}", GetMessageHandler(cfg.Queries))

		if cfg.Composer != nil {
			r.Post("/compose", ComposeHandler(cfg.Composer))
		}
	})

	return r
}
