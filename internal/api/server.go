package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/hankstank/mlb-data/internal/api/handler"
	"github.com/hankstank/mlb-data/internal/config"
	"github.com/hankstank/mlb-data/internal/metrics"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(deps handler.Deps, m *metrics.Metrics, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "X-Data-Source", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	h := handler.New(deps)

	// --- Routes ---

	r.Get("/", h.Root)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	if cfg.MetricsEnabled {
		r.Handle("/metrics", m.Handler())
	}

	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	// Queue deliveries are not rate limited; the queue paces itself.
	r.Post("/tasks/process-month", h.ProcessMonth)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimitEnabled {
			r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}

		r.Get("/data/{dataType}", h.GetData)

		r.Route("/sync", func(r chi.Router) {
			r.Get("/status", h.GetSyncStatus)
			r.Post("/missing", h.SyncMissing)
			r.Post("/historical", h.SyncHistorical)
			r.Post("/{table}", h.SyncTable)
		})

		r.Post("/collect/season", h.CollectSeason)
		r.Delete("/cache", h.InvalidateCache)
	})

	return r
}
