// Package handler provides HTTP handlers for all API endpoints. Handlers
// parse and validate parameters, call one core component and shape the
// JSON response; routing and sync decisions live in the core packages.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hankstank/mlb-data/internal/api/respond"
	"github.com/hankstank/mlb-data/internal/cache"
	"github.com/hankstank/mlb-data/internal/collect"
	"github.com/hankstank/mlb-data/internal/config"
	"github.com/hankstank/mlb-data/internal/hybrid"
	"github.com/hankstank/mlb-data/internal/provider"
	"github.com/hankstank/mlb-data/internal/query"
	"github.com/hankstank/mlb-data/internal/seed"
	"github.com/hankstank/mlb-data/internal/status"
	"github.com/hankstank/mlb-data/internal/store"
)

// Deps are the components the handlers call.
type Deps struct {
	Router    *hybrid.Router
	Tracker   *status.Tracker
	Engine    *seed.Engine
	FanOut    *collect.FanOut
	Processor *collect.Processor
	Cache     *cache.Layer
	Store     store.Historical
	Seasons   config.SeasonBoundary
	Logger    *slog.Logger
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	Deps
}

// New creates a Handler with shared dependencies.
func New(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Handler{Deps: d}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status and the season boundary.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"name":          "MLB Data API",
		"version":       "1.0.0",
		"status":        "running",
		"docs":          "/docs",
		"minSeason":     h.Seasons.MinSeason,
		"currentSeason": h.Seasons.CurrentSeason,
		"dataTypes":     query.DataTypes,
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies historical store connectivity.
// @Summary Database health check
// @Description Verifies every historical store backend is reachable.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		h.Logger.Warn("Database health check failed", "error", err)
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns cache backend reachability and key statistics.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	state := "healthy"
	if err := h.Cache.Ping(r.Context()); err != nil {
		// the API keeps serving uncached
		state = "degraded"
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    state,
		"cache":     h.Cache.Stats(r.Context()),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// writeErr maps core errors onto the error envelope.
func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var (
		yearErr  *config.YearError
		queryErr *query.Error
	)
	switch {
	case errors.As(err, &yearErr):
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_YEAR", yearErr.Error(),
			"valid range depends on the operation; see minSeason/currentSeason at /")
	case errors.As(err, &queryErr):
		respond.WriteError(w, http.StatusBadRequest, "INVALID_PARAMETER", queryErr.Error())
	case errors.Is(err, store.ErrUnknownTable):
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, collect.ErrInvalidPayload):
		respond.WriteError(w, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
	case errors.Is(err, status.ErrFetch):
		h.Logger.Error("Sync status check failed", "path", r.URL.Path, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "SYNC_STATUS_FAILED", "Could not read sync status")
	case provider.IsTransient(err):
		h.Logger.Warn("Upstream unavailable", "path", r.URL.Path, "error", err)
		respond.WriteErrorDetail(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE",
			"The live data provider is unavailable", err.Error())
	default:
		h.Logger.Error("Request failed", "path", r.URL.Path, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
