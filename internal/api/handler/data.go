package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/hankstank/mlb-data/internal/api/respond"
	"github.com/hankstank/mlb-data/internal/cache"
	"github.com/hankstank/mlb-data/internal/query"
)

// GetData serves one data query through the hybrid router.
// @Summary Get MLB data
// @Description Closed seasons are served from the historical store, the current season and reference data from the live provider. Responses carry the source and cache result.
// @Tags data
// @Produce json
// @Param dataType path string true "Data type" Enums(team-stats, player-stats, standings, roster, schedule, transactions, event-stream, teams)
// @Param season query int false "Season (defaults to the current season)"
// @Param teamId query int false "Team id"
// @Param playerId query int false "Player id"
// @Param stats query string false "Stat group" Enums(hitting, pitching)
// @Param startDate query string false "YYYY-MM-DD"
// @Param endDate query string false "YYYY-MM-DD"
// @Param orderBy query string false "Column or stat to order by"
// @Param direction query string false "asc or desc"
// @Param limit query int false "Maximum rows"
// @Success 200 {object} hybrid.Result
// @Success 304
// @Failure 400 {object} respond.ErrorResponse
// @Failure 503 {object} respond.ErrorResponse
// @Router /api/v1/data/{dataType} [get]
func (h *Handler) GetData(w http.ResponseWriter, r *http.Request) {
	q, err := query.Parse(chi.URLParam(r, "dataType"), r.URL.Query(), h.Seasons)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	res, err := h.Router.GetData(r.Context(), q)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	data, err := json.Marshal(res)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	respond.WriteRouted(w, r, respond.Routed{
		Body:     data,
		ETag:     res.ETag,
		Source:   res.Source,
		TTL:      res.TTL,
		CacheHit: res.CacheHit,
	})
}

// InvalidateCache drops cached responses matching a pattern.
// @Summary Invalidate cache
// @Description Deletes cached responses whose key matches pattern (glob, relative to the cache namespace), e.g. "standings:*" or "*:2023*".
// @Tags admin
// @Produce json
// @Param pattern query string true "Key pattern"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /api/v1/cache [delete]
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	pattern := strings.TrimSpace(r.URL.Query().Get("pattern"))
	if pattern == "" {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_PARAMETER", "pattern query parameter is required")
		return
	}
	n, err := h.Cache.Invalidate(r.Context(), pattern)
	if errors.Is(err, cache.ErrBadPattern) {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_PARAMETER", "Invalid cache pattern", err.Error())
		return
	}
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.Logger.Info("Cache invalidated", "pattern", pattern, "keys", n)
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{"pattern": pattern, "deleted": n})
}
