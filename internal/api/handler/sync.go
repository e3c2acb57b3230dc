package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hankstank/mlb-data/internal/api/respond"
	"github.com/hankstank/mlb-data/internal/config"
	"github.com/hankstank/mlb-data/internal/query"
	"github.com/hankstank/mlb-data/internal/seed"
)

// tableNames maps the short names accepted in URLs to historical tables.
var tableNames = map[string]string{
	"teams":        config.TeamsTable,
	"team-stats":   config.TeamStatsTable,
	"player-stats": config.PlayerStatsTable,
	"standings":    config.StandingsTable,
	"rosters":      config.RostersTable,
	"games":        config.GamesTable,
}

func resolveTable(name string) string {
	if t, ok := tableNames[name]; ok {
		return t
	}
	return name
}

// GetSyncStatus reports per-table historical completeness.
// @Summary Sync status
// @Description One record per historical table: years present, missing and partial, counts per year.
// @Tags sync
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} respond.ErrorResponse
// @Router /api/v1/sync/status [get]
func (h *Handler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	records, err := h.Tracker.GetSyncStatus(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	complete := true
	for _, rec := range records {
		complete = complete && rec.IsComplete
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"tables":        records,
		"isComplete":    complete,
		"minSeason":     h.Seasons.MinSeason,
		"currentSeason": h.Seasons.CurrentSeason,
	})
}

// SyncTable syncs one closed season of one table and waits for the result.
// @Summary Sync one table
// @Tags sync
// @Produce json
// @Param table path string true "Table" Enums(teams, team-stats, player-stats, standings, rosters, games)
// @Param year query int true "Closed season"
// @Param forceRefresh query bool false "Refetch even when the year is complete"
// @Success 200 {object} seed.Result
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/sync/{table} [post]
func (h *Handler) SyncTable(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r, "year")
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	res, err := h.Engine.Sync(r.Context(), resolveTable(chi.URLParam(r, "table")), year, boolParam(r, "forceRefresh"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, res)
}

// SyncMissing fills every gap (or the requested years and tables) and
// returns the per-operation summary.
// @Summary Sync missing data
// @Tags sync
// @Produce json
// @Param years query string false "Comma-separated closed seasons"
// @Param tables query string false "Comma-separated tables"
// @Param forceRefresh query bool false "Refetch complete years"
// @Success 200 {object} seed.Summary
// @Failure 400 {object} respond.ErrorResponse
// @Router /api/v1/sync/missing [post]
func (h *Handler) SyncMissing(w http.ResponseWriter, r *http.Request) {
	opts, err := syncOptions(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	results, err := h.Engine.SyncMissingData(r.Context(), opts)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, seed.Summarize(results))
}

// SyncHistorical submits a background sync and returns its ticket.
// @Summary Trigger historical sync
// @Description Starts a background sync of one closed season and returns immediately. Poll /sync/status for completion.
// @Tags sync
// @Produce json
// @Param season query int true "Closed season"
// @Param dataTypes query string false "Comma-separated data types"
// @Success 202 {object} seed.Ticket
// @Failure 400 {object} respond.ErrorResponse
// @Router /api/v1/sync/historical [post]
func (h *Handler) SyncHistorical(w http.ResponseWriter, r *http.Request) {
	season, err := yearParam(r, "season")
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	ticket, err := h.Router.SyncHistoricalData(season, listParam(r, "dataTypes"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusAccepted, map[string]any{
		"ticket":    ticket,
		"statusUrl": "/api/v1/sync/status",
	})
}

func syncOptions(r *http.Request) (seed.Options, error) {
	opts := seed.Options{ForceRefresh: boolParam(r, "forceRefresh")}
	for _, s := range listParam(r, "years") {
		y, err := strconv.Atoi(s)
		if err != nil {
			return opts, &query.Error{Field: "years", Reason: fmt.Sprintf("%q is not a number", s)}
		}
		opts.Years = append(opts.Years, y)
	}
	for _, t := range listParam(r, "tables") {
		opts.Tables = append(opts.Tables, resolveTable(t))
	}
	return opts, nil
}

func yearParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, &query.Error{Field: name, Reason: "is required"}
	}
	y, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &query.Error{Field: name, Reason: "must be an integer year"}
	}
	return y, nil
}

func boolParam(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

func listParam(r *http.Request, name string) []string {
	var out []string
	for _, part := range strings.Split(r.URL.Query().Get(name), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
