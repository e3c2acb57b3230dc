package hybrid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hankstank/mlb-data/internal/cache"
	"github.com/hankstank/mlb-data/internal/config"
	"github.com/hankstank/mlb-data/internal/query"
	"github.com/hankstank/mlb-data/internal/seed"
	"github.com/hankstank/mlb-data/internal/store"
)

// ErrNoEventSource is returned for open-season event queries when no event
// provider is configured.
var ErrNoEventSource = errors.New("no live event source configured")

// fetchLive pulls q's data from the provider and shapes it exactly as the
// historical store would, so a season reads the same before and after it
// closes.
func (r *Router) fetchLive(ctx context.Context, q query.Query) ([]store.Doc, error) {
	f := q.Filter()

	switch q := q.(type) {
	case query.TransactionsQuery:
		txs, err := r.stats.Transactions(ctx, q.StartDate, q.EndDate, q.TeamID)
		if err != nil {
			return nil, fmt.Errorf("live transactions: %w", err)
		}
		return store.Apply(store.TransactionDocs(txs), f, "date"), nil

	case query.EventStreamQuery:
		if r.events == nil {
			return nil, ErrNoEventSource
		}
		pitches, err := r.events.Pitches(ctx, q.StartDate, q.EndDate)
		if err != nil {
			return nil, fmt.Errorf("live event-stream: %w", err)
		}
		return apply(store.PitchRows(q.Year, pitches), f)

	case query.ScheduleQuery:
		start, end := seed.SeasonWindow(q.Year)
		if q.StartDate != "" {
			start = q.StartDate
		}
		if q.EndDate != "" {
			end = q.EndDate
		}
		games, err := r.stats.Games(ctx, q.Year, start, end)
		if err != nil {
			return nil, fmt.Errorf("live schedule: %w", err)
		}
		return apply(store.GameRows(q.Year, games), f)
	}

	rows, err := seed.FetchRows(ctx, r.stats, q.Table(), q.Season())
	if err != nil {
		return nil, fmt.Errorf("live %s: %w", q.DataType(), err)
	}
	return apply(rows, f)
}

func apply(rows []store.Row, f store.Filter) ([]store.Doc, error) {
	spec, err := store.Lookup(f.Table)
	if err != nil {
		return nil, err
	}
	return store.Apply(store.Docs(rows), f, spec.DateColumn), nil
}

var categories = map[query.DataType]cache.Category{
	query.Teams:        cache.Static,
	query.Roster:       cache.SemiStatic,
	query.Standings:    cache.Dynamic,
	query.Schedule:     cache.Dynamic,
	query.Transactions: cache.Dynamic,
	query.TeamStats:    cache.Analytics,
	query.PlayerStats:  cache.Analytics,
	query.EventStream:  cache.Analytics,
}

// ttl picks the cache lifetime: historical answers are floored at 24h, and
// a live schedule or event window that includes today uses the live-game
// TTL.
func (r *Router) ttl(q query.Query, source string) time.Duration {
	c := categories[q.DataType()]
	if source == SourceHistorical {
		return cache.TTL(c, cache.ContextHistorical)
	}
	if r.coversToday(q) {
		return cache.TTL(c, cache.ContextLiveGame)
	}
	return cache.TTL(c, cache.ContextDefault)
}

func (r *Router) coversToday(q query.Query) bool {
	today := r.now().Format("2006-01-02")
	var start, end string
	switch q := q.(type) {
	case query.ScheduleQuery:
		if q.Year != r.seasons.CurrentSeason {
			return false
		}
		start, end = seed.SeasonWindow(q.Year)
		if q.StartDate != "" {
			start = q.StartDate
		}
		if q.EndDate != "" {
			end = q.EndDate
		}
	case query.EventStreamQuery:
		start, end = q.StartDate, q.EndDate
	default:
		return false
	}
	return start <= today && today <= end
}

// --------------------------------------------------------------------------
// Sync administration
// --------------------------------------------------------------------------

var syncTables = map[query.DataType]string{
	query.Teams:       config.TeamsTable,
	query.TeamStats:   config.TeamStatsTable,
	query.PlayerStats: config.PlayerStatsTable,
	query.Standings:   config.StandingsTable,
	query.Roster:      config.RostersTable,
	query.Schedule:    config.GamesTable,
}

// SyncHistoricalData submits a background sync of season for dataTypes
// (every syncable type when empty) and returns the job ticket at once.
// Completion is observed through the sync status tracker.
func (r *Router) SyncHistoricalData(season int, dataTypes []string) (seed.Ticket, error) {
	if err := r.seasons.ValidateClosed(season); err != nil {
		return seed.Ticket{}, err
	}
	var tables []string
	for _, dt := range dataTypes {
		table, ok := syncTables[query.DataType(dt)]
		if !ok {
			return seed.Ticket{}, &query.Error{Field: "dataTypes", Reason: fmt.Sprintf("%q is not syncable", dt)}
		}
		tables = append(tables, table)
	}
	return r.jobs.Submit(seed.Options{Years: []int{season}, Tables: tables})
}

// Invalidate drops cached answers for one season of the data type backed by
// table. It runs after every sync that changed the store.
func (r *Router) Invalidate(ctx context.Context, table string, year int) {
	for dt, t := range syncTables {
		if t != table {
			continue
		}
		n, err := r.cache.InvalidateScope(ctx, scope(dt, year)...)
		if err != nil {
			r.logger.Warn("Cache invalidation failed", "table", table, "year", year, "error", err)
			continue
		}
		r.logger.Info("Cache invalidated after sync", "data_type", dt, "year", year, "keys", n)
	}
	if table == config.PitchesTable {
		if _, err := r.cache.InvalidateScope(ctx, scope(query.EventStream, year)...); err != nil {
			r.logger.Warn("Cache invalidation failed", "table", table, "year", year, "error", err)
		}
	}
}
