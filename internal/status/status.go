// Package status derives per-table sync status from the historical store.
// Nothing is persisted: every call recounts rows per year and compares them
// with the closed seasons of the configured boundary.
package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/hankstank/mlb-data/internal/config"
	"github.com/hankstank/mlb-data/internal/store"
)

// ErrFetch marks a failure to read counts from the historical store.
var ErrFetch = errors.New("sync status fetch failed")

// FetchError wraps a store failure for one table.
type FetchError struct {
	Table string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("sync status for %s: %v", e.Table, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// MinRows is the row count below which a present year is reported partial.
var MinRows = map[string]int64{
	config.TeamsTable:       30,
	config.TeamStatsTable:   60,
	config.StandingsTable:   30,
	config.PlayerStatsTable: 500,
	config.RostersTable:     750,
	config.GamesTable:       800,
}

// Record is the derived status of one table.
type Record struct {
	Table         string        `json:"table"`
	YearsPresent  []int         `json:"yearsPresent"`
	YearsExpected []int         `json:"yearsExpected"`
	MissingYears  []int         `json:"missingYears"`
	PartialYears  []int         `json:"partialYears"`
	CountsByYear  map[int]int64 `json:"countsByYear"`
	IsComplete    bool          `json:"isComplete"`
	TotalRecords  int64         `json:"totalRecords"`
}

// Tracker computes Records for the tracked tables.
type Tracker struct {
	store   store.Historical
	seasons config.SeasonBoundary
	tables  []string
	logger  *slog.Logger
}

// New tracks config.SyncTables.
func New(h store.Historical, seasons config.SeasonBoundary, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store:   h,
		seasons: seasons,
		tables:  config.SyncTables,
		logger:  logger,
	}
}

// Tables returns the tracked table names.
func (t *Tracker) Tables() []string { return slices.Clone(t.tables) }

// GetSyncStatus returns one Record per tracked table. A store failure on any
// table aborts the call with a *FetchError.
func (t *Tracker) GetSyncStatus(ctx context.Context) ([]Record, error) {
	out := make([]Record, 0, len(t.tables))
	for _, table := range t.tables {
		rec, err := t.TableStatus(ctx, table)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// TableStatus computes the Record for one table. An empty store yields
// every closed season as missing.
func (t *Tracker) TableStatus(ctx context.Context, table string) (Record, error) {
	counts, err := t.store.YearCounts(ctx, table)
	if err != nil {
		return Record{}, &FetchError{Table: table, Err: err}
	}

	expected := t.seasons.ClosedSeasons()
	rec := Record{
		Table:         table,
		YearsPresent:  []int{},
		YearsExpected: expected,
		MissingYears:  []int{},
		PartialYears:  []int{},
		CountsByYear:  counts,
	}
	if rec.YearsExpected == nil {
		rec.YearsExpected = []int{}
	}

	for year, n := range counts {
		if n <= 0 {
			continue
		}
		rec.YearsPresent = append(rec.YearsPresent, year)
		rec.TotalRecords += n
	}
	slices.Sort(rec.YearsPresent)

	minRows := MinRows[table]
	for _, year := range expected {
		n := counts[year]
		switch {
		case n <= 0:
			rec.MissingYears = append(rec.MissingYears, year)
		case n < minRows:
			rec.PartialYears = append(rec.PartialYears, year)
		}
	}
	rec.IsComplete = len(rec.MissingYears) == 0
	return rec, nil
}

// YearComplete reports whether year is present with at least the table's
// minimum row count.
func (t *Tracker) YearComplete(ctx context.Context, table string, year int) (bool, error) {
	counts, err := t.store.YearCounts(ctx, table)
	if err != nil {
		return false, &FetchError{Table: table, Err: err}
	}
	n := counts[year]
	return n > 0 && n >= MinRows[table], nil
}

// Gaps returns the (table, year) pairs missing or partial across every
// tracked table. Tables whose counts cannot be read are logged and skipped.
func (t *Tracker) Gaps(ctx context.Context) map[string][]int {
	gaps := make(map[string][]int)
	for _, table := range t.tables {
		rec, err := t.TableStatus(ctx, table)
		if err != nil {
			t.logger.Warn("Skipping table in gap scan", "table", table, "error", err)
			continue
		}
		years := append(slices.Clone(rec.MissingYears), rec.PartialYears...)
		slices.Sort(years)
		if len(years) > 0 {
			gaps[table] = years
		}
	}
	return gaps
}
