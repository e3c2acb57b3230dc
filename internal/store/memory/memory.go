// Package memory is an in-process Historical store. It backs local
// development (HISTORICAL_STORE=memory) and the package tests; contents are
// lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hankstank/mlb-data/internal/store"
)

type record struct {
	row      store.Row
	syncedAt time.Time
}

// Store implements store.Historical in memory.
type Store struct {
	mu     sync.RWMutex
	tables map[string]map[string]record
	order  map[string][]string // insertion order per table
	now    func() time.Time
}

var _ store.Historical = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		tables: make(map[string]map[string]record),
		order:  make(map[string][]string),
		now:    time.Now,
	}
}

// YearCounts returns row counts per year.
func (s *Store) YearCounts(_ context.Context, table string) (map[int]int64, error) {
	if _, err := store.Lookup(table); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[int]int64)
	for _, rec := range s.tables[table] {
		counts[rec.row.Year]++
	}
	return counts, nil
}

// Upsert inserts or replaces rows by natural key.
func (s *Store) Upsert(ctx context.Context, table string, rows []store.Row) (int, error) {
	spec, err := store.Lookup(table)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	// the whole batch is rejected before any row is written
	for _, r := range rows {
		for _, col := range spec.KeyColumns {
			if r.Values[col] == nil {
				return 0, fmt.Errorf("%s: row missing key column %s", table, col)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		t = make(map[string]record)
		s.tables[table] = t
	}
	now := s.now()
	inserted := 0
	for _, r := range rows {
		k := fmt.Sprint(store.KeyValues(spec, r))
		if _, exists := t[k]; !exists {
			inserted++
			s.order[table] = append(s.order[table], k)
		}
		t[k] = record{row: r, syncedAt: now}
	}
	return inserted, nil
}

// Query returns filtered rows in insertion order unless f orders them.
func (s *Store) Query(ctx context.Context, f store.Filter) ([]store.Doc, error) {
	spec, err := store.Lookup(f.Table)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	t := s.tables[f.Table]
	docs := make([]store.Doc, 0, len(t))
	for _, k := range s.order[f.Table] {
		rec := t[k]
		if f.Year != 0 && rec.row.Year != f.Year {
			continue
		}
		d := rec.row.Doc()
		d["synced_at"] = rec.syncedAt.UTC().Format(time.RFC3339)
		docs = append(docs, d)
	}
	s.mu.RUnlock()

	return store.Apply(docs, f, spec.DateColumn), nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Len returns the number of rows in a table.
func (s *Store) Len(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[table])
}

// Years returns the sorted distinct years in a table.
func (s *Store) Years(table string) []int {
	counts, _ := s.YearCounts(context.Background(), table)
	years := make([]int, 0, len(counts))
	for y := range counts {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
