package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownTable is returned for tables without a Spec.
var ErrUnknownTable = errors.New("unknown historical table")

// Historical is the historical warehouse. Implementations must make Upsert
// idempotent on (year, Spec.KeyColumns): re-writing a row updates it in place
// and is not counted as inserted.
type Historical interface {
	// YearCounts returns row counts per year present in the table.
	YearCounts(ctx context.Context, table string) (map[int]int64, error)

	// Upsert writes rows and returns how many were newly inserted.
	Upsert(ctx context.Context, table string, rows []Row) (int, error)

	// Query returns the rows selected by f, ordered and limited.
	Query(ctx context.Context, f Filter) ([]Doc, error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error
}

// Composite routes tables to backends: everything goes to Default unless
// the table has an entry in Routes (e.g. pitch events to ClickHouse).
// A positive Timeout bounds every call.
type Composite struct {
	Default Historical
	Routes  map[string]Historical
	Timeout time.Duration
}

var _ Historical = (*Composite)(nil)

func (c *Composite) backend(table string) Historical {
	if h, ok := c.Routes[table]; ok && h != nil {
		return h
	}
	return c.Default
}

func (c *Composite) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.Timeout)
}

func (c *Composite) YearCounts(ctx context.Context, table string) (map[int]int64, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.backend(table).YearCounts(ctx, table)
}

func (c *Composite) Upsert(ctx context.Context, table string, rows []Row) (int, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.backend(table).Upsert(ctx, table, rows)
}

func (c *Composite) Query(ctx context.Context, f Filter) ([]Doc, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	return c.backend(f.Table).Query(ctx, f)
}

// Ping checks every distinct backend.
func (c *Composite) Ping(ctx context.Context) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	if err := c.Default.Ping(ctx); err != nil {
		return err
	}
	for table, h := range c.Routes {
		if h == nil || h == c.Default {
			continue
		}
		if err := h.Ping(ctx); err != nil {
			return fmt.Errorf("%s backend: %w", table, err)
		}
	}
	return nil
}

// KeyValues returns a row's natural key values (year first) in Spec order.
func KeyValues(spec Spec, r Row) []any {
	out := make([]any, 0, 1+len(spec.KeyColumns))
	out = append(out, r.Year)
	for _, col := range spec.KeyColumns {
		out = append(out, r.Values[col])
	}
	return out
}

// DedupeRows keeps the last row per natural key. Batched upserts reject a
// key appearing twice in one statement, and the upstream occasionally
// repeats a record.
func DedupeRows(spec Spec, rows []Row) []Row {
	idx := make(map[string]int, len(rows))
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		k := fmt.Sprint(KeyValues(spec, r))
		if i, ok := idx[k]; ok {
			out[i] = r
			continue
		}
		idx[k] = len(out)
		out = append(out, r)
	}
	return out
}
