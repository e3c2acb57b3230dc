// Package postgres implements store.Historical on Postgres. Tables are
// range-partitioned by year (see schema.sql) and written with batched
// INSERT ... ON CONFLICT upserts keyed on the table's natural key.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hankstank/mlb-data/internal/config"
	"github.com/hankstank/mlb-data/internal/store"
)

//go:embed schema.sql
var schemaSQL string

const batchSize = 500

// Store is the Postgres historical store.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ store.Historical = (*Store)(nil)

// New wraps an existing pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// Migrate applies the schema and creates one partition per season in the
// boundary (plus the current season and a default partition).
func (s *Store) Migrate(ctx context.Context, seasons config.SeasonBoundary) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	created := 0
	for _, table := range store.Tables() {
		for year := seasons.MinSeason; year <= seasons.CurrentSeason; year++ {
			sql := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s_y%d PARTITION OF %s FOR VALUES FROM (%d) TO (%d)",
				table, year, table, year, year+1)
			if _, err := s.pool.Exec(ctx, sql); err != nil {
				return fmt.Errorf("create partition %s_y%d: %w", table, year, err)
			}
			created++
		}
		sql := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s_default PARTITION OF %s DEFAULT", table, table)
		if _, err := s.pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("create default partition %s: %w", table, err)
		}
	}

	s.logger.Info("Schema migrated", "tables", len(store.Tables()), "partitions", created)
	return nil
}

// YearCounts returns row counts per year.
func (s *Store) YearCounts(ctx context.Context, table string) (map[int]int64, error) {
	if _, err := store.Lookup(table); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, "SELECT year, count(*) FROM "+table+" GROUP BY year")
	if err != nil {
		return nil, fmt.Errorf("count %s by year: %w", table, err)
	}
	defer rows.Close()

	counts := make(map[int]int64)
	for rows.Next() {
		var year int
		var n int64
		if err := rows.Scan(&year, &n); err != nil {
			return nil, fmt.Errorf("scan %s counts: %w", table, err)
		}
		counts[year] = n
	}
	return counts, rows.Err()
}

// Upsert writes rows in batches, one transaction per batch, and counts rows
// that did not exist before.
func (s *Store) Upsert(ctx context.Context, table string, rows []store.Row) (int, error) {
	spec, err := store.Lookup(table)
	if err != nil {
		return 0, err
	}
	rows = store.DedupeRows(spec, rows)
	sql := upsertSQL(spec)

	inserted := 0
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		n, err := s.upsertBatch(ctx, spec, sql, rows[start:end])
		if err != nil {
			return inserted, fmt.Errorf("upsert %s rows %d-%d: %w", table, start, end, err)
		}
		inserted += n
	}
	return inserted, nil
}

func (s *Store) upsertBatch(ctx context.Context, spec store.Spec, sql string, rows []store.Row) (int, error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		args, err := rowArgs(spec, r)
		if err != nil {
			return 0, err
		}
		batch.Queue(sql, args...)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	br := tx.SendBatch(ctx, batch)
	inserted := 0
	for range rows {
		var isNew bool
		if err := br.QueryRow().Scan(&isNew); err != nil {
			br.Close()
			return 0, err
		}
		if isNew {
			inserted++
		}
	}
	if err := br.Close(); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// Query selects rows as JSON documents. Equality and date filters run in
// SQL; stat ordering runs in Go after decoding.
func (s *Store) Query(ctx context.Context, f store.Filter) ([]store.Doc, error) {
	spec, err := store.Lookup(f.Table)
	if err != nil {
		return nil, err
	}
	sql, args, err := querySQL(spec, f)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", f.Table, err)
	}
	defer rows.Close()

	var docs []store.Doc
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", f.Table, err)
		}
		var d store.Doc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode %s row: %w", f.Table, err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// SQL already applied year/equality/date filters.
	post := store.Filter{OrderBy: f.OrderBy, Desc: f.Desc, Limit: f.Limit}
	return store.Apply(docs, post, ""), nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --------------------------------------------------------------------------
// SQL builders
// --------------------------------------------------------------------------

func upsertSQL(spec store.Spec) string {
	cols := spec.Columns()
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}

	conflict := append([]string{"year"}, spec.KeyColumns...)
	sets := make([]string, 0, len(spec.ValueColumns)+1)
	for _, c := range spec.ValueColumns {
		sets = append(sets, c+" = EXCLUDED."+c)
	}
	sets = append(sets, "synced_at = NOW()")

	return "INSERT INTO " + spec.Name + " (" + strings.Join(cols, ", ") + ") VALUES (" +
		strings.Join(placeholders, ", ") + ") ON CONFLICT (" + strings.Join(conflict, ", ") +
		") DO UPDATE SET " + strings.Join(sets, ", ") + " RETURNING (xmax = 0)"
}

func rowArgs(spec store.Spec, r store.Row) ([]any, error) {
	cols := spec.Columns()
	args := make([]any, len(cols))
	args[0] = r.Year
	for i, c := range cols[1:] {
		v := r.Values[c]
		if spec.IsJSON(c) {
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode %s.%s: %w", spec.Name, c, err)
			}
			v = b
		}
		args[i+1] = v
	}
	return args, nil
}

func querySQL(spec store.Spec, f store.Filter) (string, []any, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Year != 0 {
		where = append(where, "year = "+arg(f.Year))
	}

	known := make(map[string]bool)
	for _, c := range spec.Columns() {
		known[c] = true
	}
	// deterministic placeholder order
	eqCols := make([]string, 0, len(f.Equals))
	for c := range f.Equals {
		eqCols = append(eqCols, c)
	}
	sort.Strings(eqCols)
	for _, c := range eqCols {
		if !known[c] {
			return "", nil, fmt.Errorf("%s has no column %q", spec.Name, c)
		}
		where = append(where, c+" = "+arg(f.Equals[c]))
	}

	if f.AnyOf != nil {
		ph := arg(f.AnyOf.Value)
		ors := make([]string, 0, len(f.AnyOf.Columns))
		for _, c := range f.AnyOf.Columns {
			if !known[c] {
				return "", nil, fmt.Errorf("%s has no column %q", spec.Name, c)
			}
			ors = append(ors, c+" = "+ph)
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}

	if spec.DateColumn != "" {
		if f.DateFrom != "" {
			where = append(where, spec.DateColumn+" >= "+arg(f.DateFrom)+"::date")
		}
		if f.DateTo != "" {
			where = append(where, spec.DateColumn+" <= "+arg(f.DateTo)+"::date")
		}
	}

	var sb strings.Builder
	sb.WriteString("SELECT row_to_json(t)::text FROM " + spec.Name + " t")
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	order := []string{"year"}
	if spec.DateColumn != "" {
		order = append(order, spec.DateColumn)
	}
	order = append(order, spec.KeyColumns...)
	sb.WriteString(" ORDER BY " + strings.Join(order, ", "))
	if f.Pushdown() && f.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(f.Limit))
	}
	return sb.String(), args, nil
}
