// Package clickhouse stores Statcast pitch events in ClickHouse. Pitch data
// is append-heavy and scanned by date range, which suits a MergeTree far
// better than the row-oriented historical tables.
//
// The table is a ReplacingMergeTree keyed on the natural pitch key, so a
// redelivered collection task collapses onto the same rows. Reads use FINAL
// to see the deduplicated view before background merges run.
package clickhouse

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/goccy/go-json"

	"github.com/hankstank/mlb-data/internal/config"
	"github.com/hankstank/mlb-data/internal/store"
)

const table = config.PitchesTable

// Config holds ClickHouse connection settings.
type Config struct {
	Addr        string
	Username    string
	Password    string
	Database    string
	DialTimeout time.Duration
}

// Store implements store.Historical for the statcast_pitches table only.
type Store struct {
	conn   driver.Conn
	logger *slog.Logger
}

var _ store.Historical = (*Store)(nil)

// Open connects, pings and ensures the pitch table exists.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: cfg.DialTimeout,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	return newStore(ctx, conn, logger)
}

// newStore pings conn and ensures the table, closing conn on failure.
func newStore(ctx context.Context, conn driver.Conn, logger *slog.Logger) (*Store, error) {
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	s := &Store{conn: conn, logger: logger}
	if err := s.createTable(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create %s: %w", table, err)
	}
	return s, nil
}

func (s *Store) createTable(ctx context.Context) error {
	return s.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+table+` (
			year Int32,
			game_pk Int64,
			at_bat_number Int32,
			pitch_number Int32,
			game_date Date,
			pitcher_id Int64,
			batter_id Int64,
			pitch_type String,
			release_speed Nullable(Float64),
			events String,
			description String,
			data String,
			synced_at DateTime DEFAULT now()
		) ENGINE = ReplacingMergeTree(synced_at)
		PARTITION BY year
		ORDER BY (year, game_date, game_pk, at_bat_number, pitch_number)
	`)
}

// Close releases the connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func checkTable(name string) error {
	if name != table {
		return fmt.Errorf("clickhouse store only holds %s, not %q", table, name)
	}
	return nil
}

// YearCounts returns deduplicated pitch counts per year.
func (s *Store) YearCounts(ctx context.Context, name string) (map[int]int64, error) {
	if err := checkTable(name); err != nil {
		return nil, err
	}
	rows, err := s.conn.Query(ctx, "SELECT year, count() FROM "+table+" FINAL GROUP BY year")
	if err != nil {
		return nil, fmt.Errorf("count %s by year: %w", table, err)
	}
	defer rows.Close()

	counts := make(map[int]int64)
	for rows.Next() {
		var year int32
		var n uint64
		if err := rows.Scan(&year, &n); err != nil {
			return nil, err
		}
		counts[int(year)] = int64(n)
	}
	return counts, rows.Err()
}

// Upsert appends rows in one batch. Newly inserted rows are counted as the
// growth of the deduplicated per-year count, which is exact unless another
// writer touches the same years concurrently.
func (s *Store) Upsert(ctx context.Context, name string, rows []store.Row) (int, error) {
	if err := checkTable(name); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	spec, _ := store.Lookup(table)
	rows = store.DedupeRows(spec, rows)

	years := make(map[int]bool)
	for _, r := range rows {
		years[r.Year] = true
	}
	before, err := s.countYears(ctx, years)
	if err != nil {
		return 0, err
	}

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO "+table+" ("+strings.Join(spec.Columns(), ", ")+")")
	if err != nil {
		return 0, fmt.Errorf("prepare batch: %w", err)
	}
	for _, r := range rows {
		args, err := appendArgs(r)
		if err != nil {
			_ = batch.Abort()
			return 0, err
		}
		if err := batch.Append(args...); err != nil {
			_ = batch.Abort()
			return 0, fmt.Errorf("append pitch row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("send batch: %w", err)
	}

	after, err := s.countYears(ctx, years)
	if err != nil {
		return 0, err
	}
	return int(max(after-before, 0)), nil
}

func (s *Store) countYears(ctx context.Context, years map[int]bool) (int64, error) {
	ys := make([]int32, 0, len(years))
	for y := range years {
		ys = append(ys, int32(y))
	}
	var n uint64
	err := s.conn.QueryRow(ctx, "SELECT count() FROM "+table+" FINAL WHERE year IN ?", ys).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return int64(n), nil
}

func appendArgs(r store.Row) ([]any, error) {
	v := r.Values
	date, err := time.Parse("2006-01-02", fmt.Sprint(v["game_date"]))
	if err != nil {
		return nil, fmt.Errorf("pitch game_date: %w", err)
	}
	data, err := json.Marshal(v["data"])
	if err != nil {
		return nil, fmt.Errorf("encode pitch data: %w", err)
	}
	var speed *float64
	if f, ok := v["release_speed"].(float64); ok {
		speed = &f
	}
	return []any{
		int32(r.Year),
		toInt64(v["game_pk"]),
		int32(toInt64(v["at_bat_number"])),
		int32(toInt64(v["pitch_number"])),
		date,
		toInt64(v["pitcher_id"]),
		toInt64(v["batter_id"]),
		str(v["pitch_type"]),
		speed,
		str(v["events"]),
		str(v["description"]),
		string(data),
	}, nil
}

// Query scans pitches for one season, optionally by date range and
// pitcher/batter/game equality filters.
func (s *Store) Query(ctx context.Context, f store.Filter) ([]store.Doc, error) {
	if err := checkTable(f.Table); err != nil {
		return nil, err
	}

	if f.AnyOf != nil {
		return nil, fmt.Errorf("%s does not support any-of filters", table)
	}

	var (
		where []string
		args  []any
	)
	if f.Year != 0 {
		where = append(where, "year = ?")
		args = append(args, int32(f.Year))
	}
	eqCols := make([]string, 0, len(f.Equals))
	for c := range f.Equals {
		eqCols = append(eqCols, c)
	}
	sort.Strings(eqCols)
	for _, c := range eqCols {
		switch c {
		case "game_pk", "pitcher_id", "batter_id":
			where = append(where, c+" = ?")
			args = append(args, toInt64(f.Equals[c]))
		case "pitch_type", "events":
			where = append(where, c+" = ?")
			args = append(args, str(f.Equals[c]))
		default:
			return nil, fmt.Errorf("%s cannot filter on %q", table, c)
		}
	}
	if f.DateFrom != "" {
		where = append(where, "game_date >= toDate(?)")
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		where = append(where, "game_date <= toDate(?)")
		args = append(args, f.DateTo)
	}

	q := "SELECT year, game_pk, at_bat_number, pitch_number, toString(game_date), pitcher_id, batter_id, " +
		"pitch_type, release_speed, events, description, data, synced_at FROM " + table + " FINAL"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY year, game_date, game_pk, at_bat_number, pitch_number"
	if f.Pushdown() && f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.conn.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var docs []store.Doc
	for rows.Next() {
		var (
			year, atBat, pitchNo             int32
			gamePK, pitcher, batter          int64
			date, pitchType, events, desc, d string
			speed                            *float64
			syncedAt                         time.Time
		)
		if err := rows.Scan(&year, &gamePK, &atBat, &pitchNo, &date, &pitcher, &batter,
			&pitchType, &speed, &events, &desc, &d, &syncedAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		var data map[string]any
		_ = json.Unmarshal([]byte(d), &data)

		doc := store.Doc{
			"year":          int(year),
			"game_pk":       gamePK,
			"at_bat_number": atBat,
			"pitch_number":  pitchNo,
			"game_date":     date,
			"pitcher_id":    pitcher,
			"batter_id":     batter,
			"pitch_type":    pitchType,
			"events":        events,
			"description":   desc,
			"data":          data,
			"synced_at":     syncedAt.UTC().Format(time.RFC3339),
		}
		if speed != nil {
			doc["release_speed"] = *speed
		} else {
			doc["release_speed"] = nil
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	post := store.Filter{OrderBy: f.OrderBy, Desc: f.Desc, Limit: f.Limit}
	return store.Apply(docs, post, ""), nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		var out int64
		fmt.Sscan(fmt.Sprint(v), &out)
		return out
	}
}

func str(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
