// Package savant implements provider.EventProvider against Baseball Savant's
// Statcast search CSV export. The export caps rows per request, so a date
// range is fetched one day at a time with bounded parallelism.
package savant

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hankstank/mlb-data/internal/metrics"
	"github.com/hankstank/mlb-data/internal/provider"
)

const (
	dateLayout = "2006-01-02"

	// DefaultDayParallelism bounds concurrent day fetches within one range.
	DefaultDayParallelism = 4
)

// Client is the Statcast CSV client.
type Client struct {
	up          *provider.Upstream
	parallelism int
	logger      *slog.Logger
}

var _ provider.EventProvider = (*Client)(nil)

// NewClient creates a Statcast client. parallelism <= 0 uses DefaultDayParallelism.
func NewClient(cfg provider.UpstreamConfig, parallelism int, m *metrics.Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Name == "" {
		cfg.Name = "savant"
	}
	if parallelism <= 0 {
		parallelism = DefaultDayParallelism
	}
	return &Client{
		up:          provider.NewUpstream(cfg, m, logger),
		parallelism: parallelism,
		logger:      logger,
	}
}

// Pitches returns every pitch thrown between startDate and endDate inclusive.
// Any failed day fails the whole range so callers can retry it as a unit.
func (c *Client) Pitches(ctx context.Context, startDate, endDate string) ([]provider.Pitch, error) {
	days, err := Days(startDate, endDate)
	if err != nil {
		return nil, &provider.Error{Provider: "savant", Op: "statcast", StatusCode: 400, Err: err}
	}

	var (
		mu  sync.Mutex
		all []provider.Pitch
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism)
	for _, day := range days {
		g.Go(func() error {
			pitches, err := c.day(gctx, day)
			if err != nil {
				return err
			}
			mu.Lock()
			all = append(all, pitches...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.GameDate != b.GameDate {
			return a.GameDate < b.GameDate
		}
		if a.GamePK != b.GamePK {
			return a.GamePK < b.GamePK
		}
		if a.AtBatNumber != b.AtBatNumber {
			return a.AtBatNumber < b.AtBatNumber
		}
		return a.PitchNumber < b.PitchNumber
	})
	return all, nil
}

func (c *Client) day(ctx context.Context, day string) ([]provider.Pitch, error) {
	params := url.Values{
		"all":          {"true"},
		"hfGT":         {"R|PO|S|"},
		"player_type":  {"pitcher"},
		"game_date_gt": {day},
		"game_date_lt": {day},
		"min_pitches":  {"0"},
		"min_results":  {"0"},
		"group_by":     {"name"},
		"sort_col":     {"pitches"},
		"sort_order":   {"desc"},
		"min_abs":      {"0"},
		"type":         {"details"},
	}
	body, err := c.up.Get(ctx, "statcast", "/statcast_search/csv", params)
	if err != nil {
		return nil, err
	}

	pitches, err := ParseCSV(bytes.NewReader(body))
	if err != nil {
		return nil, &provider.Error{Provider: "savant", Op: "statcast", Err: fmt.Errorf("parse %s: %w", day, err)}
	}
	c.logger.Debug("Statcast day fetched", "date", day, "pitches", len(pitches))
	return pitches, nil
}

// Days expands an inclusive YYYY-MM-DD range into individual dates.
func Days(startDate, endDate string) ([]string, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s before start date %s", endDate, startDate)
	}

	var days []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(dateLayout))
	}
	return days, nil
}

// ParseCSV decodes a Statcast CSV export. An empty body yields no pitches.
// Rows without a game/at-bat/pitch key are dropped.
func ParseCSV(r io.Reader) ([]provider.Pitch, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.Trim(strings.TrimSpace(header[i]), "\ufeff\"")
	}

	var out []provider.Pitch
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) && rec[i] != "" && rec[i] != "null" {
				row[col] = rec[i]
			}
		}

		p := provider.Pitch{
			GamePK:      atoi(row["game_pk"]),
			AtBatNumber: atoi(row["at_bat_number"]),
			PitchNumber: atoi(row["pitch_number"]),
			GameDate:    row["game_date"],
			PitcherID:   atoi(row["pitcher"]),
			BatterID:    atoi(row["batter"]),
			PitchType:   row["pitch_type"],
			Events:      row["events"],
			Description: row["description"],
			Data:        row,
		}
		if p.GamePK == 0 || p.AtBatNumber == 0 || p.PitchNumber == 0 {
			continue
		}
		if v, err := strconv.ParseFloat(row["release_speed"], 64); err == nil {
			p.ReleaseSpeed = &v
		}
		out = append(out, p)
	}
	return out, nil
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0
		}
		return int(f)
	}
	return n
}
