package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hankstank/mlb-data/internal/config"
	"github.com/hankstank/mlb-data/internal/metrics"
	"github.com/hankstank/mlb-data/internal/provider"
	"github.com/hankstank/mlb-data/internal/status"
	"github.com/hankstank/mlb-data/internal/store"
)

// SyncedFunc runs after a (table, year) sync changed the store.
type SyncedFunc func(ctx context.Context, table string, year int)

// Options selects what SyncMissingData covers.
type Options struct {
	ForceRefresh bool     `json:"forceRefresh"`
	Years        []int    `json:"years,omitempty"`
	Tables       []string `json:"tables,omitempty"`
	// MaxAttempts > 1 retries transient provider failures with exponential
	// backoff. Scheduled callers set it; request-time callers leave it at 1.
	MaxAttempts int `json:"-"`
}

// Config tunes an Engine.
type Config struct {
	Concurrency  int           // parallel (table, year) syncs in a batch
	RetryInitial time.Duration // first backoff interval
}

// Engine syncs closed seasons into the historical store.
type Engine struct {
	provider provider.StatsProvider
	store    store.Historical
	tracker  *status.Tracker
	seasons  config.SeasonBoundary
	cfg      Config
	metrics  *metrics.Metrics
	logger   *slog.Logger

	flight singleflight.Group

	mu       sync.RWMutex
	onSynced []SyncedFunc
}

// New creates an Engine.
func New(p provider.StatsProvider, h store.Historical, tracker *status.Tracker, seasons config.SeasonBoundary,
	cfg Config, m *metrics.Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = 2 * time.Second
	}
	return &Engine{
		provider: p,
		store:    h,
		tracker:  tracker,
		seasons:  seasons,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// OnSynced registers a hook run after every sync that wrote rows.
func (e *Engine) OnSynced(fn SyncedFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onSynced = append(e.onSynced, fn)
}

// Seasons returns the boundary the engine validates against.
func (e *Engine) Seasons() config.SeasonBoundary { return e.seasons }

func (e *Engine) SyncTeams(ctx context.Context, year int, force bool) (Result, error) {
	return e.Sync(ctx, config.TeamsTable, year, force)
}

func (e *Engine) SyncTeamStats(ctx context.Context, year int, force bool) (Result, error) {
	return e.Sync(ctx, config.TeamStatsTable, year, force)
}

func (e *Engine) SyncPlayerStats(ctx context.Context, year int, force bool) (Result, error) {
	return e.Sync(ctx, config.PlayerStatsTable, year, force)
}

func (e *Engine) SyncStandings(ctx context.Context, year int, force bool) (Result, error) {
	return e.Sync(ctx, config.StandingsTable, year, force)
}

func (e *Engine) SyncRosters(ctx context.Context, year int, force bool) (Result, error) {
	return e.Sync(ctx, config.RostersTable, year, force)
}

func (e *Engine) SyncGames(ctx context.Context, year int, force bool) (Result, error) {
	return e.Sync(ctx, config.GamesTable, year, force)
}

// Sync copies one closed season of table from the provider. The returned
// error is reserved for validation failures (unknown table, year outside
// the closed seasons), in which case nothing is written. Provider and store
// failures come back as a Result with Success=false.
func (e *Engine) Sync(ctx context.Context, table string, year int, force bool) (Result, error) {
	if err := e.validate(table, year); err != nil {
		return Result{}, err
	}
	res, _ := e.syncOnce(ctx, table, year, force)
	return res, nil
}

func (e *Engine) validate(table string, year int) error {
	if !slices.Contains(config.SyncTables, table) {
		return fmt.Errorf("%w %q", store.ErrUnknownTable, table)
	}
	return e.seasons.ValidateClosed(year)
}

// syncOnce coalesces concurrent identical calls and returns the result plus
// the failure cause, if any. The shared run is detached from any one
// caller's cancellation and relies on the store and upstream timeouts; a
// caller that goes away stops waiting without failing the others.
func (e *Engine) syncOnce(ctx context.Context, table string, year int, force bool) (Result, error) {
	key := fmt.Sprintf("%s:%d:%t", table, year, force)
	ch := e.flight.DoChan(key, func() (any, error) {
		res, cause := e.run(context.WithoutCancel(ctx), table, year, force)
		return outcome{res, cause}, nil
	})
	select {
	case r := <-ch:
		o := r.Val.(outcome)
		return o.res, o.cause
	case <-ctx.Done():
		err := fmt.Errorf("sync %s %d: %w", table, year, ctx.Err())
		return Result{Table: table, Year: year, Attempts: 1, Error: err.Error()}, err
	}
}

type outcome struct {
	res   Result
	cause error
}

func (e *Engine) run(ctx context.Context, table string, year int, force bool) (Result, error) {
	start := time.Now()
	res := Result{Table: table, Year: year, Attempts: 1}

	fail := func(err error) (Result, error) {
		res.Error = err.Error()
		e.metrics.SyncOperation(table, "failed", 0, time.Since(start))
		return res, err
	}

	if !force {
		complete, err := e.tracker.YearComplete(ctx, table, year)
		if err != nil {
			return fail(err)
		}
		if complete {
			res.Success, res.Skipped = true, true
			e.metrics.SyncOperation(table, "skipped", 0, time.Since(start))
			e.logger.Debug("Sync skipped, year complete", "table", table, "year", year)
			return res, nil
		}
	}

	rows, err := FetchRows(ctx, e.provider, table, year)
	if err != nil {
		return fail(fmt.Errorf("fetch %s %d: %w", table, year, err))
	}
	if len(rows) == 0 {
		e.logger.Warn("Provider returned no rows", "table", table, "year", year)
	}

	added, err := e.store.Upsert(ctx, table, rows)
	if err != nil {
		return fail(fmt.Errorf("upsert %s %d: %w", table, year, err))
	}

	res.Success = true
	res.RecordsAdded = added
	e.metrics.SyncOperation(table, "ok", added, time.Since(start))
	e.logger.Info("Sync complete", "table", table, "year", year,
		"fetched", len(rows), "added", added, "force", force, "elapsed", time.Since(start).Round(time.Millisecond))

	if added > 0 || (force && len(rows) > 0) {
		e.mu.RLock()
		hooks := slices.Clone(e.onSynced)
		e.mu.RUnlock()
		for _, fn := range hooks {
			fn(ctx, table, year)
		}
	}
	return res, nil
}

// syncWithRetry retries transient failures up to attempts times.
func (e *Engine) syncWithRetry(ctx context.Context, table string, year int, force bool, attempts int) Result {
	if attempts <= 1 {
		res, _ := e.syncOnce(ctx, table, year, force)
		return res
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.RetryInitial
	b.MaxElapsedTime = 0

	var (
		res Result
		n   int
	)
	op := func() error {
		n++
		var cause error
		res, cause = e.syncOnce(ctx, table, year, force)
		if cause == nil {
			return nil
		}
		if !provider.IsTransient(cause) {
			return backoff.Permanent(cause)
		}
		return cause
	}
	notify := func(err error, wait time.Duration) {
		e.logger.Warn("Sync failed, retrying", "table", table, "year", year,
			"attempt", n, "wait", wait, "error", err)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
	if err := backoff.RetryNotify(op, policy, notify); err != nil && !errors.Is(err, ctx.Err()) {
		e.logger.Error("Sync failed", "table", table, "year", year, "attempts", n, "error", err)
	}
	res.Attempts = n
	return res
}

type pair struct {
	table string
	year  int
}

// SyncMissingData syncs every requested (table, year) pair. Without explicit
// years the missing and partial years come from the status tracker. Each
// pair has its own result slot: one failure never cancels or hides another.
// The error is reserved for invalid options.
func (e *Engine) SyncMissingData(ctx context.Context, opts Options) ([]Result, error) {
	if err := e.Validate(opts); err != nil {
		return nil, err
	}
	tables := opts.Tables
	if len(tables) == 0 {
		tables = config.SyncTables
	}

	var (
		pairs   []pair
		results []Result
	)
	for _, t := range tables {
		if len(opts.Years) > 0 {
			for _, y := range opts.Years {
				pairs = append(pairs, pair{t, y})
			}
			continue
		}
		rec, err := e.tracker.TableStatus(ctx, t)
		if err != nil {
			e.logger.Warn("Status check failed, skipping table", "table", t, "error", err)
			results = append(results, Result{Table: t, Error: err.Error()})
			continue
		}
		years := append(slices.Clone(rec.MissingYears), rec.PartialYears...)
		slices.Sort(years)
		for _, y := range years {
			pairs = append(pairs, pair{t, y})
		}
	}

	slots := make([]Result, len(pairs))
	g := new(errgroup.Group)
	g.SetLimit(e.cfg.Concurrency)
	for i, p := range pairs {
		g.Go(func() error {
			slots[i] = e.syncWithRetry(ctx, p.table, p.year, opts.ForceRefresh, opts.MaxAttempts)
			return nil
		})
	}
	_ = g.Wait()

	results = append(results, slots...)
	e.logger.Info("Missing-data sync finished", "pairs", len(pairs), "summary", Summarize(results).String())
	return results, nil
}

// Validate checks opts without running anything.
func (e *Engine) Validate(opts Options) error {
	for _, t := range opts.Tables {
		if !slices.Contains(config.SyncTables, t) {
			return fmt.Errorf("%w %q", store.ErrUnknownTable, t)
		}
	}
	for _, y := range opts.Years {
		if err := e.seasons.ValidateClosed(y); err != nil {
			return err
		}
	}
	return nil
}
