// Package app assembles the components both binaries share from a Config:
// stores, cache, providers, the sync engine, the router and the task queue.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thejerf/suture/v4"

	"github.com/hankstank/mlb-data/internal/api/handler"
	"github.com/hankstank/mlb-data/internal/cache"
	"github.com/hankstank/mlb-data/internal/collect"
	"github.com/hankstank/mlb-data/internal/config"
	"github.com/hankstank/mlb-data/internal/db"
	"github.com/hankstank/mlb-data/internal/hybrid"
	"github.com/hankstank/mlb-data/internal/listener"
	"github.com/hankstank/mlb-data/internal/logging"
	"github.com/hankstank/mlb-data/internal/metrics"
	"github.com/hankstank/mlb-data/internal/provider"
	"github.com/hankstank/mlb-data/internal/provider/mlb"
	"github.com/hankstank/mlb-data/internal/provider/savant"
	"github.com/hankstank/mlb-data/internal/queue"
	"github.com/hankstank/mlb-data/internal/scheduler"
	"github.com/hankstank/mlb-data/internal/seed"
	"github.com/hankstank/mlb-data/internal/status"
	"github.com/hankstank/mlb-data/internal/store"
	"github.com/hankstank/mlb-data/internal/store/clickhouse"
	"github.com/hankstank/mlb-data/internal/store/memory"
	"github.com/hankstank/mlb-data/internal/store/postgres"
)

// App holds the wired components.
type App struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	Pool       *db.Pool // nil with HISTORICAL_STORE=memory
	Postgres   *postgres.Store
	Historical store.Historical
	Cache      *cache.Layer
	memCache   *cache.MemoryStore

	Stats  provider.StatsProvider
	Events provider.EventProvider

	Tracker   *status.Tracker
	Engine    *seed.Engine
	Jobs      *seed.Jobs
	Router    *hybrid.Router
	Processor *collect.Processor
	FanOut    *collect.FanOut
	JetStream *queue.JetStream // nil without NATS_URL
	Local     *queue.Local     // in-process queue without NATS_URL

	closers []func()
}

// New wires every component. Background work started through the app
// (submitted syncs, the in-process queue) is bound to ctx.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Cfg: cfg, Logger: logger}
	if cfg.MetricsEnabled {
		a.Metrics = metrics.New()
	}

	if err := a.openStores(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.openCache()

	upstream := func(base string, rpm int) provider.UpstreamConfig {
		return provider.UpstreamConfig{BaseURL: base, RequestsPerMinute: rpm, Timeout: cfg.UpstreamTimeout, UserAgent: "mlb-data/1.0"}
	}
	a.Stats = mlb.NewClient(upstream(cfg.MLBBaseURL, cfg.MLBRequestsPM), a.Metrics, logging.Component(logger, "mlb"))
	a.Events = savant.NewClient(upstream(cfg.SavantBaseURL, cfg.SavantRequestsPM), 0, a.Metrics, logging.Component(logger, "savant"))

	a.Tracker = status.New(a.Historical, cfg.Seasons, logging.Component(logger, "status"))
	a.Engine = seed.New(a.Stats, a.Historical, a.Tracker, cfg.Seasons,
		seed.Config{Concurrency: cfg.SyncConcurrency}, a.Metrics, logging.Component(logger, "sync"))
	a.Jobs = seed.NewJobs(ctx, a.Engine, logging.Component(logger, "jobs"))

	a.Router = hybrid.New(a.Stats, a.Events, a.Historical, a.Cache, a.Jobs, cfg.Seasons, a.Metrics, logging.Component(logger, "router"))
	a.Processor = collect.NewProcessor(a.Events, a.Historical, cfg.Seasons, a.Metrics, logging.Component(logger, "collect"))
	a.Engine.OnSynced(a.Router.Invalidate)
	a.Processor.OnStored(a.Router.Invalidate)
	if a.Pool != nil {
		notifier := listener.NewNotifier(a.Pool, logger)
		a.Engine.OnSynced(notifier.Synced)
		a.Processor.OnStored(notifier.Synced)
	}

	var q collect.Enqueuer
	if cfg.NATSURL != "" {
		js, err := queue.Connect(ctx, queue.JetStreamConfig{
			URL:        cfg.NATSURL,
			Stream:     cfg.TaskStream,
			MaxDeliver: cfg.TaskMaxDeliver,
		}, logging.Component(logger, "queue"))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.JetStream = js
		a.closers = append(a.closers, js.Close)
		q = js
	} else {
		a.Local = queue.NewLocal(ctx, a.processTask, queue.LocalConfig{
			MaxAttempts: cfg.TaskMaxDeliver,
			Retryable:   collect.Retryable,
		}, logging.Component(logger, "queue"))
		q = a.Local
		logger.Info("NATS_URL not set, collection tasks run in-process")
	}
	a.FanOut = collect.NewFanOut(q, cfg.Seasons, a.Metrics, logging.Component(logger, "collect"))

	return a, nil
}

func (a *App) openStores(ctx context.Context) error {
	cfg := a.Cfg
	var def store.Historical
	switch cfg.HistoricalStore {
	case "memory":
		def = memory.New()
		a.Logger.Warn("Using in-memory historical store; data is lost on exit")
	case "postgres":
		pool, err := db.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		a.Pool = pool
		a.closers = append(a.closers, pool.Close)
		a.Postgres = postgres.New(pool.Pool, logging.Component(a.Logger, "postgres"))
		def = a.Postgres
	default:
		return fmt.Errorf("unknown HISTORICAL_STORE %q", cfg.HistoricalStore)
	}

	composite := &store.Composite{Default: def, Timeout: cfg.StoreTimeout}
	if cfg.EventStore == "clickhouse" {
		ch, err := clickhouse.Open(ctx, clickhouse.Config{
			Addr:     cfg.ClickHouseAddr,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Database: cfg.ClickHouseDatabase,
		}, logging.Component(a.Logger, "clickhouse"))
		if err != nil {
			return fmt.Errorf("open event store: %w", err)
		}
		a.closers = append(a.closers, func() { _ = ch.Close() })
		composite.Routes = map[string]store.Historical{config.PitchesTable: ch}
	}
	a.Historical = composite
	return nil
}

func (a *App) openCache() {
	cfg := a.Cfg
	var s cache.Store
	switch {
	case !cfg.CacheEnabled:
	case cfg.CacheBackend == "redis":
		rs := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		a.closers = append(a.closers, func() { _ = rs.Close() })
		s = rs
	default:
		a.memCache = cache.NewMemory()
		s = a.memCache
	}
	a.Cache = cache.NewLayer(s, cfg.CachePrefix, a.Metrics, logging.Component(a.Logger, "cache"))
	a.Logger.Info("Cache initialized", "enabled", cfg.CacheEnabled, "backend", cfg.CacheBackend, "prefix", cfg.CachePrefix)
}

// processTask adapts the processor to the in-process queue.
func (a *App) processTask(ctx context.Context, payload []byte) error {
	_, err := a.Processor.Handle(ctx, payload)
	return err
}

// HandlerDeps returns what the HTTP handlers need.
func (a *App) HandlerDeps() handler.Deps {
	return handler.Deps{
		Router:    a.Router,
		Tracker:   a.Tracker,
		Engine:    a.Engine,
		FanOut:    a.FanOut,
		Processor: a.Processor,
		Cache:     a.Cache,
		Store:     a.Historical,
		Seasons:   a.Cfg.Seasons,
		Logger:    logging.Component(a.Logger, "api"),
	}
}

// Services returns the background services the API process supervises.
func (a *App) Services() []suture.Service {
	var svcs []suture.Service
	svcs = append(svcs, scheduler.New(a.Engine, scheduler.Config{
		Interval:    a.Cfg.SyncInterval,
		MaxAttempts: a.Cfg.SyncMaxAttempts,
	}, logging.Component(a.Logger, "scheduler")))

	if a.Pool != nil {
		svcs = append(svcs, listener.New(a.Cfg.DatabaseURL, a.Router.Invalidate, logging.Component(a.Logger, "listener")))
	}
	if a.JetStream != nil {
		svcs = append(svcs, a.Dispatcher())
	}
	if a.memCache != nil {
		svcs = append(svcs, a.memCache)
	}
	return svcs
}

// Dispatcher returns a task dispatcher posting to TASK_PROCESS_BASE_URL.
func (a *App) Dispatcher() *queue.Dispatcher {
	return queue.NewDispatcher(a.JetStream, a.Cfg.TaskProcessBaseURL, 0, logging.Component(a.Logger, "dispatcher"))
}

// Wait blocks until submitted background work has finished.
func (a *App) Wait() {
	a.Jobs.Wait()
	if a.Local != nil {
		a.Local.Wait()
	}
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
