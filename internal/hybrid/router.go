// Package hybrid routes data queries between the live provider and the
// historical store. Closed seasons are served from the store only; open
// seasons and season-independent reference data come from the provider.
// Both paths sit behind the cache layer.
package hybrid

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/hankstank/mlb-data/internal/cache"
	"github.com/hankstank/mlb-data/internal/config"
	"github.com/hankstank/mlb-data/internal/metrics"
	"github.com/hankstank/mlb-data/internal/provider"
	"github.com/hankstank/mlb-data/internal/query"
	"github.com/hankstank/mlb-data/internal/seed"
	"github.com/hankstank/mlb-data/internal/store"
)

// Source labels.
const (
	SourceLive       = "live"
	SourceHistorical = "historical"
)

// Result is a routed payload.
type Result struct {
	DataType string      `json:"dataType"`
	Season   int         `json:"season,omitempty"`
	Source   string      `json:"source"`
	CacheHit bool        `json:"cacheHit"`
	SyncGap  bool        `json:"syncGap,omitempty"`
	Count    int         `json:"count"`
	Data     []store.Doc `json:"data"`

	ETag string        `json:"-"`
	TTL  time.Duration `json:"-"`
}

// Submitter starts a background sync. *seed.Jobs implements it.
type Submitter interface {
	Submit(opts seed.Options) (seed.Ticket, error)
}

// Router is the hybrid data source router.
type Router struct {
	stats   provider.StatsProvider
	events  provider.EventProvider
	store   store.Historical
	cache   *cache.Layer
	jobs    Submitter
	seasons config.SeasonBoundary
	metrics *metrics.Metrics
	logger  *slog.Logger

	now func() time.Time
}

// New creates a Router. events may be nil, in which case open-season event
// queries fail.
func New(stats provider.StatsProvider, events provider.EventProvider, h store.Historical, c *cache.Layer,
	jobs Submitter, seasons config.SeasonBoundary, m *metrics.Metrics, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = cache.NewLayer(nil, "", m, logger)
	}
	return &Router{
		stats:   stats,
		events:  events,
		store:   h,
		cache:   c,
		jobs:    jobs,
		seasons: seasons,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Classify returns the source a query is served from. Season-scoped queries
// for a closed season go to the historical store; everything else is live.
func (r *Router) Classify(q query.Query) string {
	if q.SeasonScoped() && q.Season() != 0 && r.seasons.IsClosed(q.Season()) {
		return SourceHistorical
	}
	return SourceLive
}

// CacheKey is the deterministic key for q. The data type and season lead
// the path so a sync can invalidate one season of one type.
func (r *Router) CacheKey(q query.Query) string {
	return r.cache.Key(scope(q.DataType(), q.Season()), q.Params())
}

func scope(dt query.DataType, season int) []string {
	s := "all"
	if season != 0 {
		s = fmt.Sprint(season)
	}
	return []string{string(dt), s}
}

// GetData serves q from cache or from its classified source. A closed
// season with no stored rows is returned empty and flagged as a sync gap;
// it is never filled from the live provider.
func (r *Router) GetData(ctx context.Context, q query.Query) (Result, error) {
	source := r.Classify(q)
	key := r.CacheKey(q)

	if entry, ok := r.cache.Get(ctx, key); ok {
		var res Result
		if err := json.Unmarshal(entry.Data, &res); err == nil {
			res.CacheHit = true
			res.ETag = entry.ETag
			res.TTL = r.ttl(q, res.Source)
			r.metrics.RouterRequest(string(q.DataType()), res.Source, true)
			return res, nil
		}
		r.logger.Warn("Discarding undecodable cache entry", "key", key)
	}

	var (
		docs []store.Doc
		err  error
	)
	if source == SourceHistorical {
		docs, err = r.store.Query(ctx, q.Filter())
		if err != nil {
			err = fmt.Errorf("historical %s %d: %w", q.DataType(), q.Season(), err)
		}
	} else {
		docs, err = r.fetchLive(ctx, q)
	}
	if err != nil {
		return Result{}, err
	}
	if docs == nil {
		docs = []store.Doc{}
	}

	res := Result{
		DataType: string(q.DataType()),
		Season:   q.Season(),
		Source:   source,
		Count:    len(docs),
		Data:     docs,
		TTL:      r.ttl(q, source),
	}
	r.metrics.RouterRequest(res.DataType, source, false)

	if source == SourceHistorical && len(docs) == 0 {
		res.SyncGap = r.isUnfiltered(q)
		r.logger.Warn("No historical rows for closed season",
			"data_type", res.DataType, "season", res.Season, "params", q.Params())
		res.ETag = cache.ComputeETag(mustEncode(res))
		return res, nil
	}

	data, err := json.Marshal(res)
	if err != nil {
		return Result{}, fmt.Errorf("encode %s: %w", res.DataType, err)
	}
	res.ETag = r.cache.Set(ctx, key, data, res.TTL)
	return res, nil
}

// isUnfiltered reports whether q asks for a whole season, in which case an
// empty answer can only mean the season was never synced.
func (r *Router) isUnfiltered(q query.Query) bool {
	f := q.Filter()
	return len(f.Equals) == 0 && f.AnyOf == nil && f.DateFrom == "" && f.DateTo == ""
}

func mustEncode(res Result) []byte {
	b, _ := json.Marshal(res)
	return b
}
