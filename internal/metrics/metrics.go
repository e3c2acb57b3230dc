// Package metrics provides Prometheus metrics for the data API and its
// background sync/collection work. All recorder methods are nil-safe so
// components can run without metrics wired.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mlb_data"

// Metrics holds all Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	// Cache
	CacheLookups       *prometheus.CounterVec
	CacheErrors        *prometheus.CounterVec
	CacheInvalidations prometheus.Counter

	// Router
	RouterRequests *prometheus.CounterVec

	// Sync
	SyncOperations   *prometheus.CounterVec
	SyncRecordsAdded *prometheus.CounterVec
	SyncDuration     *prometheus.HistogramVec

	// Collection tasks
	TasksEnqueued  *prometheus.CounterVec
	TasksProcessed *prometheus.CounterVec
	PitchesStored  prometheus.Counter

	// Upstream
	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	BreakerState     *prometheus.GaugeVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by result (hit, miss)",
		}, []string{"result"}),
		CacheErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Cache backend errors by operation; the request falls through to the source",
		}, []string{"op"}),
		CacheInvalidations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidated_keys_total",
			Help:      "Keys removed by pattern invalidation",
		}),

		RouterRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "router_requests_total",
			Help:      "Routed data queries by data type, source and cache result",
		}, []string{"data_type", "source", "cache"}),

		SyncOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_operations_total",
			Help:      "Historical sync operations by table and status (ok, skipped, failed)",
		}, []string{"table", "status"}),
		SyncRecordsAdded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_records_added_total",
			Help:      "New rows inserted into historical tables",
		}, []string{"table"}),
		SyncDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of a single (table, year) sync",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"table"}),

		TasksEnqueued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collect_tasks_enqueued_total",
			Help:      "Collection tasks handed to the queue by result",
		}, []string{"result"}),
		TasksProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collect_tasks_processed_total",
			Help:      "Delivered collection tasks by outcome (collected, empty, invalid, failed)",
		}, []string{"outcome"}),
		PitchesStored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collect_pitches_stored_total",
			Help:      "New pitch rows stored by collection tasks",
		}),

		ProviderRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Upstream provider requests by provider, endpoint and status class",
		}, []string{"provider", "endpoint", "status"}),
		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Upstream provider request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "endpoint"}),
		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// --------------------------------------------------------------------------
// Recorders
// --------------------------------------------------------------------------

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) CacheError(op string) {
	if m == nil {
		return
	}
	m.CacheErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) CacheInvalidated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CacheInvalidations.Add(float64(n))
}

func (m *Metrics) RouterRequest(dataType, source string, cacheHit bool) {
	if m == nil {
		return
	}
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	m.RouterRequests.WithLabelValues(dataType, source, cache).Inc()
}

func (m *Metrics) SyncOperation(table, status string, added int, dur time.Duration) {
	if m == nil {
		return
	}
	m.SyncOperations.WithLabelValues(table, status).Inc()
	if added > 0 {
		m.SyncRecordsAdded.WithLabelValues(table).Add(float64(added))
	}
	m.SyncDuration.WithLabelValues(table).Observe(dur.Seconds())
}

func (m *Metrics) TaskEnqueued(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.TasksEnqueued.WithLabelValues("ok").Inc()
	} else {
		m.TasksEnqueued.WithLabelValues("error").Inc()
	}
}

func (m *Metrics) TaskProcessed(outcome string, added int) {
	if m == nil {
		return
	}
	m.TasksProcessed.WithLabelValues(outcome).Inc()
	if added > 0 {
		m.PitchesStored.Add(float64(added))
	}
}

func (m *Metrics) ProviderRequest(provider, endpoint, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(provider, endpoint, status).Inc()
	m.ProviderLatency.WithLabelValues(provider, endpoint).Observe(dur.Seconds())
}

func (m *Metrics) SetBreakerState(name string, state float64) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(state)
}
