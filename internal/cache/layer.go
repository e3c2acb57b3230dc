package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hankstank/mlb-data/internal/metrics"
)

// Entry is a cached payload with its ETag.
type Entry struct {
	Data []byte
	ETag string
}

// Layer namespaces keys under a prefix and turns backend failures into
// misses. A Layer with a nil store is disabled: every Get misses and every
// Set is dropped.
type Layer struct {
	store   Store
	prefix  string
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewLayer wraps store. Pass a nil store to disable caching.
func NewLayer(store Store, prefix string, m *metrics.Metrics, logger *slog.Logger) *Layer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Layer{store: store, prefix: prefix, metrics: m, logger: logger}
}

// Enabled reports whether a backend is configured.
func (l *Layer) Enabled() bool { return l.store != nil }

// Prefix returns the key namespace.
func (l *Layer) Prefix() string { return l.prefix }

// Key builds a namespaced key; see Key.
func (l *Layer) Key(path []string, params map[string]string) string {
	return Key(l.prefix, path, params)
}

// Get returns the entry for key. Backend errors are logged and reported as
// a miss so the caller falls through to the underlying source.
func (l *Layer) Get(ctx context.Context, key string) (Entry, bool) {
	if l.store == nil {
		return Entry{}, false
	}
	data, ok, err := l.store.Get(ctx, key)
	if err != nil {
		l.metrics.CacheError("get")
		l.logger.Warn("Cache read failed", "key", key, "error", err)
		return Entry{}, false
	}
	l.metrics.CacheLookup(ok)
	if !ok {
		return Entry{}, false
	}
	return Entry{Data: data, ETag: ComputeETag(data)}, true
}

// Set stores data for ttl and returns its ETag. A failed write is logged
// and otherwise ignored.
func (l *Layer) Set(ctx context.Context, key string, data []byte, ttl time.Duration) string {
	etag := ComputeETag(data)
	if l.store == nil || ttl <= 0 {
		return etag
	}
	if err := l.store.Set(ctx, key, data, ttl); err != nil {
		l.metrics.CacheError("set")
		l.logger.Warn("Cache write failed", "key", key, "error", err)
	}
	return etag
}

// Invalidate deletes keys matching pattern. Patterns are relative to the
// namespace unless they already start with it.
func (l *Layer) Invalidate(ctx context.Context, pattern string) (int, error) {
	if l.store == nil {
		return 0, nil
	}
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return 0, fmt.Errorf("%w: empty pattern", ErrBadPattern)
	}
	if !strings.HasPrefix(pattern, l.prefix+":") {
		pattern = l.prefix + ":" + pattern
	}
	n, err := l.store.DeletePattern(ctx, pattern)
	if err != nil {
		l.metrics.CacheError("invalidate")
		return n, fmt.Errorf("invalidate %q: %w", pattern, err)
	}
	l.metrics.CacheInvalidated(n)
	l.logger.Debug("Cache invalidated", "pattern", pattern, "keys", n)
	return n, nil
}

// InvalidateScope deletes every key under path.
func (l *Layer) InvalidateScope(ctx context.Context, path ...string) (int, error) {
	return l.Invalidate(ctx, ScopePattern(l.prefix, path...))
}

// Ping checks the backend.
func (l *Layer) Ping(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	return l.store.Ping(ctx)
}

// Stats reports backend statistics.
func (l *Layer) Stats(ctx context.Context) map[string]any {
	if l.store == nil {
		return map[string]any{"enabled": false}
	}
	s := l.store.Stats(ctx)
	s["enabled"] = true
	s["prefix"] = l.prefix
	return s
}
