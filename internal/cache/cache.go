// Package cache is the key/value layer in front of both the live provider and
// the historical store. Keys are namespaced and deterministic, TTLs come from
// a per-category policy, and every backend failure degrades to a miss.
//
// Payloads are opaque JSON bytes. A change to their shape must be paired with
// a CACHE_PREFIX bump so stale-shaped entries are never read back.
package cache

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"time"
)

// ErrBadPattern is returned for invalidation patterns outside the namespace.
var ErrBadPattern = errors.New("bad cache pattern")

// Store is a cache backend. Get reports a miss as ok=false with a nil error;
// errors are reserved for backend failures.
type Store interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// DeletePattern removes every key matching a glob pattern (*, ?, [..]).
	DeletePattern(ctx context.Context, pattern string) (int, error)
	Ping(ctx context.Context) error
	Stats(ctx context.Context) map[string]any
}

// ComputeETag generates a weak ETag from payload bytes.
func ComputeETag(data []byte) string {
	hash := md5.Sum(data)
	return fmt.Sprintf(`W/"%x"`, hash[:8])
}

// CheckETagMatch checks if an If-None-Match header matches etag.
func CheckETagMatch(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" {
		return false
	}
	if ifNoneMatch == "*" {
		return true
	}
	return ifNoneMatch == etag
}
