package cache

import (
	"context"
	"path"
	"sync"
	"time"
)

const evictInterval = 5 * time.Minute

type entry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is a thread-safe in-process TTL store. Expired entries are
// invisible to Get and are swept by Serve.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemory creates an empty store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, exists := m.entries[key]
	if !exists || m.now().After(e.expiresAt) {
		return nil, false, nil
	}
	return e.data, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{data: data, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) DeletePattern(_ context.Context, pattern string) (int, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return 0, ErrBadPattern
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

// Stats returns key counts.
func (m *MemoryStore) Stats(context.Context) map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	active := 0
	now := m.now()
	for _, e := range m.entries {
		if now.Before(e.expiresAt) {
			active++
		}
	}
	return map[string]any{
		"backend":      "memory",
		"total_keys":   len(m.entries),
		"active_keys":  active,
		"expired_keys": len(m.entries) - active,
	}
}

// Serve sweeps expired entries until ctx is cancelled.
func (m *MemoryStore) Serve(ctx context.Context) error {
	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.evict()
		}
	}
}

func (m *MemoryStore) String() string { return "cache-sweeper" }

func (m *MemoryStore) evict() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for key, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, key)
		}
	}
}
