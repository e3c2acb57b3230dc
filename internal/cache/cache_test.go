package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hankstank/mlb-data/internal/metrics"
)

func TestKeyIgnoresParamOrderAndEmptyValues(t *testing.T) {
	a := Key("mlb:v1", []string{"player-stats", "2023"}, map[string]string{"teamId": "147", "season": "2023", "stats": "hitting"})
	b := Key("mlb:v1", []string{"player-stats", "2023"}, map[string]string{"stats": "hitting", "limit": "", "season": "2023", "teamId": "147"})
	if a != b {
		t.Errorf("keys differ:\n%s\n%s", a, b)
	}
	want := "mlb:v1:player-stats:2023:season=2023:stats=hitting:teamId=147"
	if a != want {
		t.Errorf("Key = %q, want %q", a, want)
	}
}

func TestKeyDiffersOnAnyValue(t *testing.T) {
	base := map[string]string{"season": "2023", "teamId": "147"}
	k := Key("p", []string{"roster"}, base)
	for _, other := range []map[string]string{
		{"season": "2023", "teamId": "121"},
		{"season": "2022", "teamId": "147"},
		{"season": "2023", "teamId": "147", "limit": "5"},
	} {
		if Key("p", []string{"roster"}, other) == k {
			t.Errorf("params %v collide with %v", other, base)
		}
	}
}

func TestTTLPolicy(t *testing.T) {
	tests := []struct {
		cat  Category
		ctx  Context
		want time.Duration
	}{
		{Static, ContextDefault, 24 * time.Hour},
		{SemiStatic, ContextDefault, time.Hour},
		{Dynamic, ContextDefault, 15 * time.Minute},
		{Analytics, ContextDefault, time.Hour},
		{Dynamic, ContextLive, 30 * time.Second},
		{Static, ContextLive, 30 * time.Second},
		{Live, ContextLiveGame, 10 * time.Second},
		{Dynamic, ContextHistorical, 24 * time.Hour},
		{Historical, ContextHistorical, 24 * time.Hour},
		{Category("unknown"), ContextDefault, 15 * time.Minute},
	}
	for _, tt := range tests {
		if got := TTL(tt.cat, tt.ctx); got != tt.want {
			t.Errorf("TTL(%s, %d) = %v, want %v", tt.cat, tt.ctx, got, tt.want)
		}
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	_ = m.Set(ctx, "k", []byte("v"), time.Minute)
	if _, ok, _ := m.Get(ctx, "k"); !ok {
		t.Fatal("expected hit before expiry")
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("expected miss after expiry")
	}
	m.evict()
	if got := m.Stats(ctx)["total_keys"]; got != 0 {
		t.Errorf("total_keys after evict = %v", got)
	}
}

func TestMemoryStoreDeletePattern(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, k := range []string{"p:roster:2023:teamId=147", "p:roster:2023:teamId=121", "p:roster:2022:teamId=147", "p:standings:2023"} {
		_ = m.Set(ctx, k, []byte("x"), time.Hour)
	}
	n, err := m.DeletePattern(ctx, "p:roster:2023*")
	if err != nil || n != 2 {
		t.Fatalf("DeletePattern = %d, %v; want 2", n, err)
	}
	if _, err := m.DeletePattern(ctx, "p:[roster"); !errors.Is(err, ErrBadPattern) {
		t.Errorf("malformed pattern err = %v", err)
	}
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	r := NewRedis(mr.Addr(), "", 0)
	defer r.Close()

	if _, ok, err := r.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("Get(missing) = %v, %v", ok, err)
	}
	if err := r.Set(ctx, "p:teams:2024", []byte(`[1]`), time.Minute); err != nil {
		t.Fatal(err)
	}
	data, ok, err := r.Get(ctx, "p:teams:2024")
	if err != nil || !ok || string(data) != `[1]` {
		t.Fatalf("Get = %q, %v, %v", data, ok, err)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := r.Get(ctx, "p:teams:2024"); ok {
		t.Error("entry outlived its TTL")
	}

	for _, k := range []string{"p:games:2023:a", "p:games:2023:b", "p:games:2022:a"} {
		_ = r.Set(ctx, k, []byte("x"), time.Hour)
	}
	n, err := r.DeletePattern(ctx, "p:games:2023*")
	if err != nil || n != 2 {
		t.Errorf("DeletePattern = %d, %v; want 2", n, err)
	}
}

type failingStore struct{ *MemoryStore }

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func TestLayerSoftFails(t *testing.T) {
	ctx := context.Background()
	m := metrics.New()
	l := NewLayer(failingStore{NewMemory()}, "p", m, nil)

	if _, ok := l.Get(ctx, "p:k"); ok {
		t.Error("failing backend reported a hit")
	}
	if etag := l.Set(ctx, "p:k", []byte("x"), time.Minute); etag != ComputeETag([]byte("x")) {
		t.Errorf("etag = %q", etag)
	}
	if got := testutil.ToFloat64(m.CacheErrors.WithLabelValues("get")); got != 1 {
		t.Errorf("cache get errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheErrors.WithLabelValues("set")); got != 1 {
		t.Errorf("cache set errors = %v, want 1", got)
	}
}

func TestLayerNamespacesInvalidation(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	l := NewLayer(store, "mlb:v1", nil, nil)

	l.Set(ctx, l.Key([]string{"roster", "2023"}, map[string]string{"teamId": "147"}), []byte("a"), time.Hour)
	l.Set(ctx, l.Key([]string{"roster", "2024"}, map[string]string{"teamId": "147"}), []byte("b"), time.Hour)
	_ = store.Set(ctx, "other:roster:2023", []byte("c"), time.Hour)

	n, err := l.Invalidate(ctx, "*teamId=147*")
	if err != nil || n != 2 {
		t.Fatalf("Invalidate = %d, %v; want 2", n, err)
	}
	if _, ok, _ := store.Get(ctx, "other:roster:2023"); !ok {
		t.Error("invalidation escaped the namespace")
	}
	if _, err := l.Invalidate(ctx, " "); !errors.Is(err, ErrBadPattern) {
		t.Errorf("empty pattern err = %v", err)
	}
}

func TestDisabledLayer(t *testing.T) {
	l := NewLayer(nil, "p", nil, nil)
	l.Set(context.Background(), "p:k", []byte("x"), time.Minute)
	if _, ok := l.Get(context.Background(), "p:k"); ok {
		t.Error("disabled layer returned a hit")
	}
	if l.Enabled() {
		t.Error("Enabled() = true")
	}
}

func TestCheckETagMatch(t *testing.T) {
	etag := ComputeETag([]byte("payload"))
	if !CheckETagMatch(etag, etag) || !CheckETagMatch("*", etag) || CheckETagMatch("", etag) {
		t.Error("unexpected ETag match result")
	}
}
