package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorders(t *testing.T) {
	m := New()

	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)
	m.SyncOperation("teams_historical", "ok", 30, time.Second)
	m.SyncOperation("teams_historical", "ok", 0, time.Second)
	m.TaskProcessed("collected", 1200)

	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")); got != 2 {
		t.Errorf("cache misses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SyncOperations.WithLabelValues("teams_historical", "ok")); got != 2 {
		t.Errorf("sync ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SyncRecordsAdded.WithLabelValues("teams_historical")); got != 30 {
		t.Errorf("records added = %v, want 30", got)
	}
	if got := testutil.ToFloat64(m.PitchesStored); got != 1200 {
		t.Errorf("pitches stored = %v, want 1200", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.CacheLookup(true)
	m.CacheError("get")
	m.RouterRequest("standings", "live", false)
	m.SyncOperation("games_historical", "failed", 0, time.Second)
	m.TaskEnqueued(true)
	m.ProviderRequest("mlb", "teams", "2xx", time.Millisecond)
	m.SetBreakerState("mlb", 2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("nil handler status = %d, want 404", rec.Code)
	}
}

func TestHandlerExposesNamespace(t *testing.T) {
	m := New()
	m.RouterRequest("standings", "historical", true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "mlb_data_router_requests_total") {
		t.Errorf("exposition missing router metric:\n%s", rec.Body.String())
	}
}
