package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/hankstank/mlb-data/internal/api/handler"
	"github.com/hankstank/mlb-data/internal/api/respond"
	"github.com/hankstank/mlb-data/internal/cache"
	"github.com/hankstank/mlb-data/internal/collect"
	"github.com/hankstank/mlb-data/internal/config"
	"github.com/hankstank/mlb-data/internal/hybrid"
	"github.com/hankstank/mlb-data/internal/provider"
	"github.com/hankstank/mlb-data/internal/seed"
	"github.com/hankstank/mlb-data/internal/status"
	"github.com/hankstank/mlb-data/internal/store/memory"
)

var seasons = config.SeasonBoundary{MinSeason: 2022, CurrentSeason: 2025}

type stubStats struct{}

func (stubStats) Teams(context.Context, int) ([]provider.Team, error) {
	return []provider.Team{{ID: 147, Name: "New York Yankees", Active: true}}, nil
}
func (stubStats) TeamStats(context.Context, int) ([]provider.TeamStat, error)     { return nil, nil }
func (stubStats) PlayerStats(context.Context, int) ([]provider.PlayerStat, error) { return nil, nil }
func (stubStats) Standings(context.Context, int) ([]provider.Standing, error) {
	return []provider.Standing{{TeamID: 147, TeamName: "New York Yankees", Wins: 90, Losses: 72}}, nil
}
func (stubStats) Rosters(context.Context, int) ([]provider.RosterEntry, error) { return nil, nil }
func (stubStats) Games(context.Context, int, string, string) ([]provider.Game, error) {
	return nil, nil
}
func (stubStats) Transactions(context.Context, string, string, int) ([]provider.Transaction, error) {
	return nil, nil
}

type stubEvents struct {
	err error
}

func (s stubEvents) Pitches(_ context.Context, start, _ string) ([]provider.Pitch, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []provider.Pitch{{GamePK: 7, AtBatNumber: 1, PitchNumber: 1, GameDate: start, PitchType: "FF"}}, nil
}

type recordingQueue struct {
	mu  sync.Mutex
	ids []string
}

func (q *recordingQueue) Enqueue(_ context.Context, id string, _ []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, id)
	return nil
}

func newTestServer(t *testing.T, events provider.EventProvider) (*httptest.Server, *recordingQueue) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := memory.New()
	c := cache.NewLayer(cache.NewMemory(), "test", nil, nil)
	tracker := status.New(h, seasons, nil)
	engine := seed.New(stubStats{}, h, tracker, seasons, seed.Config{}, nil, nil)
	jobs := seed.NewJobs(ctx, engine, nil)
	t.Cleanup(jobs.Wait)
	router := hybrid.New(stubStats{}, events, h, c, jobs, seasons, nil, nil)
	q := &recordingQueue{}

	deps := handler.Deps{
		Router:    router,
		Tracker:   tracker,
		Engine:    engine,
		FanOut:    collect.NewFanOut(q, seasons, nil, nil),
		Processor: collect.NewProcessor(events, h, seasons, nil, nil),
		Cache:     c,
		Store:     h,
		Seasons:   seasons,
	}
	srv := httptest.NewServer(NewRouter(deps, nil, &config.Config{CORSAllowOrigins: []string{"*"}}))
	t.Cleanup(srv.Close)
	return srv, q
}

func do(t *testing.T, method, url, body string, header map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var e respond.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e.Error.Code
}

func TestGetDataETag(t *testing.T) {
	srv, _ := newTestServer(t, stubEvents{})
	url := srv.URL + "/api/v1/data/standings?season=2025"

	resp := do(t, http.MethodGet, url, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Data-Source"); got != hybrid.SourceLive {
		t.Errorf("X-Data-Source = %q, want %q", got, hybrid.SourceLive)
	}
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}
	var res hybrid.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Count != 1 || res.Season != 2025 {
		t.Errorf("result = %+v", res)
	}

	resp = do(t, http.MethodGet, url, "", map[string]string{"If-None-Match": etag})
	if resp.StatusCode != http.StatusNotModified {
		t.Errorf("conditional status = %d, want 304", resp.StatusCode)
	}
}

func TestGetDataClosedSeasonSyncGap(t *testing.T) {
	srv, _ := newTestServer(t, stubEvents{})

	resp := do(t, http.MethodGet, srv.URL+"/api/v1/data/standings?season=2023", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var res hybrid.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Source != hybrid.SourceHistorical || !res.SyncGap || res.Count != 0 {
		t.Errorf("result = %+v, want empty historical sync gap", res)
	}
}

func TestErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t, stubEvents{})

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantCode   string
	}{
		{"open season sync", http.MethodPost, "/api/v1/sync/teams?year=2025", 400, "INVALID_YEAR"},
		{"pre-min sync", http.MethodPost, "/api/v1/sync/teams?year=2010", 400, "INVALID_YEAR"},
		{"missing year", http.MethodPost, "/api/v1/sync/teams", 400, "INVALID_PARAMETER"},
		{"unknown table", http.MethodPost, "/api/v1/sync/bogus?year=2023", 404, "NOT_FOUND"},
		{"historical open season", http.MethodPost, "/api/v1/sync/historical?season=2025", 400, "INVALID_YEAR"},
		{"bad years list", http.MethodPost, "/api/v1/sync/missing?years=abc", 400, "INVALID_PARAMETER"},
		{"bad data param", http.MethodGet, "/api/v1/data/standings?season=abc", 400, "INVALID_PARAMETER"},
		{"collect out of range", http.MethodPost, "/api/v1/collect/season?year=2030", 400, "INVALID_YEAR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, srv.URL+tt.path, "", nil)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if got := errorCode(t, resp); got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestProcessMonth(t *testing.T) {
	valid := `{"id":"collect-2024-06","year":2024,"month":"June","startDate":"2024-06-01","endDate":"2024-06-02"}`

	tests := []struct {
		name       string
		events     stubEvents
		body       string
		wantStatus int
	}{
		{"collected", stubEvents{}, valid, http.StatusOK},
		{"malformed", stubEvents{}, `{"year":`, http.StatusBadRequest},
		{"missing dates", stubEvents{}, `{"year":2024}`, http.StatusBadRequest},
		{"upstream down", stubEvents{err: &provider.Error{Provider: "savant", Op: "statcast", StatusCode: 502}}, valid, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.events)
			resp := do(t, http.MethodPost, srv.URL+"/tasks/process-month", tt.body, map[string]string{"Content-Type": "application/json"})
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestCollectSeasonTestMode(t *testing.T) {
	srv, q := newTestServer(t, stubEvents{})

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/collect/season?year=2024&testMode=true", "", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if diff := cmp.Diff([]string{"collect-2024-06"}, q.ids); diff != "" {
		t.Errorf("enqueued ids (-want +got):\n%s", diff)
	}
}

func TestSyncStatusEmptyStore(t *testing.T) {
	srv, _ := newTestServer(t, stubEvents{})

	resp := do(t, http.MethodGet, srv.URL+"/api/v1/sync/status", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Tables     []status.Record `json:"tables"`
		IsComplete bool            `json:"isComplete"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.IsComplete {
		t.Error("empty store reported complete")
	}
	for _, rec := range body.Tables {
		if diff := cmp.Diff([]int{2022, 2023, 2024}, rec.MissingYears); diff != "" {
			t.Errorf("%s missing years (-want +got):\n%s", rec.Table, diff)
		}
	}
}

func TestInvalidateCache(t *testing.T) {
	srv, _ := newTestServer(t, stubEvents{})
	do(t, http.MethodGet, srv.URL+"/api/v1/data/standings?season=2025", "", nil)

	resp := do(t, http.MethodDelete, srv.URL+"/api/v1/cache?pattern=standings:*", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Deleted int `json:"deleted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", body.Deleted)
	}

	resp = do(t, http.MethodDelete, srv.URL+"/api/v1/cache", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing pattern status = %d, want 400", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, stubEvents{})
	for _, path := range []string{"/", "/health", "/health/db", "/health/cache"} {
		resp := do(t, http.MethodGet, srv.URL+path, "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}
}
