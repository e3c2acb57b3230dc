package hybrid

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hankstank/mlb-data/internal/cache"
	"github.com/hankstank/mlb-data/internal/collect"
	"github.com/hankstank/mlb-data/internal/config"
	"github.com/hankstank/mlb-data/internal/provider"
	"github.com/hankstank/mlb-data/internal/query"
	"github.com/hankstank/mlb-data/internal/seed"
	"github.com/hankstank/mlb-data/internal/store"
	"github.com/hankstank/mlb-data/internal/store/memory"
)

var seasons = config.SeasonBoundary{MinSeason: 2020, CurrentSeason: 2025}

// liveStats serves fixed standings and counts calls.
type liveStats struct {
	calls atomic.Int32
}

func (l *liveStats) Teams(_ context.Context, season int) ([]provider.Team, error) {
	l.calls.Add(1)
	return []provider.Team{{ID: 147, Name: "New York Yankees", Active: true}, {ID: 111, Name: "Boston Red Sox", Active: true}}, nil
}

func (l *liveStats) TeamStats(context.Context, int) ([]provider.TeamStat, error) {
	l.calls.Add(1)
	return nil, nil
}

func (l *liveStats) PlayerStats(context.Context, int) ([]provider.PlayerStat, error) {
	l.calls.Add(1)
	return nil, nil
}

func (l *liveStats) Standings(context.Context, int) ([]provider.Standing, error) {
	l.calls.Add(1)
	return []provider.Standing{
		{TeamID: 147, TeamName: "New York Yankees", Wins: 94, Losses: 68},
		{TeamID: 111, TeamName: "Boston Red Sox", Wins: 81, Losses: 81},
	}, nil
}

func (l *liveStats) Rosters(context.Context, int) ([]provider.RosterEntry, error) {
	l.calls.Add(1)
	return nil, nil
}

func (l *liveStats) Games(_ context.Context, season int, _, _ string) ([]provider.Game, error) {
	l.calls.Add(1)
	return []provider.Game{
		{GamePK: 1, Season: season, GameDate: "2025-04-01", HomeTeamID: 147, AwayTeamID: 111},
		{GamePK: 2, Season: season, GameDate: "2025-04-02", HomeTeamID: 121, AwayTeamID: 143},
	}, nil
}

func (l *liveStats) Transactions(context.Context, string, string, int) ([]provider.Transaction, error) {
	l.calls.Add(1)
	return []provider.Transaction{{ID: 9, Date: "2025-05-01", TypeCode: "SC"}}, nil
}

type recordingJobs struct {
	opts []seed.Options
}

func (j *recordingJobs) Submit(opts seed.Options) (seed.Ticket, error) {
	j.opts = append(j.opts, opts)
	return seed.Ticket{ID: "job-1", Options: opts, SubmittedAt: time.Now()}, nil
}

type fixture struct {
	router *Router
	live   *liveStats
	store  *memory.Store
	cache  *cache.MemoryStore
	jobs   *recordingJobs
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	live := &liveStats{}
	h := memory.New()
	mem := cache.NewMemory()
	jobs := &recordingJobs{}
	layer := cache.NewLayer(mem, "mlb:test", nil, nil)
	r := New(live, nil, h, layer, jobs, seasons, nil, nil)
	return fixture{router: r, live: live, store: h, cache: mem, jobs: jobs}
}

func parse(t *testing.T, dataType, raw string) query.Query {
	t.Helper()
	v, err := url.ParseQuery(raw)
	if err != nil {
		t.Fatal(err)
	}
	q, err := query.Parse(dataType, v, seasons)
	if err != nil {
		t.Fatalf("parse %s?%s: %v", dataType, raw, err)
	}
	return q
}

func TestClassifySeasonBoundary(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		dataType, params, want string
	}{
		{"standings", "season=2024", SourceHistorical},
		{"standings", "season=2025", SourceLive},
		{"standings", "", SourceLive},
		{"player-stats", "year=2020", SourceHistorical},
		{"teams", "season=2021", SourceLive},
		{"transactions", "startDate=2021-01-01&endDate=2021-02-01", SourceLive},
		{"event-stream", "startDate=2023-05-01", SourceHistorical},
	}
	for _, tt := range tests {
		if got := f.router.Classify(parse(t, tt.dataType, tt.params)); got != tt.want {
			t.Errorf("%s?%s = %s, want %s", tt.dataType, tt.params, got, tt.want)
		}
	}
}

func TestGetDataCachesLiveAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q := parse(t, "standings", "season=2025")

	first, err := f.router.GetData(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheHit || first.Source != SourceLive || first.Count != 2 || first.ETag == "" {
		t.Fatalf("first = %+v", first)
	}
	if first.TTL != 15*time.Minute {
		t.Errorf("ttl = %s", first.TTL)
	}

	second, err := f.router.GetData(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheHit || second.Source != SourceLive || second.Count != 2 {
		t.Errorf("second = %+v", second)
	}
	if second.ETag != first.ETag {
		t.Errorf("etag changed: %s vs %s", first.ETag, second.ETag)
	}
	if f.live.calls.Load() != 1 {
		t.Errorf("provider calls = %d, want 1", f.live.calls.Load())
	}
}

func TestGetDataClosedSeasonReadsStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.store.Upsert(ctx, config.StandingsTable, store.StandingRows(2023, []provider.Standing{
		{TeamID: 147, TeamName: "New York Yankees", Wins: 82, Losses: 80},
	}))
	if err != nil {
		t.Fatal(err)
	}

	res, err := f.router.GetData(ctx, parse(t, "standings", "season=2023"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != SourceHistorical || res.Count != 1 || res.TTL < 24*time.Hour {
		t.Errorf("result = %+v", res)
	}
	if f.live.calls.Load() != 0 {
		t.Error("closed season reached the live provider")
	}
}

func TestGetDataDoesNotFallBackForSyncGap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.router.GetData(ctx, parse(t, "standings", "season=2022"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != SourceHistorical || res.Count != 0 || !res.SyncGap || res.Data == nil {
		t.Errorf("result = %+v", res)
	}
	if f.live.calls.Load() != 0 {
		t.Error("sync gap filled from the live provider")
	}
	if n := f.cache.Stats(ctx)["total_keys"]; n != 0 {
		t.Errorf("empty historical answer cached: %v keys", n)
	}
}

func TestGetDataFiltersLiveScheduleByTeam(t *testing.T) {
	f := newFixture(t)
	res, err := f.router.GetData(context.Background(), parse(t, "schedule", "season=2025&teamId=111"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 1 || res.Data[0]["game_pk"] != 1 {
		t.Errorf("data = %v", res.Data)
	}
}

func TestCacheKeyIgnoresParameterOrder(t *testing.T) {
	f := newFixture(t)
	a := f.router.CacheKey(parse(t, "player-stats", "season=2023&teamId=147&stats=hitting"))
	b := f.router.CacheKey(parse(t, "player-stats", "stats=hitting&teamId=147&season=2023"))
	c := f.router.CacheKey(parse(t, "player-stats", "stats=pitching&teamId=147&season=2023"))
	if a != b {
		t.Errorf("keys differ: %s vs %s", a, b)
	}
	if a == c {
		t.Errorf("distinct queries share key %s", a)
	}
}

func TestInvalidateDropsOneSeason(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, season := range []int{2023, 2024} {
		_, _ = f.store.Upsert(ctx, config.StandingsTable, store.StandingRows(season, []provider.Standing{{TeamID: 147}}))
		if _, err := f.router.GetData(ctx, parse(t, "standings", "season="+strconv.Itoa(season))); err != nil {
			t.Fatal(err)
		}
	}

	f.router.Invalidate(ctx, config.StandingsTable, 2023)

	if res, _ := f.router.GetData(ctx, parse(t, "standings", "season=2023")); res.CacheHit {
		t.Error("2023 still cached after invalidation")
	}
	if res, _ := f.router.GetData(ctx, parse(t, "standings", "season=2024")); !res.CacheHit {
		t.Error("2024 dropped by 2023 invalidation")
	}
}

func TestSyncHistoricalData(t *testing.T) {
	f := newFixture(t)

	ticket, err := f.router.SyncHistoricalData(2023, []string{"standings", "schedule"})
	if err != nil {
		t.Fatal(err)
	}
	if ticket.ID == "" {
		t.Error("empty ticket")
	}
	want := []seed.Options{{Years: []int{2023}, Tables: []string{config.StandingsTable, config.GamesTable}}}
	if diff := cmp.Diff(want, f.jobs.opts); diff != "" {
		t.Errorf("submitted (-want +got):\n%s", diff)
	}

	if _, err := f.router.SyncHistoricalData(2025, nil); !errors.Is(err, config.ErrInvalidYear) {
		t.Errorf("open season err = %v", err)
	}
	if _, err := f.router.SyncHistoricalData(2023, []string{"transactions"}); !errors.Is(err, query.ErrInvalidQuery) {
		t.Errorf("unsyncable type err = %v", err)
	}
}

func TestLiveGameTTL(t *testing.T) {
	f := newFixture(t)
	f.router.now = func() time.Time { return time.Date(2025, 4, 1, 19, 0, 0, 0, time.UTC) }
	res, err := f.router.GetData(context.Background(), parse(t, "schedule", "season=2025"))
	if err != nil {
		t.Fatal(err)
	}
	if res.TTL != cache.LiveGameTTL {
		t.Errorf("ttl = %s, want %s", res.TTL, cache.LiveGameTTL)
	}
}

// dayPitches returns one pitch dated at the start of any requested range.
type dayPitches struct{}

func (dayPitches) Pitches(_ context.Context, start, _ string) ([]provider.Pitch, error) {
	return []provider.Pitch{{GamePK: 7000, AtBatNumber: 1, PitchNumber: 1, GameDate: start, PitchType: "SL"}}, nil
}

func TestCollectedMonthInvalidatesEventStream(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedRows := store.PitchRows(2023, []provider.Pitch{{GamePK: 6999, AtBatNumber: 1, PitchNumber: 1, GameDate: "2023-04-30", PitchType: "FF"}})
	if _, err := f.store.Upsert(ctx, config.PitchesTable, seedRows); err != nil {
		t.Fatal(err)
	}

	q := parse(t, "event-stream", "season=2023&startDate=2023-04-30&endDate=2023-05-01")
	first, err := f.router.GetData(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if first.Count != 1 {
		t.Fatalf("initial count = %d, want 1", first.Count)
	}

	proc := collect.NewProcessor(dayPitches{}, f.store, seasons, nil, nil)
	proc.OnStored(f.router.Invalidate)
	out, err := proc.Process(ctx, collect.MonthTask(2023, time.May))
	if err != nil {
		t.Fatal(err)
	}
	if out.Added != 1 {
		t.Fatalf("added = %d, want 1", out.Added)
	}

	again, err := f.router.GetData(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if again.CacheHit || again.Count != 2 {
		t.Errorf("after collection: cacheHit=%v count=%d, want fresh read of 2", again.CacheHit, again.Count)
	}
}
