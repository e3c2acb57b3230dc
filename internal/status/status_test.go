package status

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hankstank/mlb-data/internal/config"
	"github.com/hankstank/mlb-data/internal/store"
	"github.com/hankstank/mlb-data/internal/store/memory"
)

var seasons = config.SeasonBoundary{MinSeason: 2020, CurrentSeason: 2024}

func teamRows(year, n int) []store.Row {
	rows := make([]store.Row, n)
	for i := range rows {
		rows[i] = store.Row{Year: year, Values: map[string]any{"team_id": 100 + i, "name": "club"}}
	}
	return rows
}

func TestEmptyStoreReportsEveryClosedSeasonMissing(t *testing.T) {
	tr := New(memory.New(), seasons, nil)
	recs, err := tr.GetSyncStatus(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != len(config.SyncTables) {
		t.Fatalf("got %d records, want %d", len(recs), len(config.SyncTables))
	}
	for _, r := range recs {
		if diff := cmp.Diff([]int{2020, 2021, 2022, 2023}, r.MissingYears); diff != "" {
			t.Errorf("%s missing years (-want +got):\n%s", r.Table, diff)
		}
		if r.IsComplete || r.TotalRecords != 0 {
			t.Errorf("%s: complete=%v total=%d", r.Table, r.IsComplete, r.TotalRecords)
		}
	}
}

func TestCompleteAfterAllYearsSynced(t *testing.T) {
	ctx := context.Background()
	h := memory.New()
	for _, y := range seasons.ClosedSeasons() {
		if _, err := h.Upsert(ctx, config.TeamsTable, teamRows(y, 30)); err != nil {
			t.Fatal(err)
		}
	}
	rec, err := New(h, seasons, nil).TableStatus(ctx, config.TeamsTable)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.IsComplete || len(rec.MissingYears) != 0 || len(rec.PartialYears) != 0 {
		t.Errorf("record = %+v", rec)
	}
	if rec.TotalRecords != 120 || rec.CountsByYear[2021] != 30 {
		t.Errorf("total=%d counts=%v", rec.TotalRecords, rec.CountsByYear)
	}
}

func TestPartialYears(t *testing.T) {
	ctx := context.Background()
	h := memory.New()
	_, _ = h.Upsert(ctx, config.TeamsTable, teamRows(2021, 12))
	_, _ = h.Upsert(ctx, config.TeamsTable, teamRows(2022, 30))
	// current season rows are counted but never expected
	_, _ = h.Upsert(ctx, config.TeamsTable, teamRows(2024, 30))

	tr := New(h, seasons, nil)
	rec, err := tr.TableStatus(ctx, config.TeamsTable)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{2020, 2023}, rec.MissingYears); diff != "" {
		t.Errorf("missing (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2021}, rec.PartialYears); diff != "" {
		t.Errorf("partial (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2021, 2022, 2024}, rec.YearsPresent); diff != "" {
		t.Errorf("present (-want +got):\n%s", diff)
	}

	for year, want := range map[int]bool{2020: false, 2021: false, 2022: true} {
		got, err := tr.YearComplete(ctx, config.TeamsTable, year)
		if err != nil || got != want {
			t.Errorf("YearComplete(%d) = %v, %v; want %v", year, got, err, want)
		}
	}

	gaps := tr.Gaps(ctx)
	if diff := cmp.Diff([]int{2020, 2021, 2023}, gaps[config.TeamsTable]); diff != "" {
		t.Errorf("teams gaps (-want +got):\n%s", diff)
	}
}

type brokenStore struct{ store.Historical }

func (brokenStore) YearCounts(context.Context, string) (map[int]int64, error) {
	return nil, errors.New("connection reset")
}

func TestStoreFailureIsTyped(t *testing.T) {
	tr := New(brokenStore{memory.New()}, seasons, nil)
	_, err := tr.GetSyncStatus(context.Background())
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("err = %v, want ErrFetch", err)
	}
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Table != config.SyncTables[0] {
		t.Errorf("FetchError = %+v", fe)
	}
	if gaps := tr.Gaps(context.Background()); len(gaps) != 0 {
		t.Errorf("gaps = %v, want none", gaps)
	}
}
