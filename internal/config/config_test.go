package config

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSeasonBoundaryIsClosed(t *testing.T) {
	b := SeasonBoundary{MinSeason: 2015, CurrentSeason: 2025}

	tests := []struct {
		season int
		closed bool
	}{
		{2015, true},
		{2024, true},
		{2025, false},
		{2026, false},
	}
	for _, tt := range tests {
		if got := b.IsClosed(tt.season); got != tt.closed {
			t.Errorf("IsClosed(%d) = %v, want %v", tt.season, got, tt.closed)
		}
	}
}

func TestSeasonBoundaryValidateClosed(t *testing.T) {
	b := SeasonBoundary{MinSeason: 2015, CurrentSeason: 2025}

	for _, year := range []int{2015, 2020, 2024} {
		if err := b.ValidateClosed(year); err != nil {
			t.Errorf("ValidateClosed(%d) unexpected error: %v", year, err)
		}
	}

	for _, year := range []int{2014, 2025, 2030} {
		err := b.ValidateClosed(year)
		if !errors.Is(err, ErrInvalidYear) {
			t.Errorf("ValidateClosed(%d) = %v, want ErrInvalidYear", year, err)
		}
		var ye *YearError
		if !errors.As(err, &ye) || ye.Max != 2024 {
			t.Errorf("ValidateClosed(%d) error = %#v, want YearError with Max 2024", year, err)
		}
	}
}

func TestSeasonBoundaryClosedSeasons(t *testing.T) {
	b := SeasonBoundary{MinSeason: 2021, CurrentSeason: 2025}
	want := []int{2021, 2022, 2023, 2024}
	if diff := cmp.Diff(want, b.ClosedSeasons()); diff != "" {
		t.Errorf("ClosedSeasons mismatch (-want +got):\n%s", diff)
	}

	empty := SeasonBoundary{MinSeason: 2025, CurrentSeason: 2025}
	if got := empty.ClosedSeasons(); len(got) != 0 {
		t.Errorf("ClosedSeasons() = %v, want none", got)
	}
}

func TestSeasonBoundaryValidate(t *testing.T) {
	if err := (SeasonBoundary{MinSeason: 2026, CurrentSeason: 2025}).Validate(); err == nil {
		t.Error("expected error when MinSeason is after CurrentSeason")
	}
	if err := (SeasonBoundary{MinSeason: 2015, CurrentSeason: 2025}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/mlb")
	t.Setenv("MIN_SEASON", "2018")
	t.Setenv("CURRENT_SEASON", "2025")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Seasons != (SeasonBoundary{MinSeason: 2018, CurrentSeason: 2025}) {
		t.Errorf("Seasons = %+v", cfg.Seasons)
	}
	if cfg.APIPort != 8000 {
		t.Errorf("APIPort = %d, want 8000", cfg.APIPort)
	}
	if cfg.RateLimitWindow != 60*time.Second {
		t.Errorf("RateLimitWindow = %s, want 60s", cfg.RateLimitWindow)
	}
	if cfg.CachePrefix != "mlb:v1" {
		t.Errorf("CachePrefix = %q", cfg.CachePrefix)
	}
	if diff := cmp.Diff([]string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins); diff != "" {
		t.Errorf("CORSAllowOrigins mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRequiresDatabaseUnlessMemory(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("NEON_DATABASE_URL", "")
	t.Setenv("HISTORICAL_STORE", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}

	t.Setenv("HISTORICAL_STORE", "memory")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with memory store failed: %v", err)
	}
	if cfg.HistoricalStore != "memory" {
		t.Errorf("HistoricalStore = %q, want memory", cfg.HistoricalStore)
	}
}
