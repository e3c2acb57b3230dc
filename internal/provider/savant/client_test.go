package savant

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hankstank/mlb-data/internal/provider"
)

const sampleCSV = `pitch_type,game_date,release_speed,batter,pitcher,events,description,game_pk,at_bat_number,pitch_number
FF,2023-06-01,95.1,660271,543037,,ball,717000,1,1
SL,2023-06-01,86.4,660271,543037,strikeout,swinging_strike,717000,1,2
,2023-06-01,,,,,,,,
`

func TestParseCSV(t *testing.T) {
	pitches, err := ParseCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(pitches) != 2 {
		t.Fatalf("got %d pitches, want 2 (keyless row dropped)", len(pitches))
	}
	p := pitches[1]
	if p.GamePK != 717000 || p.AtBatNumber != 1 || p.PitchNumber != 2 || p.Events != "strikeout" {
		t.Errorf("pitch = %+v", p)
	}
	if p.ReleaseSpeed == nil || *p.ReleaseSpeed != 86.4 {
		t.Errorf("release speed = %v, want 86.4", p.ReleaseSpeed)
	}
	if p.Data["pitch_type"] != "SL" {
		t.Errorf("raw data not preserved: %v", p.Data)
	}
}

func TestParseCSVEmpty(t *testing.T) {
	pitches, err := ParseCSV(strings.NewReader(""))
	if err != nil || len(pitches) != 0 {
		t.Errorf("ParseCSV(empty) = %v, %v; want no pitches", pitches, err)
	}
}

func TestDays(t *testing.T) {
	got, err := Days("2024-02-28", "2024-03-01")
	if err != nil {
		t.Fatalf("Days: %v", err)
	}
	if diff := cmp.Diff([]string{"2024-02-28", "2024-02-29", "2024-03-01"}, got); diff != "" {
		t.Errorf("Days mismatch (-want +got):\n%s", diff)
	}
	if _, err := Days("2024-03-02", "2024-03-01"); err == nil {
		t.Error("reversed range should fail")
	}
	if _, err := Days("June 1", "2024-03-01"); err == nil {
		t.Error("malformed date should fail")
	}
}

func TestPitchesFetchesEachDay(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		day := r.URL.Query().Get("game_date_gt")
		if day != r.URL.Query().Get("game_date_lt") {
			t.Errorf("range request %s, want single day", r.URL.RawQuery)
		}
		fmt.Fprintf(w, "game_pk,at_bat_number,pitch_number,game_date\n%d,1,1,%s\n", 700000+int(day[9]-'0'), day)
	}))
	defer srv.Close()

	c := NewClient(provider.UpstreamConfig{BaseURL: srv.URL, RequestsPerMinute: 60000, Timeout: time.Second}, 2, nil, nil)
	pitches, err := c.Pitches(context.Background(), "2023-06-01", "2023-06-03")
	if err != nil {
		t.Fatalf("Pitches: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("upstream calls = %d, want 3", calls.Load())
	}
	if len(pitches) != 3 {
		t.Fatalf("got %d pitches, want 3", len(pitches))
	}
	if pitches[0].GameDate != "2023-06-01" || pitches[2].GameDate != "2023-06-03" {
		t.Errorf("pitches not ordered by date: %s..%s", pitches[0].GameDate, pitches[2].GameDate)
	}
}

func TestPitchesFailsWholeRangeOnDayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("game_date_gt") == "2023-06-02" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "game_pk,at_bat_number,pitch_number\n1,1,1\n")
	}))
	defer srv.Close()

	c := NewClient(provider.UpstreamConfig{BaseURL: srv.URL, RequestsPerMinute: 60000, Timeout: time.Second}, 4, nil, nil)
	_, err := c.Pitches(context.Background(), "2023-06-01", "2023-06-03")
	if err == nil {
		t.Fatal("expected error")
	}
	if !provider.IsTransient(err) {
		t.Errorf("5xx day failure should be transient: %v", err)
	}
}
