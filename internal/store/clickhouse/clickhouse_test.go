package clickhouse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/hankstank/mlb-data/internal/config"
	"github.com/hankstank/mlb-data/internal/provider"
	"github.com/hankstank/mlb-data/internal/store"
)

func TestAppendArgs(t *testing.T) {
	speed := 95.5
	rows := store.PitchRows(2023, []provider.Pitch{{
		GamePK: 717000, AtBatNumber: 3, PitchNumber: 2, GameDate: "2023-06-01",
		PitcherID: 543037, BatterID: 660271, PitchType: "FF", ReleaseSpeed: &speed,
		Data: map[string]string{"zone": "5"},
	}})

	args, err := appendArgs(rows[0])
	if err != nil {
		t.Fatal(err)
	}
	spec, _ := store.Lookup(config.PitchesTable)
	if len(args) != len(spec.Columns()) {
		t.Fatalf("got %d args, want %d", len(args), len(spec.Columns()))
	}
	if args[0] != int32(2023) || args[1] != int64(717000) || args[2] != int32(3) || args[3] != int32(2) {
		t.Errorf("key args = %v", args[:4])
	}
	if d, ok := args[4].(time.Time); !ok || d.Format("2006-01-02") != "2023-06-01" {
		t.Errorf("game_date arg = %v", args[4])
	}
	if p, ok := args[8].(*float64); !ok || p == nil || *p != 95.5 {
		t.Errorf("release_speed arg = %v", args[8])
	}
	if args[11] != `{"zone":"5"}` {
		t.Errorf("data arg = %v", args[11])
	}
}

func TestAppendArgsRejectsBadDate(t *testing.T) {
	rows := store.PitchRows(2023, []provider.Pitch{{GamePK: 1, AtBatNumber: 1, PitchNumber: 1, GameDate: "06/01/2023"}})
	if _, err := appendArgs(rows[0]); err == nil {
		t.Error("expected date parse error")
	}
}

func TestCheckTable(t *testing.T) {
	if err := checkTable(config.PitchesTable); err != nil {
		t.Errorf("checkTable(pitches) = %v", err)
	}
	if err := checkTable(config.TeamsTable); err == nil {
		t.Error("teams table should be rejected")
	}
}

func TestToInt64(t *testing.T) {
	for in, want := range map[any]int64{1: 1, int64(7): 7, float64(9): 9, "42": 42, nil: 0} {
		if got := toInt64(in); got != want {
			t.Errorf("toInt64(%v) = %d, want %d", in, got, want)
		}
	}
}

// stubConn fails Ping or Exec on demand and records Close.
type stubConn struct {
	driver.Conn
	pingErr, execErr error
	closed           bool
}

func (c *stubConn) Ping(context.Context) error               { return c.pingErr }
func (c *stubConn) Exec(context.Context, string, ...any) error { return c.execErr }
func (c *stubConn) Close() error {
	c.closed = true
	return nil
}

func TestNewStoreClosesConnOnFailure(t *testing.T) {
	down := errors.New("connection refused")
	tests := []struct {
		name       string
		conn       *stubConn
		wantErr    bool
		wantClosed bool
	}{
		{"ping fails", &stubConn{pingErr: down}, true, true},
		{"create table fails", &stubConn{execErr: down}, true, true},
		{"ready", &stubConn{}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := newStore(context.Background(), tt.conn, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, down) {
				t.Errorf("err = %v, want wrapped %v", err, down)
			}
			if !tt.wantErr && s == nil {
				t.Error("nil store without error")
			}
			if tt.conn.closed != tt.wantClosed {
				t.Errorf("closed = %v, want %v", tt.conn.closed, tt.wantClosed)
			}
		})
	}
}
