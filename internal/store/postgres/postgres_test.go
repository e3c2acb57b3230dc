package postgres

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hankstank/mlb-data/internal/config"
	"github.com/hankstank/mlb-data/internal/store"
)

func TestUpsertSQL(t *testing.T) {
	spec, _ := store.Lookup(config.RostersTable)
	got := upsertSQL(spec)
	want := "INSERT INTO rosters_historical (year, team_id, player_id, player_name, position, jersey_number, status) " +
		"VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (year, team_id, player_id) DO UPDATE SET " +
		"player_name = EXCLUDED.player_name, position = EXCLUDED.position, jersey_number = EXCLUDED.jersey_number, " +
		"status = EXCLUDED.status, synced_at = NOW() RETURNING (xmax = 0)"
	if got != want {
		t.Errorf("upsertSQL =\n%s\nwant\n%s", got, want)
	}
}

func TestRowArgsEncodesJSONColumns(t *testing.T) {
	spec, _ := store.Lookup(config.TeamStatsTable)
	row := store.Row{Year: 2022, Values: map[string]any{
		"team_id": 147, "stat_group": "hitting", "team_name": "Yankees",
		"stats": map[string]any{"homeRuns": 254},
	}}
	args, err := rowArgs(spec, row)
	if err != nil {
		t.Fatal(err)
	}
	if len(args) != len(spec.Columns()) {
		t.Fatalf("got %d args, want %d", len(args), len(spec.Columns()))
	}
	if args[0] != 2022 || args[1] != 147 {
		t.Errorf("key args = %v", args[:3])
	}
	b, ok := args[4].([]byte)
	if !ok || string(b) != `{"homeRuns":254}` {
		t.Errorf("stats arg = %#v, want JSON bytes", args[4])
	}
}

func TestQuerySQL(t *testing.T) {
	spec, _ := store.Lookup(config.GamesTable)

	sql, args, err := querySQL(spec, store.Filter{
		Table:    config.GamesTable,
		Year:     2023,
		Equals:   map[string]any{"home_team_id": 147},
		DateFrom: "2023-04-01",
		DateTo:   "2023-04-30",
		Limit:    50,
	})
	if err != nil {
		t.Fatal(err)
	}
	wantSQL := "SELECT row_to_json(t)::text FROM games_historical t WHERE year = $1 AND home_team_id = $2 " +
		"AND game_date >= $3::date AND game_date <= $4::date ORDER BY year, game_date, game_pk LIMIT $5"
	if sql != wantSQL {
		t.Errorf("sql =\n%s\nwant\n%s", sql, wantSQL)
	}
	if diff := cmp.Diff([]any{2023, 147, "2023-04-01", "2023-04-30", 50}, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestQuerySQLDefersLimitWhenOrderingByStat(t *testing.T) {
	spec, _ := store.Lookup(config.PlayerStatsTable)
	sql, _, err := querySQL(spec, store.Filter{Year: 2023, OrderBy: "homeRuns", Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(sql, "LIMIT") {
		t.Errorf("stat-ordered query pushed LIMIT down: %s", sql)
	}
}

func TestQuerySQLRejectsUnknownColumn(t *testing.T) {
	spec, _ := store.Lookup(config.TeamsTable)
	_, _, err := querySQL(spec, store.Filter{Equals: map[string]any{"name; DROP TABLE teams": 1}})
	if err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestSchemaDeclaresEveryTable(t *testing.T) {
	for _, table := range store.Tables() {
		if !strings.Contains(schemaSQL, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Errorf("schema.sql missing %s", table)
		}
		spec, _ := store.Lookup(table)
		for _, col := range spec.Columns() {
			if !strings.Contains(schemaSQL, "    "+col+" ") {
				t.Errorf("schema.sql missing column %s.%s", table, col)
			}
		}
	}
}
