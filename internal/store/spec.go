// Package store defines the historical tables and the Historical interface
// the sync engine writes through and the router reads from.
//
// Each table is described by a Spec: a natural key (always prefixed by
// year) plus value columns. Backends generate their upserts from the Spec,
// so adding a column is a Spec + schema change only.
package store

import (
	"fmt"

	"github.com/hankstank/mlb-data/internal/config"
)

// Spec describes one historical table.
type Spec struct {
	Name         string
	KeyColumns   []string // natural key, excluding year
	ValueColumns []string
	JSONColumns  []string // subset of ValueColumns stored as JSON documents
	DateColumn   string   // column used for startDate/endDate filters, if any
}

// Columns returns year, key columns and value columns in insert order.
func (s Spec) Columns() []string {
	cols := make([]string, 0, 1+len(s.KeyColumns)+len(s.ValueColumns))
	cols = append(cols, "year")
	cols = append(cols, s.KeyColumns...)
	return append(cols, s.ValueColumns...)
}

// IsJSON reports whether col holds a JSON document.
func (s Spec) IsJSON(col string) bool {
	for _, c := range s.JSONColumns {
		if c == col {
			return true
		}
	}
	return false
}

var specs = map[string]Spec{
	config.TeamsTable: {
		Name:       config.TeamsTable,
		KeyColumns: []string{"team_id"},
		ValueColumns: []string{
			"name", "abbreviation", "location_name", "league_id", "league",
			"division_id", "division", "venue_name", "first_year_of_play", "active",
		},
	},
	config.TeamStatsTable: {
		Name:         config.TeamStatsTable,
		KeyColumns:   []string{"team_id", "stat_group"},
		ValueColumns: []string{"team_name", "stats"},
		JSONColumns:  []string{"stats"},
	},
	config.PlayerStatsTable: {
		Name:         config.PlayerStatsTable,
		KeyColumns:   []string{"player_id", "stat_group"},
		ValueColumns: []string{"player_name", "team_id", "team_name", "position", "stats"},
		JSONColumns:  []string{"stats"},
	},
	config.StandingsTable: {
		Name:       config.StandingsTable,
		KeyColumns: []string{"team_id"},
		ValueColumns: []string{
			"team_name", "league_id", "division_id", "wins", "losses", "pct", "games_back",
			"division_rank", "league_rank", "runs_scored", "runs_allowed", "run_differential", "streak",
		},
	},
	config.RostersTable: {
		Name:         config.RostersTable,
		KeyColumns:   []string{"team_id", "player_id"},
		ValueColumns: []string{"player_name", "position", "jersey_number", "status"},
	},
	config.GamesTable: {
		Name:       config.GamesTable,
		KeyColumns: []string{"game_pk"},
		ValueColumns: []string{
			"game_date", "game_datetime", "game_type", "home_team_id", "away_team_id",
			"home_score", "away_score", "status", "venue_name",
		},
		DateColumn: "game_date",
	},
	config.PitchesTable: {
		Name:       config.PitchesTable,
		KeyColumns: []string{"game_pk", "at_bat_number", "pitch_number"},
		ValueColumns: []string{
			"game_date", "pitcher_id", "batter_id", "pitch_type", "release_speed",
			"events", "description", "data",
		},
		JSONColumns: []string{"data"},
		DateColumn:  "game_date",
	},
}

// Lookup returns the Spec for a historical table.
func Lookup(table string) (Spec, error) {
	s, ok := specs[table]
	if !ok {
		return Spec{}, fmt.Errorf("%w %q", ErrUnknownTable, table)
	}
	return s, nil
}

// Tables returns every historical table name, sync tables first.
func Tables() []string {
	out := make([]string, 0, len(specs))
	out = append(out, config.SyncTables...)
	return append(out, config.PitchesTable)
}
