package store

import (
	"strconv"

	"github.com/hankstank/mlb-data/internal/provider"
)

// Row is one historical record: its season plus column values keyed by
// column name. Columns missing from Values are written as NULL.
type Row struct {
	Year   int
	Values map[string]any
}

// Doc is a row as served to API callers.
type Doc = map[string]any

// Doc flattens the row into a response document.
func (r Row) Doc() Doc {
	d := make(Doc, len(r.Values)+1)
	for k, v := range r.Values {
		d[k] = v
	}
	d["year"] = r.Year
	return d
}

// Docs flattens rows into response documents.
func Docs(rows []Row) []Doc {
	out := make([]Doc, len(rows))
	for i, r := range rows {
		out[i] = r.Doc()
	}
	return out
}

// --------------------------------------------------------------------------
// Canonical → row transforms
// --------------------------------------------------------------------------

// TeamRows converts teams into teams_historical rows.
func TeamRows(year int, teams []provider.Team) []Row {
	rows := make([]Row, 0, len(teams))
	for _, t := range teams {
		rows = append(rows, Row{Year: year, Values: map[string]any{
			"team_id":            t.ID,
			"name":               t.Name,
			"abbreviation":       t.Abbreviation,
			"location_name":      t.LocationName,
			"league_id":          t.LeagueID,
			"league":             t.League,
			"division_id":        t.DivisionID,
			"division":           t.Division,
			"venue_name":         t.VenueName,
			"first_year_of_play": t.FirstYearOfPlay,
			"active":             t.Active,
		}})
	}
	return rows
}

// TeamStatRows converts team stat lines into team_stats_historical rows.
func TeamStatRows(year int, stats []provider.TeamStat) []Row {
	rows := make([]Row, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, Row{Year: year, Values: map[string]any{
			"team_id":    s.TeamID,
			"stat_group": s.Group,
			"team_name":  s.TeamName,
			"stats":      nonNilStats(s.Stats),
		}})
	}
	return rows
}

// PlayerStatRows converts player stat lines into player_stats_historical rows.
func PlayerStatRows(year int, stats []provider.PlayerStat) []Row {
	rows := make([]Row, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, Row{Year: year, Values: map[string]any{
			"player_id":   s.PlayerID,
			"stat_group":  s.Group,
			"player_name": s.PlayerName,
			"team_id":     nullableInt(s.TeamID),
			"team_name":   s.TeamName,
			"position":    s.Position,
			"stats":       nonNilStats(s.Stats),
		}})
	}
	return rows
}

// StandingRows converts standings into standings_historical rows.
func StandingRows(year int, standings []provider.Standing) []Row {
	rows := make([]Row, 0, len(standings))
	for _, s := range standings {
		rows = append(rows, Row{Year: year, Values: map[string]any{
			"team_id":          s.TeamID,
			"team_name":        s.TeamName,
			"league_id":        s.LeagueID,
			"division_id":      s.DivisionID,
			"wins":             s.Wins,
			"losses":           s.Losses,
			"pct":              s.Pct,
			"games_back":       s.GamesBack,
			"division_rank":    s.DivisionRank,
			"league_rank":      s.LeagueRank,
			"runs_scored":      s.RunsScored,
			"runs_allowed":     s.RunsAllowed,
			"run_differential": s.RunDifferential,
			"streak":           s.Streak,
		}})
	}
	return rows
}

// RosterRows converts roster entries into rosters_historical rows.
func RosterRows(year int, roster []provider.RosterEntry) []Row {
	rows := make([]Row, 0, len(roster))
	for _, r := range roster {
		rows = append(rows, Row{Year: year, Values: map[string]any{
			"team_id":       r.TeamID,
			"player_id":     r.PlayerID,
			"player_name":   r.PlayerName,
			"position":      r.Position,
			"jersey_number": r.JerseyNumber,
			"status":        r.Status,
		}})
	}
	return rows
}

// GameRows converts games into games_historical rows. Games belonging to a
// different season (spring training spillover) are dropped.
func GameRows(year int, games []provider.Game) []Row {
	rows := make([]Row, 0, len(games))
	for _, g := range games {
		if g.Season != 0 && g.Season != year {
			continue
		}
		rows = append(rows, Row{Year: year, Values: map[string]any{
			"game_pk":       g.GamePK,
			"game_date":     g.GameDate,
			"game_datetime": g.GameTime,
			"game_type":     g.GameType,
			"home_team_id":  g.HomeTeamID,
			"away_team_id":  g.AwayTeamID,
			"home_score":    intPtr(g.HomeScore),
			"away_score":    intPtr(g.AwayScore),
			"status":        g.Status,
			"venue_name":    g.VenueName,
		}})
	}
	return rows
}

// PitchRows converts Statcast pitches into statcast_pitches rows.
func PitchRows(year int, pitches []provider.Pitch) []Row {
	rows := make([]Row, 0, len(pitches))
	for _, p := range pitches {
		var speed any
		if p.ReleaseSpeed != nil {
			speed = *p.ReleaseSpeed
		}
		data := make(map[string]any, len(p.Data))
		for k, v := range p.Data {
			data[k] = v
		}
		rows = append(rows, Row{Year: year, Values: map[string]any{
			"game_pk":       p.GamePK,
			"at_bat_number": p.AtBatNumber,
			"pitch_number":  p.PitchNumber,
			"game_date":     p.GameDate,
			"pitcher_id":    p.PitcherID,
			"batter_id":     p.BatterID,
			"pitch_type":    p.PitchType,
			"release_speed": speed,
			"events":        p.Events,
			"description":   p.Description,
			"data":          data,
		}})
	}
	return rows
}

// TransactionDocs converts transactions into response documents. They are
// served live only and never stored.
func TransactionDocs(txs []provider.Transaction) []Doc {
	out := make([]Doc, 0, len(txs))
	for _, t := range txs {
		year := 0
		if len(t.Date) >= 4 {
			year, _ = strconv.Atoi(t.Date[:4])
		}
		out = append(out, Doc{
			"year":         year,
			"id":           t.ID,
			"date":         t.Date,
			"type_code":    t.TypeCode,
			"type_desc":    t.TypeDesc,
			"description":  t.Description,
			"player_id":    nullableInt(t.PlayerID),
			"player_name":  t.PlayerName,
			"from_team_id": nullableInt(t.FromTeamID),
			"to_team_id":   nullableInt(t.ToTeamID),
		})
	}
	return out
}

func nonNilStats(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func intPtr(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
