// Package query models inbound data requests as a closed set of variants,
// one per data type, each carrying only the fields that type understands.
// Parse validates and normalizes request parameters before anything reaches
// the router, so the router never sees a malformed or partial query.
package query

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/hankstank/mlb-data/internal/config"
	"github.com/hankstank/mlb-data/internal/store"
)

// DataType names a query variant.
type DataType string

const (
	TeamStats    DataType = "team-stats"
	PlayerStats  DataType = "player-stats"
	Standings    DataType = "standings"
	Roster       DataType = "roster"
	Schedule     DataType = "schedule"
	Transactions DataType = "transactions"
	EventStream  DataType = "event-stream"
	Teams        DataType = "teams"
)

// DataTypes lists every supported data type.
var DataTypes = []DataType{TeamStats, PlayerStats, Standings, Roster, Schedule, Transactions, EventStream, Teams}

// ErrInvalidQuery is the sentinel behind every *Error.
var ErrInvalidQuery = errors.New("invalid query")

// Error describes a rejected query parameter.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *Error) Unwrap() error { return ErrInvalidQuery }

// Query is implemented by every variant.
type Query interface {
	// DataType identifies the variant.
	DataType() DataType
	// Season is the normalized season, or 0 for queries that are not
	// season-scoped (transactions).
	Season() int
	// SeasonScoped reports whether routing depends on the season.
	SeasonScoped() bool
	// Table is the historical table backing the variant, "" if none.
	Table() string
	// Filter selects the variant's rows from a table or live result.
	Filter() store.Filter
	// Params renders every non-empty field, for cache keys.
	Params() map[string]string

	isQuery()
}

// Stat ordering shared by the stats variants.
type Order struct {
	By   string
	Desc bool
}

func (o Order) params(p map[string]string) {
	if o.By != "" {
		p["orderBy"] = o.By
		if o.Desc {
			p["direction"] = "desc"
		} else {
			p["direction"] = "asc"
		}
	}
}

// --------------------------------------------------------------------------
// Variants
// --------------------------------------------------------------------------

// TeamStatsQuery selects team season lines.
type TeamStatsQuery struct {
	Year   int
	TeamID int
	Group  string // hitting | pitching | "" for both
	Order  Order
	Limit  int
}

func (q TeamStatsQuery) DataType() DataType { return TeamStats }
func (q TeamStatsQuery) Season() int        { return q.Year }
func (q TeamStatsQuery) SeasonScoped() bool { return true }
func (q TeamStatsQuery) Table() string      { return config.TeamStatsTable }
func (q TeamStatsQuery) isQuery()           {}

func (q TeamStatsQuery) Filter() store.Filter {
	f := store.Filter{Table: q.Table(), Year: q.Year, Equals: map[string]any{}, OrderBy: q.Order.By, Desc: q.Order.Desc, Limit: q.Limit}
	putInt(f.Equals, "team_id", q.TeamID)
	putStr(f.Equals, "stat_group", q.Group)
	return f
}

func (q TeamStatsQuery) Params() map[string]string {
	p := map[string]string{"season": itoa(q.Year)}
	putParam(p, "teamId", itoa(q.TeamID))
	putParam(p, "stats", q.Group)
	putParam(p, "limit", itoa(q.Limit))
	q.Order.params(p)
	return p
}

// PlayerStatsQuery selects player season lines.
type PlayerStatsQuery struct {
	Year     int
	PlayerID int
	TeamID   int
	Group    string
	Order    Order
	Limit    int
}

func (q PlayerStatsQuery) DataType() DataType { return PlayerStats }
func (q PlayerStatsQuery) Season() int        { return q.Year }
func (q PlayerStatsQuery) SeasonScoped() bool { return true }
func (q PlayerStatsQuery) Table() string      { return config.PlayerStatsTable }
func (q PlayerStatsQuery) isQuery()           {}

func (q PlayerStatsQuery) Filter() store.Filter {
	f := store.Filter{Table: q.Table(), Year: q.Year, Equals: map[string]any{}, OrderBy: q.Order.By, Desc: q.Order.Desc, Limit: q.Limit}
	putInt(f.Equals, "player_id", q.PlayerID)
	putInt(f.Equals, "team_id", q.TeamID)
	putStr(f.Equals, "stat_group", q.Group)
	return f
}

func (q PlayerStatsQuery) Params() map[string]string {
	p := map[string]string{"season": itoa(q.Year)}
	putParam(p, "playerId", itoa(q.PlayerID))
	putParam(p, "teamId", itoa(q.TeamID))
	putParam(p, "stats", q.Group)
	putParam(p, "limit", itoa(q.Limit))
	q.Order.params(p)
	return p
}

// StandingsQuery selects standings rows.
type StandingsQuery struct {
	Year   int
	TeamID int
}

func (q StandingsQuery) DataType() DataType { return Standings }
func (q StandingsQuery) Season() int        { return q.Year }
func (q StandingsQuery) SeasonScoped() bool { return true }
func (q StandingsQuery) Table() string      { return config.StandingsTable }
func (q StandingsQuery) isQuery()           {}

func (q StandingsQuery) Filter() store.Filter {
	f := store.Filter{Table: q.Table(), Year: q.Year, Equals: map[string]any{}, OrderBy: "pct", Desc: true}
	putInt(f.Equals, "team_id", q.TeamID)
	return f
}

func (q StandingsQuery) Params() map[string]string {
	p := map[string]string{"season": itoa(q.Year)}
	putParam(p, "teamId", itoa(q.TeamID))
	return p
}

// RosterQuery selects season roster entries, optionally for one club.
type RosterQuery struct {
	Year   int
	TeamID int
}

func (q RosterQuery) DataType() DataType { return Roster }
func (q RosterQuery) Season() int        { return q.Year }
func (q RosterQuery) SeasonScoped() bool { return true }
func (q RosterQuery) Table() string      { return config.RostersTable }
func (q RosterQuery) isQuery()           {}

func (q RosterQuery) Filter() store.Filter {
	f := store.Filter{Table: q.Table(), Year: q.Year, Equals: map[string]any{}}
	putInt(f.Equals, "team_id", q.TeamID)
	return f
}

func (q RosterQuery) Params() map[string]string {
	p := map[string]string{"season": itoa(q.Year)}
	putParam(p, "teamId", itoa(q.TeamID))
	return p
}

// ScheduleQuery selects games, optionally for a club and date window.
type ScheduleQuery struct {
	Year      int
	TeamID    int
	StartDate string
	EndDate   string
	Limit     int
}

func (q ScheduleQuery) DataType() DataType { return Schedule }
func (q ScheduleQuery) Season() int        { return q.Year }
func (q ScheduleQuery) SeasonScoped() bool { return true }
func (q ScheduleQuery) Table() string      { return config.GamesTable }
func (q ScheduleQuery) isQuery()           {}

// Filter matches TeamID against either side of the game.
func (q ScheduleQuery) Filter() store.Filter {
	f := store.Filter{Table: q.Table(), Year: q.Year, DateFrom: q.StartDate, DateTo: q.EndDate, Limit: q.Limit}
	if q.TeamID != 0 {
		f.AnyOf = &store.AnyOf{Columns: []string{"home_team_id", "away_team_id"}, Value: q.TeamID}
	}
	return f
}

func (q ScheduleQuery) Params() map[string]string {
	p := map[string]string{"season": itoa(q.Year)}
	putParam(p, "teamId", itoa(q.TeamID))
	putParam(p, "startDate", q.StartDate)
	putParam(p, "endDate", q.EndDate)
	putParam(p, "limit", itoa(q.Limit))
	return p
}

// TransactionsQuery selects roster moves in a date window. Transactions are
// not season-scoped and are always served live.
type TransactionsQuery struct {
	StartDate string
	EndDate   string
	TeamID    int
}

func (q TransactionsQuery) DataType() DataType { return Transactions }
func (q TransactionsQuery) Season() int        { return 0 }
func (q TransactionsQuery) SeasonScoped() bool { return false }
func (q TransactionsQuery) Table() string      { return "" }
func (q TransactionsQuery) isQuery()           {}

func (q TransactionsQuery) Filter() store.Filter {
	return store.Filter{DateFrom: q.StartDate, DateTo: q.EndDate}
}

func (q TransactionsQuery) Params() map[string]string {
	p := map[string]string{"startDate": q.StartDate, "endDate": q.EndDate}
	putParam(p, "teamId", itoa(q.TeamID))
	return p
}

// EventStreamQuery selects pitch-level events in a date window of one season.
type EventStreamQuery struct {
	Year      int
	StartDate string
	EndDate   string
	GamePK    int
	PitcherID int
	BatterID  int
	Limit     int
}

func (q EventStreamQuery) DataType() DataType { return EventStream }
func (q EventStreamQuery) Season() int        { return q.Year }
func (q EventStreamQuery) SeasonScoped() bool { return true }
func (q EventStreamQuery) Table() string      { return config.PitchesTable }
func (q EventStreamQuery) isQuery()           {}

func (q EventStreamQuery) Filter() store.Filter {
	f := store.Filter{Table: q.Table(), Year: q.Year, Equals: map[string]any{}, DateFrom: q.StartDate, DateTo: q.EndDate, Limit: q.Limit}
	putInt(f.Equals, "game_pk", q.GamePK)
	putInt(f.Equals, "pitcher_id", q.PitcherID)
	putInt(f.Equals, "batter_id", q.BatterID)
	return f
}

func (q EventStreamQuery) Params() map[string]string {
	p := map[string]string{"season": itoa(q.Year), "startDate": q.StartDate, "endDate": q.EndDate}
	putParam(p, "gamePk", itoa(q.GamePK))
	putParam(p, "pitcherId", itoa(q.PitcherID))
	putParam(p, "batterId", itoa(q.BatterID))
	putParam(p, "limit", itoa(q.Limit))
	return p
}

// TeamsQuery selects club reference data. It is static reference data and
// always comes from the live provider regardless of season.
type TeamsQuery struct {
	Year   int
	TeamID int
}

func (q TeamsQuery) DataType() DataType { return Teams }
func (q TeamsQuery) Season() int        { return q.Year }
func (q TeamsQuery) SeasonScoped() bool { return false }
func (q TeamsQuery) Table() string      { return config.TeamsTable }
func (q TeamsQuery) isQuery()           {}

func (q TeamsQuery) Filter() store.Filter {
	f := store.Filter{Table: q.Table(), Year: q.Year, Equals: map[string]any{}}
	putInt(f.Equals, "team_id", q.TeamID)
	return f
}

func (q TeamsQuery) Params() map[string]string {
	p := map[string]string{"season": itoa(q.Year)}
	putParam(p, "teamId", itoa(q.TeamID))
	return p
}

// --------------------------------------------------------------------------
// helpers
// --------------------------------------------------------------------------

func itoa(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func putParam(p map[string]string, k, v string) {
	if v != "" {
		p[k] = v
	}
}

func putInt(m map[string]any, k string, v int) {
	if v != 0 {
		m[k] = v
	}
}

func putStr(m map[string]any, k, v string) {
	if v != "" {
		m[k] = v
	}
}
