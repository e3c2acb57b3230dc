// Package provider defines canonical data types that all upstream clients
// normalize into. These structs are the contract between the provider
// clients and the sync engine: clients output these, the store package
// turns them into historical rows.
//
// Adding a new upstream means implementing StatsProvider or EventProvider.
// The sync engine and the historical schema never change.
package provider

// Stat groups used by the stats endpoints.
const (
	GroupHitting  = "hitting"
	GroupPitching = "pitching"
)

// StatGroups lists the stat groups fetched for team and player stats.
var StatGroups = []string{GroupHitting, GroupPitching}

// Team is the canonical team profile shape.
type Team struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Abbreviation    string `json:"abbreviation,omitempty"`
	LocationName    string `json:"location_name,omitempty"`
	LeagueID        int    `json:"league_id,omitempty"`
	League          string `json:"league,omitempty"`
	DivisionID      int    `json:"division_id,omitempty"`
	Division        string `json:"division,omitempty"`
	VenueID         int    `json:"venue_id,omitempty"`
	VenueName       string `json:"venue_name,omitempty"`
	FirstYearOfPlay string `json:"first_year_of_play,omitempty"`
	Active          bool   `json:"active"`
}

// TeamStat is one team's season line for a stat group.
// Stats is a flat map of stat key → value as returned upstream.
type TeamStat struct {
	TeamID   int            `json:"team_id"`
	TeamName string         `json:"team_name"`
	Group    string         `json:"stat_group"`
	Stats    map[string]any `json:"stats"`
}

// PlayerStat is one player's season line for a stat group.
type PlayerStat struct {
	PlayerID   int            `json:"player_id"`
	PlayerName string         `json:"player_name"`
	TeamID     int            `json:"team_id,omitempty"`
	TeamName   string         `json:"team_name,omitempty"`
	Position   string         `json:"position,omitempty"`
	Group      string         `json:"stat_group"`
	Stats      map[string]any `json:"stats"`
}

// Standing is a team's final (or current) standings row.
type Standing struct {
	TeamID          int     `json:"team_id"`
	TeamName        string  `json:"team_name"`
	LeagueID        int     `json:"league_id"`
	DivisionID      int     `json:"division_id"`
	Wins            int     `json:"wins"`
	Losses          int     `json:"losses"`
	Pct             float64 `json:"pct"`
	GamesBack       string  `json:"games_back,omitempty"`
	DivisionRank    int     `json:"division_rank,omitempty"`
	LeagueRank      int     `json:"league_rank,omitempty"`
	RunsScored      int     `json:"runs_scored,omitempty"`
	RunsAllowed     int     `json:"runs_allowed,omitempty"`
	RunDifferential int     `json:"run_differential,omitempty"`
	Streak          string  `json:"streak,omitempty"`
}

// RosterEntry is one player on a team's season roster.
type RosterEntry struct {
	TeamID       int    `json:"team_id"`
	PlayerID     int    `json:"player_id"`
	PlayerName   string `json:"player_name"`
	Position     string `json:"position,omitempty"`
	JerseyNumber string `json:"jersey_number,omitempty"`
	Status       string `json:"status,omitempty"`
}

// Game is one scheduled or completed game.
type Game struct {
	GamePK     int    `json:"game_pk"`
	GameDate   string `json:"game_date"` // "YYYY-MM-DD"
	GameTime   string `json:"game_datetime,omitempty"`
	GameType   string `json:"game_type"`
	Season     int    `json:"season"`
	HomeTeamID int    `json:"home_team_id"`
	AwayTeamID int    `json:"away_team_id"`
	HomeScore  *int   `json:"home_score,omitempty"`
	AwayScore  *int   `json:"away_score,omitempty"`
	Status     string `json:"status"`
	VenueName  string `json:"venue_name,omitempty"`
}

// Transaction is a roster move (trade, signing, assignment...).
type Transaction struct {
	ID          int    `json:"id"`
	Date        string `json:"date"`
	TypeCode    string `json:"type_code"`
	TypeDesc    string `json:"type_desc"`
	Description string `json:"description"`
	PlayerID    int    `json:"player_id,omitempty"`
	PlayerName  string `json:"player_name,omitempty"`
	FromTeamID  int    `json:"from_team_id,omitempty"`
	ToTeamID    int    `json:"to_team_id,omitempty"`
}

// Pitch is a single Statcast pitch event.
// Data preserves every CSV column for the row.
type Pitch struct {
	GamePK       int               `json:"game_pk"`
	AtBatNumber  int               `json:"at_bat_number"`
	PitchNumber  int               `json:"pitch_number"`
	GameDate     string            `json:"game_date"`
	PitcherID    int               `json:"pitcher_id"`
	BatterID     int               `json:"batter_id"`
	PitchType    string            `json:"pitch_type,omitempty"`
	ReleaseSpeed *float64          `json:"release_speed,omitempty"`
	Events       string            `json:"events,omitempty"`
	Description  string            `json:"description,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
}
