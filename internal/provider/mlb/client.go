// Package mlb implements provider.StatsProvider against the MLB StatsAPI (v1).
//
// StatsAPI is unauthenticated and returns one JSON document per request.
// Player stats are paged with limit/offset; rosters need one request per team.
// Rate limiting, timeouts and the circuit breaker live in provider.Upstream.
package mlb

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/hankstank/mlb-data/internal/metrics"
	"github.com/hankstank/mlb-data/internal/provider"
)

const (
	sportID      = "1"
	leagueIDs    = "103,104" // American League, National League
	playerPage   = 1000
	maxPlayerPgs = 20
)

// Client is the StatsAPI client.
type Client struct {
	up     *provider.Upstream
	logger *slog.Logger
}

var _ provider.StatsProvider = (*Client)(nil)

// NewClient creates a StatsAPI client.
func NewClient(cfg provider.UpstreamConfig, m *metrics.Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Name == "" {
		cfg.Name = "mlb"
	}
	return &Client{
		up:     provider.NewUpstream(cfg, m, logger),
		logger: logger,
	}
}

// BreakerState reports the upstream circuit breaker state.
func (c *Client) BreakerState() string { return c.up.State() }

func (c *Client) getJSON(ctx context.Context, op, path string, params url.Values, out any) error {
	body, err := c.up.Get(ctx, op, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &provider.Error{Provider: "mlb", Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// --------------------------------------------------------------------------
// Teams
// --------------------------------------------------------------------------

type ref struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type teamsResponse struct {
	Teams []struct {
		ID              int    `json:"id"`
		Name            string `json:"name"`
		Abbreviation    string `json:"abbreviation"`
		LocationName    string `json:"locationName"`
		FirstYearOfPlay string `json:"firstYearOfPlay"`
		Active          bool   `json:"active"`
		League          ref    `json:"league"`
		Division        ref    `json:"division"`
		Venue           ref    `json:"venue"`
	} `json:"teams"`
}

// Teams returns every MLB club for the season.
func (c *Client) Teams(ctx context.Context, season int) ([]provider.Team, error) {
	var resp teamsResponse
	params := url.Values{"season": {strconv.Itoa(season)}, "sportId": {sportID}}
	if err := c.getJSON(ctx, "teams", "/teams", params, &resp); err != nil {
		return nil, err
	}

	teams := make([]provider.Team, 0, len(resp.Teams))
	for _, t := range resp.Teams {
		teams = append(teams, provider.Team{
			ID:              t.ID,
			Name:            t.Name,
			Abbreviation:    t.Abbreviation,
			LocationName:    t.LocationName,
			LeagueID:        t.League.ID,
			League:          t.League.Name,
			DivisionID:      t.Division.ID,
			Division:        t.Division.Name,
			VenueID:         t.Venue.ID,
			VenueName:       t.Venue.Name,
			FirstYearOfPlay: t.FirstYearOfPlay,
			Active:          t.Active,
		})
	}
	return teams, nil
}

// --------------------------------------------------------------------------
// Stats
// --------------------------------------------------------------------------

type statsResponse struct {
	Stats []struct {
		TotalSplits int `json:"totalSplits"`
		Splits      []struct {
			Team   ref `json:"team"`
			Player struct {
				ID              int    `json:"id"`
				FullName        string `json:"fullName"`
				PrimaryPosition struct {
					Abbreviation string `json:"abbreviation"`
				} `json:"primaryPosition"`
			} `json:"player"`
			Position struct {
				Abbreviation string `json:"abbreviation"`
			} `json:"position"`
			Stat map[string]any `json:"stat"`
		} `json:"splits"`
	} `json:"stats"`
}

// TeamStats returns hitting and pitching season lines for every club.
func (c *Client) TeamStats(ctx context.Context, season int) ([]provider.TeamStat, error) {
	var out []provider.TeamStat
	for _, group := range provider.StatGroups {
		var resp statsResponse
		params := url.Values{
			"season":  {strconv.Itoa(season)},
			"sportId": {sportID},
			"stats":   {"season"},
			"group":   {group},
		}
		if err := c.getJSON(ctx, "team_stats", "/teams/stats", params, &resp); err != nil {
			return nil, err
		}
		for _, block := range resp.Stats {
			for _, s := range block.Splits {
				out = append(out, provider.TeamStat{
					TeamID:   s.Team.ID,
					TeamName: s.Team.Name,
					Group:    group,
					Stats:    s.Stat,
				})
			}
		}
	}
	return out, nil
}

// PlayerStats returns regular-season hitting and pitching lines for every
// player who appeared in the season.
func (c *Client) PlayerStats(ctx context.Context, season int) ([]provider.PlayerStat, error) {
	var out []provider.PlayerStat
	for _, group := range provider.StatGroups {
		for page := 0; page < maxPlayerPgs; page++ {
			var resp statsResponse
			params := url.Values{
				"stats":      {"season"},
				"season":     {strconv.Itoa(season)},
				"sportId":    {sportID},
				"group":      {group},
				"gameType":   {"R"},
				"playerPool": {"ALL"},
				"limit":      {strconv.Itoa(playerPage)},
				"offset":     {strconv.Itoa(page * playerPage)},
			}
			if err := c.getJSON(ctx, "player_stats", "/stats", params, &resp); err != nil {
				return nil, err
			}

			n := 0
			for _, block := range resp.Stats {
				for _, s := range block.Splits {
					n++
					pos := s.Position.Abbreviation
					if pos == "" {
						pos = s.Player.PrimaryPosition.Abbreviation
					}
					out = append(out, provider.PlayerStat{
						PlayerID:   s.Player.ID,
						PlayerName: s.Player.FullName,
						TeamID:     s.Team.ID,
						TeamName:   s.Team.Name,
						Position:   pos,
						Group:      group,
						Stats:      s.Stat,
					})
				}
			}
			if n < playerPage {
				break
			}
		}
	}
	return dedupePlayerStats(out), nil
}

// dedupePlayerStats keeps the last line per (player, group). Traded players
// show up once per club plus a combined line; the combined line comes last.
func dedupePlayerStats(in []provider.PlayerStat) []provider.PlayerStat {
	type key struct {
		id    int
		group string
	}
	idx := make(map[key]int, len(in))
	out := make([]provider.PlayerStat, 0, len(in))
	for _, ps := range in {
		k := key{ps.PlayerID, ps.Group}
		if i, ok := idx[k]; ok {
			out[i] = ps
			continue
		}
		idx[k] = len(out)
		out = append(out, ps)
	}
	return out
}

// --------------------------------------------------------------------------
// Standings
// --------------------------------------------------------------------------

type standingsResponse struct {
	Records []struct {
		League      ref `json:"league"`
		Division    ref `json:"division"`
		TeamRecords []struct {
			Team              ref    `json:"team"`
			Wins              int    `json:"wins"`
			Losses            int    `json:"losses"`
			WinningPercentage string `json:"winningPercentage"`
			GamesBack         string `json:"gamesBack"`
			DivisionRank      string `json:"divisionRank"`
			LeagueRank        string `json:"leagueRank"`
			RunsScored        int    `json:"runsScored"`
			RunsAllowed       int    `json:"runsAllowed"`
			RunDifferential   int    `json:"runDifferential"`
			Streak            struct {
				StreakCode string `json:"streakCode"`
			} `json:"streak"`
		} `json:"teamRecords"`
	} `json:"records"`
}

// Standings returns the AL and NL division standings.
func (c *Client) Standings(ctx context.Context, season int) ([]provider.Standing, error) {
	var resp standingsResponse
	params := url.Values{"leagueId": {leagueIDs}, "season": {strconv.Itoa(season)}}
	if err := c.getJSON(ctx, "standings", "/standings", params, &resp); err != nil {
		return nil, err
	}

	var out []provider.Standing
	for _, rec := range resp.Records {
		for _, tr := range rec.TeamRecords {
			pct, _ := provider.ExtractValue(tr.WinningPercentage)
			divRank, _ := strconv.Atoi(tr.DivisionRank)
			lgRank, _ := strconv.Atoi(tr.LeagueRank)
			out = append(out, provider.Standing{
				TeamID:          tr.Team.ID,
				TeamName:        tr.Team.Name,
				LeagueID:        rec.League.ID,
				DivisionID:      rec.Division.ID,
				Wins:            tr.Wins,
				Losses:          tr.Losses,
				Pct:             pct,
				GamesBack:       tr.GamesBack,
				DivisionRank:    divRank,
				LeagueRank:      lgRank,
				RunsScored:      tr.RunsScored,
				RunsAllowed:     tr.RunsAllowed,
				RunDifferential: tr.RunDifferential,
				Streak:          tr.Streak.StreakCode,
			})
		}
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Rosters
// --------------------------------------------------------------------------

type rosterResponse struct {
	Roster []struct {
		Person struct {
			ID       int    `json:"id"`
			FullName string `json:"fullName"`
		} `json:"person"`
		JerseyNumber string `json:"jerseyNumber"`
		Position     struct {
			Abbreviation string `json:"abbreviation"`
		} `json:"position"`
		Status struct {
			Description string `json:"description"`
		} `json:"status"`
	} `json:"roster"`
}

// Rosters returns the season roster of every club. A failure on one club
// fails the whole call so a sync never stores a partial year as complete.
func (c *Client) Rosters(ctx context.Context, season int) ([]provider.RosterEntry, error) {
	teams, err := c.Teams(ctx, season)
	if err != nil {
		return nil, err
	}

	var out []provider.RosterEntry
	for _, t := range teams {
		var resp rosterResponse
		path := fmt.Sprintf("/teams/%d/roster", t.ID)
		params := url.Values{"season": {strconv.Itoa(season)}, "rosterType": {"fullSeason"}}
		if err := c.getJSON(ctx, "roster", path, params, &resp); err != nil {
			return nil, err
		}
		for _, r := range resp.Roster {
			out = append(out, provider.RosterEntry{
				TeamID:       t.ID,
				PlayerID:     r.Person.ID,
				PlayerName:   r.Person.FullName,
				Position:     r.Position.Abbreviation,
				JerseyNumber: r.JerseyNumber,
				Status:       r.Status.Description,
			})
		}
		c.logger.Debug("Roster fetched", "team_id", t.ID, "season", season, "players", len(resp.Roster))
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Schedule
// --------------------------------------------------------------------------

type scheduleSide struct {
	Team  ref  `json:"team"`
	Score *int `json:"score"`
}

type scheduleResponse struct {
	Dates []struct {
		Date  string `json:"date"`
		Games []struct {
			GamePK   int    `json:"gamePk"`
			GameDate string `json:"gameDate"`
			GameType string `json:"gameType"`
			Season   string `json:"season"`
			Status   struct {
				StatusCode    string `json:"statusCode"`
				DetailedState string `json:"detailedState"`
			} `json:"status"`
			Teams struct {
				Home scheduleSide `json:"home"`
				Away scheduleSide `json:"away"`
			} `json:"teams"`
			Venue ref `json:"venue"`
		} `json:"games"`
	} `json:"dates"`
}

// Games returns the schedule between startDate and endDate (inclusive,
// YYYY-MM-DD). Scores are only kept for final games.
func (c *Client) Games(ctx context.Context, season int, startDate, endDate string) ([]provider.Game, error) {
	var resp scheduleResponse
	params := url.Values{
		"sportId":   {sportID},
		"startDate": {startDate},
		"endDate":   {endDate},
	}
	if season > 0 {
		params.Set("season", strconv.Itoa(season))
	}
	if err := c.getJSON(ctx, "schedule", "/schedule", params, &resp); err != nil {
		return nil, err
	}

	var out []provider.Game
	for _, d := range resp.Dates {
		for _, g := range d.Games {
			yr, _ := strconv.Atoi(g.Season)
			game := provider.Game{
				GamePK:     g.GamePK,
				GameDate:   d.Date,
				GameTime:   g.GameDate,
				GameType:   g.GameType,
				Season:     yr,
				HomeTeamID: g.Teams.Home.Team.ID,
				AwayTeamID: g.Teams.Away.Team.ID,
				Status:     g.Status.DetailedState,
				VenueName:  g.Venue.Name,
			}
			if g.Status.StatusCode == "F" {
				game.HomeScore = g.Teams.Home.Score
				game.AwayScore = g.Teams.Away.Score
			}
			out = append(out, game)
		}
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Transactions
// --------------------------------------------------------------------------

type transactionsResponse struct {
	Transactions []struct {
		ID          int    `json:"id"`
		Date        string `json:"date"`
		TypeCode    string `json:"typeCode"`
		TypeDesc    string `json:"typeDesc"`
		Description string `json:"description"`
		Person      ref    `json:"person"`
		FromTeam    ref    `json:"fromTeam"`
		ToTeam      ref    `json:"toTeam"`
	} `json:"transactions"`
}

// Transactions returns roster moves in the date range, optionally for one club.
func (c *Client) Transactions(ctx context.Context, startDate, endDate string, teamID int) ([]provider.Transaction, error) {
	var resp transactionsResponse
	params := url.Values{"startDate": {startDate}, "endDate": {endDate}}
	if teamID > 0 {
		params.Set("teamId", strconv.Itoa(teamID))
	}
	if err := c.getJSON(ctx, "transactions", "/transactions", params, &resp); err != nil {
		return nil, err
	}

	out := make([]provider.Transaction, 0, len(resp.Transactions))
	for _, t := range resp.Transactions {
		out = append(out, provider.Transaction{
			ID:          t.ID,
			Date:        t.Date,
			TypeCode:    t.TypeCode,
			TypeDesc:    t.TypeDesc,
			Description: t.Description,
			PlayerID:    t.Person.ID,
			PlayerName:  t.Person.Name,
			FromTeamID:  t.FromTeam.ID,
			ToTeamID:    t.ToTeam.ID,
		})
	}
	return out, nil
}
