package seed

import (
	"context"
	"fmt"

	"github.com/hankstank/mlb-data/internal/config"
	"github.com/hankstank/mlb-data/internal/provider"
	"github.com/hankstank/mlb-data/internal/store"
)

// SeasonWindow is the date range a season's schedule sync covers, spring
// training through the World Series.
func SeasonWindow(year int) (start, end string) {
	return fmt.Sprintf("%d-03-01", year), fmt.Sprintf("%d-11-30", year)
}

// FetchRows pulls one season of table from the provider in row form.
func FetchRows(ctx context.Context, p provider.StatsProvider, table string, year int) ([]store.Row, error) {
	switch table {
	case config.TeamsTable:
		teams, err := p.Teams(ctx, year)
		if err != nil {
			return nil, err
		}
		return store.TeamRows(year, teams), nil

	case config.TeamStatsTable:
		stats, err := p.TeamStats(ctx, year)
		if err != nil {
			return nil, err
		}
		return store.TeamStatRows(year, stats), nil

	case config.PlayerStatsTable:
		stats, err := p.PlayerStats(ctx, year)
		if err != nil {
			return nil, err
		}
		return store.PlayerStatRows(year, stats), nil

	case config.StandingsTable:
		standings, err := p.Standings(ctx, year)
		if err != nil {
			return nil, err
		}
		return store.StandingRows(year, standings), nil

	case config.RostersTable:
		roster, err := p.Rosters(ctx, year)
		if err != nil {
			return nil, err
		}
		return store.RosterRows(year, roster), nil

	case config.GamesTable:
		start, end := SeasonWindow(year)
		games, err := p.Games(ctx, year, start, end)
		if err != nil {
			return nil, err
		}
		return store.GameRows(year, games), nil
	}
	return nil, fmt.Errorf("%w %q", store.ErrUnknownTable, table)
}
