package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hankstank/mlb-data/internal/config"
	"github.com/hankstank/mlb-data/internal/provider"
)

const (
	dateLayout = "2006-01-02"

	// MaxLimit caps the limit parameter on every variant.
	MaxLimit = 5000
	// MaxEventDays bounds one event-stream request.
	MaxEventDays = 31
)

// Parse builds the variant for dataType from request parameters. Season
// defaults to b.CurrentSeason and is validated against the boundary; a bad
// season is reported as *config.YearError, every other rejection as *Error.
func Parse(dataType string, v url.Values, b config.SeasonBoundary) (Query, error) {
	p := params{v: v}

	switch DataType(dataType) {
	case TeamStats:
		q := TeamStatsQuery{}
		q.Year = p.season(b)
		q.TeamID = p.int("teamId")
		q.Group = p.group()
		q.Order = p.order()
		q.Limit = p.limit()
		return finish(q, p.err, b)

	case PlayerStats:
		q := PlayerStatsQuery{}
		q.Year = p.season(b)
		q.PlayerID = p.int("playerId")
		q.TeamID = p.int("teamId")
		q.Group = p.group()
		q.Order = p.order()
		q.Limit = p.limit()
		return finish(q, p.err, b)

	case Standings:
		q := StandingsQuery{Year: p.season(b), TeamID: p.int("teamId")}
		return finish(q, p.err, b)

	case Roster:
		q := RosterQuery{Year: p.season(b), TeamID: p.int("teamId")}
		return finish(q, p.err, b)

	case Schedule:
		q := ScheduleQuery{}
		q.Year = p.season(b)
		q.TeamID = p.int("teamId")
		q.StartDate, q.EndDate = p.dateRange(false)
		q.Limit = p.limit()
		return finish(q, p.err, b)

	case Transactions:
		q := TransactionsQuery{TeamID: p.int("teamId")}
		q.StartDate, q.EndDate = p.dateRange(false)
		if q.StartDate == "" {
			q.StartDate = fmt.Sprintf("%d-01-01", b.CurrentSeason)
		}
		if q.EndDate == "" {
			q.EndDate = fmt.Sprintf("%d-12-31", b.CurrentSeason)
		}
		if p.err == nil && q.StartDate > q.EndDate {
			p.fail("endDate", "must not be before startDate")
		}
		return finish(q, p.err, b)

	case EventStream:
		return parseEventStream(p, b)

	case Teams:
		q := TeamsQuery{Year: p.season(b), TeamID: p.int("teamId")}
		return finish(q, p.err, b)
	}

	return nil, &Error{Field: "dataType", Reason: fmt.Sprintf("unsupported data type %q", dataType)}
}

func parseEventStream(p params, b config.SeasonBoundary) (Query, error) {
	q := EventStreamQuery{}
	q.StartDate, q.EndDate = p.dateRange(true)
	q.GamePK = p.int("gamePk")
	q.PitcherID = p.int("pitcherId")
	q.BatterID = p.int("batterId")
	q.Limit = p.limit()
	if p.err != nil {
		return nil, p.err
	}
	if q.EndDate == "" {
		q.EndDate = q.StartDate
	}

	start, _ := time.Parse(dateLayout, q.StartDate)
	end, _ := time.Parse(dateLayout, q.EndDate)
	switch {
	case end.Before(start):
		return nil, &Error{Field: "endDate", Reason: "must not be before startDate"}
	case start.Year() != end.Year():
		return nil, &Error{Field: "endDate", Reason: "range must stay within one season"}
	case int(end.Sub(start).Hours()/24)+1 > MaxEventDays:
		return nil, &Error{Field: "endDate", Reason: fmt.Sprintf("range exceeds %d days", MaxEventDays)}
	}

	q.Year = start.Year()
	if s := p.first("season", "year"); s != "" && s != strconv.Itoa(q.Year) {
		return nil, &Error{Field: "season", Reason: "does not match startDate"}
	}
	return finish(q, nil, b)
}

func finish(q Query, err error, b config.SeasonBoundary) (Query, error) {
	if err != nil {
		return nil, err
	}
	if q.Season() != 0 {
		if err := b.ValidateCollectable(q.Season()); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// params reads url.Values and keeps the first failure.
type params struct {
	v   url.Values
	err error
}

func (p *params) fail(field, reason string) {
	if p.err == nil {
		p.err = &Error{Field: field, Reason: reason}
	}
}

func (p *params) first(keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(p.v.Get(k)); s != "" {
			return s
		}
	}
	return ""
}

func (p *params) season(b config.SeasonBoundary) int {
	s := p.first("season", "year")
	if s == "" {
		return b.CurrentSeason
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.fail("season", "must be an integer year")
		return 0
	}
	return n
}

func (p *params) int(key string) int {
	s := p.first(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		p.fail(key, "must be a positive integer")
		return 0
	}
	return n
}

func (p *params) limit() int {
	n := p.int("limit")
	if n > MaxLimit {
		p.fail("limit", fmt.Sprintf("must be at most %d", MaxLimit))
		return 0
	}
	return n
}

func (p *params) group() string {
	s := strings.ToLower(p.first("stats", "group"))
	if s == "" {
		return ""
	}
	for _, g := range provider.StatGroups {
		if s == g {
			return s
		}
	}
	p.fail("stats", "must be hitting or pitching")
	return ""
}

// order reads orderBy (or its alias sortStat). Stat leaderboards read
// best-first, so direction defaults to desc.
func (p *params) order() Order {
	by := p.first("orderBy", "sortStat")
	if by == "" {
		return Order{}
	}
	for _, r := range by {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			p.fail("orderBy", "must be a column or stat name")
			return Order{}
		}
	}
	switch strings.ToLower(p.first("direction")) {
	case "", "desc":
		return Order{By: by, Desc: true}
	case "asc":
		return Order{By: by}
	default:
		p.fail("direction", "must be asc or desc")
		return Order{}
	}
}

func (p *params) date(key string) string {
	s := p.first(key)
	if s == "" {
		return ""
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		p.fail(key, "must be YYYY-MM-DD")
		return ""
	}
	return s
}

func (p *params) dateRange(requireStart bool) (string, string) {
	start, end := p.date("startDate"), p.date("endDate")
	if p.err != nil {
		return "", ""
	}
	if requireStart && start == "" {
		p.fail("startDate", "is required")
		return "", ""
	}
	if start != "" && end != "" && start > end {
		p.fail("endDate", "must not be before startDate")
		return "", ""
	}
	return start, end
}
