package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/sony/gobreaker/v2"
)

// StatsProvider is the live MLB statistics upstream.
type StatsProvider interface {
	Teams(ctx context.Context, season int) ([]Team, error)
	TeamStats(ctx context.Context, season int) ([]TeamStat, error)
	PlayerStats(ctx context.Context, season int) ([]PlayerStat, error)
	Standings(ctx context.Context, season int) ([]Standing, error)
	Rosters(ctx context.Context, season int) ([]RosterEntry, error)
	Games(ctx context.Context, season int, startDate, endDate string) ([]Game, error)
	Transactions(ctx context.Context, startDate, endDate string, teamID int) ([]Transaction, error)
}

// EventProvider is the pitch-level event upstream.
type EventProvider interface {
	Pitches(ctx context.Context, startDate, endDate string) ([]Pitch, error)
}

// Error describes a failed upstream call.
type Error struct {
	Provider   string
	Op         string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether retrying the call may succeed.
func (e *Error) Transient() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	case e.StatusCode >= 400:
		return false
	}
	return isTransientCause(e.Err)
}

// IsTransient reports whether err is worth retrying: timeouts, 5xx, 429 and
// an open circuit breaker are transient; provider 4xx and validation errors
// are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Transient()
	}
	return isTransientCause(err)
}

func isTransientCause(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return false
}
