package config

import (
	"errors"
	"fmt"
)

// DefaultMinSeason is the earliest season the historical store holds unless
// MIN_SEASON overrides it.
const DefaultMinSeason = 2015

// ErrInvalidYear is returned (wrapped in *YearError) when a year falls
// outside the closed-season range.
var ErrInvalidYear = errors.New("invalid year")

// YearError describes a year rejected by the season boundary.
type YearError struct {
	Year int
	Min  int
	Max  int
}

func (e *YearError) Error() string {
	return fmt.Sprintf("year %d must be between %d and %d", e.Year, e.Min, e.Max)
}

func (e *YearError) Unwrap() error { return ErrInvalidYear }

// SeasonBoundary splits seasons into closed (historical) and open (live).
// Seasons before CurrentSeason are closed; CurrentSeason and later are open.
type SeasonBoundary struct {
	MinSeason     int
	CurrentSeason int
}

// Validate checks that the boundary describes at least one season.
func (b SeasonBoundary) Validate() error {
	if b.MinSeason <= 0 || b.CurrentSeason <= 0 {
		return fmt.Errorf("season boundary requires positive years (min=%d current=%d)", b.MinSeason, b.CurrentSeason)
	}
	if b.MinSeason > b.CurrentSeason {
		return fmt.Errorf("MIN_SEASON %d is after CURRENT_SEASON %d", b.MinSeason, b.CurrentSeason)
	}
	return nil
}

// IsClosed reports whether season is complete and eligible for historical storage.
func (b SeasonBoundary) IsClosed(season int) bool {
	return season < b.CurrentSeason
}

// LastClosed returns the most recent completed season.
func (b SeasonBoundary) LastClosed() int {
	return b.CurrentSeason - 1
}

// ClosedSeasons returns every season from MinSeason through CurrentSeason-1.
func (b SeasonBoundary) ClosedSeasons() []int {
	if b.LastClosed() < b.MinSeason {
		return nil
	}
	years := make([]int, 0, b.LastClosed()-b.MinSeason+1)
	for y := b.MinSeason; y <= b.LastClosed(); y++ {
		years = append(years, y)
	}
	return years
}

// ValidateClosed rejects years that may not be written to historical storage.
func (b SeasonBoundary) ValidateClosed(year int) error {
	if year < b.MinSeason || year > b.LastClosed() {
		return &YearError{Year: year, Min: b.MinSeason, Max: b.LastClosed()}
	}
	return nil
}

// ValidateCollectable rejects years outside MinSeason..CurrentSeason. Pitch
// collection may target the open season because individual pitches never change.
func (b SeasonBoundary) ValidateCollectable(year int) error {
	if year < b.MinSeason || year > b.CurrentSeason {
		return &YearError{Year: year, Min: b.MinSeason, Max: b.CurrentSeason}
	}
	return nil
}
