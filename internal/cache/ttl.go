package cache

import "time"

// Category groups data by how quickly it goes stale.
type Category string

const (
	Static     Category = "static"      // teams, venues
	SemiStatic Category = "semi-static" // rosters
	Dynamic    Category = "dynamic"     // standings, schedule, transactions
	Live       Category = "live"        // in-game data
	Analytics  Category = "analytics"   // season stat lines, pitch events
	Historical Category = "historical"  // closed-season aggregates
)

// Context adjusts a category's base TTL for where the data came from.
type Context int

const (
	ContextDefault Context = iota
	ContextLive
	ContextLiveGame
	ContextHistorical
)

const (
	LiveCap         = 30 * time.Second
	LiveGameTTL     = 10 * time.Second
	HistoricalFloor = 24 * time.Hour
)

var baseTTL = map[Category]time.Duration{
	Static:     24 * time.Hour,
	SemiStatic: time.Hour,
	Dynamic:    15 * time.Minute,
	Live:       LiveCap,
	Analytics:  time.Hour,
	Historical: 24 * time.Hour,
}

// TTL returns the lifetime for an entry of category c served in context ctx.
// Live contexts are capped at 30s, a live game window uses 10s, and
// historical contexts are floored at 24h.
func TTL(c Category, ctx Context) time.Duration {
	ttl, ok := baseTTL[c]
	if !ok {
		ttl = baseTTL[Dynamic]
	}
	switch ctx {
	case ContextLive:
		ttl = min(ttl, LiveCap)
	case ContextLiveGame:
		ttl = LiveGameTTL
	case ContextHistorical:
		ttl = max(ttl, HistoricalFloor)
	}
	return ttl
}
