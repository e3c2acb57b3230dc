// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/ingest.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Table names: single source of truth, matches internal/store/postgres/schema.sql
// --------------------------------------------------------------------------

const (
	TeamsTable        = "teams_historical"
	TeamStatsTable    = "team_stats_historical"
	PlayerStatsTable  = "player_stats_historical"
	StandingsTable    = "standings_historical"
	RostersTable      = "rosters_historical"
	GamesTable        = "games_historical"
	PitchesTable      = "statcast_pitches"
	TransactionsTable = "transactions"
)

// SyncTables lists the tables kept populated by the incremental sync engine,
// in the order a full sync visits them.
var SyncTables = []string{
	TeamsTable,
	TeamStatsTable,
	PlayerStatsTable,
	StandingsTable,
	RostersTable,
	GamesTable,
}

// --------------------------------------------------------------------------
// Config struct: populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// Logging
	LogLevel  string
	LogFormat string

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Season boundary
	Seasons SeasonBoundary

	// Upstream providers
	MLBBaseURL       string
	MLBRequestsPM    int
	SavantBaseURL    string
	SavantRequestsPM int
	UpstreamTimeout  time.Duration
	StoreTimeout     time.Duration

	// Storage backends
	HistoricalStore string // postgres, memory
	EventStore      string // postgres, clickhouse

	ClickHouseAddr     string
	ClickHouseUsername string
	ClickHousePassword string
	ClickHouseDatabase string

	// Cache
	CacheEnabled  bool
	CacheBackend  string // memory, redis
	CachePrefix   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Task queue
	NATSURL            string
	TaskStream         string
	TaskProcessBaseURL string
	TaskMaxDeliver     int

	// Scheduled sync
	SyncInterval    time.Duration
	SyncMaxAttempts int
	SyncConcurrency int

	MetricsEnabled bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	seasons, err := loadSeasons()
	if err != nil {
		return nil, err
	}

	historical := strings.ToLower(envOr("HISTORICAL_STORE", "postgres"))
	dbURL := envOr("DATABASE_URL", envOr("NEON_DATABASE_URL", ""))
	if dbURL == "" && historical != "memory" {
		return nil, fmt.Errorf("DATABASE_URL or NEON_DATABASE_URL must be set (or HISTORICAL_STORE=memory)")
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "text"),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		Seasons: seasons,

		MLBBaseURL:       envOr("MLB_API_BASE_URL", "https://statsapi.mlb.com/api/v1"),
		MLBRequestsPM:    envInt("MLB_API_RPM", 120),
		SavantBaseURL:    envOr("SAVANT_BASE_URL", "https://baseballsavant.mlb.com"),
		SavantRequestsPM: envInt("SAVANT_RPM", 30),
		UpstreamTimeout:  time.Duration(envInt("UPSTREAM_TIMEOUT_SECONDS", 30)) * time.Second,
		StoreTimeout:     time.Duration(envInt("STORE_TIMEOUT_SECONDS", 15)) * time.Second,

		HistoricalStore: historical,
		EventStore:      strings.ToLower(envOr("EVENT_STORE", "postgres")),

		ClickHouseAddr:     envOr("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseUsername: envOr("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: envOr("CLICKHOUSE_PASSWORD", ""),
		ClickHouseDatabase: envOr("CLICKHOUSE_DATABASE", "default"),

		CacheEnabled:  envBool("CACHE_ENABLED", true),
		CacheBackend:  strings.ToLower(envOr("CACHE_BACKEND", "memory")),
		CachePrefix:   envOr("CACHE_PREFIX", "mlb:v1"),
		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: envOr("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),

		NATSURL:            envOr("NATS_URL", ""),
		TaskStream:         envOr("TASK_STREAM", "COLLECT_TASKS"),
		TaskProcessBaseURL: envOr("TASK_PROCESS_BASE_URL", "http://localhost:8000"),
		TaskMaxDeliver:     envInt("TASK_MAX_DELIVER", 5),

		SyncInterval:    time.Duration(envInt("SYNC_INTERVAL_MINUTES", 360)) * time.Minute,
		SyncMaxAttempts: envInt("SYNC_MAX_ATTEMPTS", 3),
		SyncConcurrency: envInt("SYNC_CONCURRENCY", 4),

		MetricsEnabled: envBool("METRICS_ENABLED", true),
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func loadSeasons() (SeasonBoundary, error) {
	b := SeasonBoundary{
		MinSeason:     envInt("MIN_SEASON", DefaultMinSeason),
		CurrentSeason: envInt("CURRENT_SEASON", time.Now().Year()),
	}
	if err := b.Validate(); err != nil {
		return SeasonBoundary{}, err
	}
	return b, nil
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
