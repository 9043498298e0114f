// Package config provides centralized configuration loaded from environment
// variables. Shared by cmd/racecrawl and internal/statusapi.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Table names — single source of truth, matches store/schema.sql
// --------------------------------------------------------------------------

const (
	LeaguesTable     = "leagues"
	SeriesTable      = "series"
	SeasonsTable     = "seasons"
	RacesTable       = "races"
	DriversTable     = "drivers"
	TeamsTable       = "teams"
	RaceResultsTable = "race_results"
	ScrapeLogTable   = "scrape_log"
	SchemaAlertTable = "schema_alerts"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// Status server
	StatusHost string
	StatusPort int
	Debug      bool

	// CORS (status server)
	CORSAllowOrigins []string

	// Fetch / rate limiting — see internal/fetch.Gate
	UserAgent      string
	RateLimitMin   time.Duration
	RateLimitMax   time.Duration
	RequestsPerMin int
	MaxRetries     int
	BackoffFactor  int
	RequestTimeout time.Duration
	RenderWait     time.Duration

	// Orchestrator policy
	CacheMaxAgeDays  int
	AlwaysFetchRoots bool

	// Maintenance ticker (refresh_all_drivers)
	MaintenanceInterval time.Duration

	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("RACECRAWL_DATABASE_URL", envOr("DATABASE_URL", ""))
	if dbURL == "" {
		return nil, fmt.Errorf("RACECRAWL_DATABASE_URL or DATABASE_URL must be set")
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 1),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 4),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		StatusHost: envOr("STATUS_HOST", "127.0.0.1"),
		StatusPort: envInt("STATUS_PORT", 8088),
		Debug:      envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{"http://localhost:3000"}),

		UserAgent:      envOr("RACECRAWL_USER_AGENT", "racecrawl/1.0 (+polite crawler; contact: ops@example.invalid)"),
		RateLimitMin:   time.Duration(envFloatMillis("RATE_LIMIT_MIN_SECONDS", 2.0)) * time.Millisecond,
		RateLimitMax:   time.Duration(envFloatMillis("RATE_LIMIT_MAX_SECONDS", 4.0)) * time.Millisecond,
		RequestsPerMin: envInt("RATE_LIMIT_CEILING_PER_MIN", 60),
		MaxRetries:     envInt("MAX_RETRIES", 3),
		BackoffFactor:  envInt("BACKOFF_FACTOR", 2),
		RequestTimeout: time.Duration(envInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		RenderWait:     time.Duration(envInt("RENDER_WAIT_MS", 5000)) * time.Millisecond,

		CacheMaxAgeDays:  envInt("CACHE_MAX_AGE_DAYS", 7),
		AlwaysFetchRoots: envBool("ALWAYS_FETCH_ROOTS", true),

		MaintenanceInterval: time.Duration(envInt("MAINTENANCE_INTERVAL_MINUTES", 0)) * time.Minute,

		LogLevel: envOr("LOG_LEVEL", "INFO"),
	}, nil
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
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envFloatMillis reads a float-seconds env var and returns it in milliseconds,
// so callers can build a time.Duration without losing sub-second precision.
func envFloatMillis(key string, fallbackSeconds float64) int {
	v := fallbackSeconds
	if s := os.Getenv(key); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			v = f
		}
	}
	return int(v * 1000)
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
