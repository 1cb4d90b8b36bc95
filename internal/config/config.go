// Package config provides centralized configuration loaded from environment
// variables. Shared by cmd/api and cmd/copa.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/albapepper/copa-sim/internal/engine"
)

// --------------------------------------------------------------------------
// Table names — single source of truth, matches schema.sql
// --------------------------------------------------------------------------

const (
	RunsTable  = "runs"
	TeamsTable = "teams"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database (optional; empty disables run persistence)
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool
	LogLevel    slog.Level

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Cache
	CacheEnabled bool

	// Simulation defaults
	SurpriseLevel int
	RNG           string
	Seed          uint64
	TeamsFile     string

	// Events
	NATSURL     string
	NATSSubject string

	// Maintenance
	RunRetention  time.Duration
	PruneInterval time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	level, err := ParseLogLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:    envOr("DATABASE_URL", ""),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 1),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 5),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),
		LogLevel:    level,

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:4321",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		CacheEnabled: envBool("CACHE_ENABLED", true),

		SurpriseLevel: envInt("SURPRISE_LEVEL", 5),
		RNG:           envOr("RNG", engine.SourcePCG),
		Seed:          envUint("SIM_SEED", 0),
		TeamsFile:     envOr("TEAMS_FILE", ""),

		NATSURL:     envOr("NATS_URL", ""),
		NATSSubject: envOr("NATS_SUBJECT", "copa.runs"),

		RunRetention:  time.Duration(envInt("RUN_RETENTION_HOURS", 168)) * time.Hour,
		PruneInterval: time.Duration(envInt("PRUNE_INTERVAL_MINUTES", 60)) * time.Minute,
	}

	// DEBUG=true turns on debug logging unless LOG_LEVEL says otherwise.
	if cfg.Debug && os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = slog.LevelDebug
	}

	if err := engine.ValidateSurprise(cfg.SurpriseLevel); err != nil {
		return nil, fmt.Errorf("SURPRISE_LEVEL: %w", err)
	}
	switch cfg.RNG {
	case engine.SourcePCG, engine.SourceXorshift32:
	default:
		return nil, fmt.Errorf("RNG must be %q or %q, got %q", engine.SourcePCG, engine.SourceXorshift32, cfg.RNG)
	}
	return cfg, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// HasDatabase reports whether run persistence is configured.
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// ParseLogLevel maps debug/info/warn/error to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
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

func envUint(key string, fallback uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
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
