// Package db provides a pgxpool-based connection pool with prepared statement
// registration, schema bootstrap and the run archive.
package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/copa-sim/internal/config"
)

//go:embed schema.sql
var schema string

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// EnsureSchema creates the tables, indexes and notify trigger if missing.
// It runs on a plain connection because prepared statements reference the
// tables it creates.
func EnsureSchema(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers all statements the API and CLI use.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Runs
		"run_insert": `INSERT INTO ` + config.RunsTable + ` (id, format, surprise, seed, champion, runner_up, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		"run_by_id": "SELECT payload FROM " + config.RunsTable + " WHERE id = $1",
		"run_list": `SELECT id, format, surprise, seed::text, COALESCE(champion, ''), COALESCE(runner_up, ''), created_at
			FROM ` + config.RunsTable + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		"run_prune": "DELETE FROM " + config.RunsTable + " WHERE created_at < $1",
		"run_champions": `SELECT champion, COUNT(*) FROM ` + config.RunsTable + `
			WHERE champion IS NOT NULL GROUP BY champion ORDER BY COUNT(*) DESC, champion LIMIT $1`,

		// Teams
		"team_upsert": `INSERT INTO ` + config.TeamsTable + ` (name, pot, position, level, goal_capacity, defense_capacity, hierarchy, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			ON CONFLICT (name) DO UPDATE SET pot = EXCLUDED.pot, position = EXCLUDED.position,
				level = EXCLUDED.level, goal_capacity = EXCLUDED.goal_capacity,
				defense_capacity = EXCLUDED.defense_capacity, hierarchy = EXCLUDED.hierarchy,
				updated_at = NOW()`,
		"team_list": `SELECT name, pot, level, goal_capacity, defense_capacity, hierarchy
			FROM ` + config.TeamsTable + ` ORDER BY pot, position`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
