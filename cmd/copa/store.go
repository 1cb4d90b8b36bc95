package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/albapepper/copa-sim/internal/config"
	"github.com/albapepper/copa-sim/internal/db"
	"github.com/albapepper/copa-sim/internal/events"
	"github.com/albapepper/copa-sim/internal/maintenance"
	"github.com/albapepper/copa-sim/internal/team"
)

var errNoDatabase = errors.New("DATABASE_URL is not set")

// --------------------------------------------------------------------------
// teams command
// --------------------------------------------------------------------------

func teamsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teams",
		Short: "Inspect and store the team catalogue",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the pots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.json {
				return printJSON(cmd.OutOrStdout(), g.pots)
			}
			printPots(cmd.OutOrStdout(), g.pots)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Write the pots as YAML to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := team.MarshalYAML(g.pots)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Create the schema and upsert the pots into Postgres",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			if !g.cfg.HasDatabase() {
				return errNoDatabase
			}
			if err := db.EnsureSchema(ctx, g.cfg.DatabaseURL); err != nil {
				return err
			}
			return withStore(ctx, g.cfg, func(pool *db.Pool) error {
				start := time.Now()
				n, err := pool.UpsertTeams(ctx, g.pots)
				if err != nil {
					return err
				}
				logger.Info("Teams seeded", "teams", n, "pots", len(g.pots), "duration", time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	})
	return cmd
}

// --------------------------------------------------------------------------
// runs command
// --------------------------------------------------------------------------

func runsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse and prune archived runs",
	}

	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List archived runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return withStore(ctx, g.cfg, func(pool *db.Pool) error {
				runs, err := pool.ListRuns(ctx, limit, offset)
				if err != nil {
					return err
				}
				if g.json {
					return printJSON(cmd.OutOrStdout(), runs)
				}
				printRunList(cmd.OutOrStdout(), runs)
				return nil
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "Rows to return")
	list.Flags().IntVar(&offset, "offset", 0, "Rows to skip")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print an archived run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return withStore(ctx, g.cfg, func(pool *db.Pool) error {
				raw, err := pool.GetRun(ctx, args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
				return err
			})
		},
	}

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than the retention",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			retention := olderThan
			if retention <= 0 {
				retention = g.cfg.RunRetention
			}
			return withStore(ctx, g.cfg, func(pool *db.Pool) error {
				n, err := maintenance.Prune(ctx, pool, nil, retention, logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d runs\n", n)
				return nil
			})
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 0, "Retention, 0 = RUN_RETENTION_HOURS")

	cmd.AddCommand(list, show, prune)
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// withStore connects to Postgres for the duration of fn.
func withStore(ctx context.Context, cfg *config.Config, fn func(pool *db.Pool) error) error {
	if !cfg.HasDatabase() {
		return errNoDatabase
	}
	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	return fn(pool)
}

// publishEvent sends one event to NATS and disconnects.
func publishEvent(ctx context.Context, cfg *config.Config, e events.Event) error {
	if cfg.NATSURL == "" {
		return errors.New("NATS_URL is not set")
	}
	pub, err := events.NewNATS(cfg.NATSURL, cfg.NATSSubject, logger)
	if err != nil {
		return err
	}
	defer pub.Close()
	if err := pub.Publish(ctx, e); err != nil {
		return err
	}
	logger.Info("Event published", "type", e.Type, "subject", cfg.NATSSubject)
	return nil
}
