package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/albapepper/copa-sim/internal/bracket"
	"github.com/albapepper/copa-sim/internal/db"
	"github.com/albapepper/copa-sim/internal/events"
	"github.com/albapepper/copa-sim/internal/tournament"
)

// --------------------------------------------------------------------------
// match / knockout
// --------------------------------------------------------------------------

func matchCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "match <teamA> <teamB>",
		Short: "Play one regulation match",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			teams, err := g.findTeams(args...)
			if err != nil {
				return err
			}
			eng, seed, err := g.engine()
			if err != nil {
				return err
			}
			res := eng.SimulateMatch(teams[0], teams[1])
			if g.json {
				return printJSON(cmd.OutOrStdout(), map[string]any{"seed": seed, "match": res})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d - %d %s  (seed %d)\n", res.TeamA.Name, res.ScoreA, res.ScoreB, res.TeamB.Name, seed)
			return nil
		},
	}
}

func knockoutCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "knockout <teamA> <teamB>",
		Short: "Decide a knockout tie (extra time and penalties when level)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			teams, err := g.findTeams(args...)
			if err != nil {
				return err
			}
			eng, seed, err := g.engine()
			if err != nil {
				return err
			}
			m := eng.ResolveKnockout(teams[0], teams[1])
			if g.json {
				return printJSON(cmd.OutOrStdout(), map[string]any{"seed": seed, "matchup": m})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  (seed %d)\n", describeTie(m), seed)
			return nil
		},
	}
}

// --------------------------------------------------------------------------
// draw / groups
// --------------------------------------------------------------------------

func drawCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "draw",
		Short: "Draw the groups and print them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, seed, err := g.engine()
			if err != nil {
				return err
			}
			s, err := bracket.NewDrawState(g.pots)
			if err != nil {
				return err
			}
			for !s.PotOneDrained() {
				var d bracket.Drawn
				if s, d, err = bracket.DrawNext(eng.Source(), s); err != nil {
					return err
				}
				logger.Debug("Drawn", "team", d.Team.Name, "group", d.Group)
			}
			if s, err = bracket.DrawRest(eng.Source(), s); err != nil {
				return err
			}
			if g.json {
				return printJSON(cmd.OutOrStdout(), map[string]any{"seed": seed, "groups": s.Groups})
			}
			printGroups(cmd.OutOrStdout(), s.Groups)
			fmt.Fprintf(cmd.OutOrStdout(), "seed %d\n", seed)
			return nil
		},
	}
}

func groupsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "Draw the groups and play the group stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, seed, err := g.engine()
			if err != nil {
				return err
			}
			groups, err := bracket.DrawGroups(eng.Source(), g.pots)
			if err != nil {
				return err
			}
			results := eng.SimulateGroupStage(groups)
			if g.json {
				return printJSON(cmd.OutOrStdout(), map[string]any{"seed": seed, "results": results})
			}
			for _, r := range results {
				printStandings(cmd.OutOrStdout(), r)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seed %d\n", seed)
			return nil
		},
	}
}

// --------------------------------------------------------------------------
// classic / keys
// --------------------------------------------------------------------------

func tournamentCmd(g *globals, format, short string) *cobra.Command {
	var save, publish bool
	cmd := &cobra.Command{
		Use:   format,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			eng, seed, err := g.engine()
			if err != nil {
				return err
			}
			var run *tournament.Run
			if tournament.Format(format) == tournament.FormatKeys {
				run, err = tournament.RunKeys(ctx, eng, g.pots, logger)
			} else {
				run, err = tournament.RunClassic(ctx, eng, g.pots, logger)
			}
			if err != nil {
				return err
			}
			run.Seed = seed
			logger.Info("Tournament finished", "summary", run.Summary())

			if save {
				if err := withStore(ctx, g.cfg, func(pool *db.Pool) error { return pool.SaveRun(ctx, run) }); err != nil {
					return fmt.Errorf("save run: %w", err)
				}
				logger.Info("Run archived", "run", run.ID)
			}
			if publish {
				if err := publishEvent(ctx, g.cfg, events.RunCompleted(run)); err != nil {
					return err
				}
			}

			if g.json {
				return printJSON(cmd.OutOrStdout(), run)
			}
			printRun(cmd.OutOrStdout(), run)
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Archive the run in Postgres (DATABASE_URL)")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish a run.completed event to NATS (NATS_URL)")
	return cmd
}

// --------------------------------------------------------------------------
// odds
// --------------------------------------------------------------------------

func oddsCmd(g *globals) *cobra.Command {
	var (
		format  string
		n       int
		workers int
		top     int
		publish bool
	)
	cmd := &cobra.Command{
		Use:   "odds",
		Short: "Estimate title odds with a Monte-Carlo batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			f, err := tournament.ParseFormat(format)
			if err != nil {
				return err
			}
			start := time.Now()
			odds, err := tournament.Simulate(ctx, tournament.MonteCarloOptions{
				Pots:     g.pots,
				Format:   f,
				Surprise: g.surprise,
				Source:   g.rng,
				Seed:     g.seed,
				N:        n,
				Workers:  workers,
				Logger:   logger,
			})
			if err != nil {
				return err
			}
			logger.Info("Odds finished", "duration", time.Since(start).Round(time.Millisecond))

			if publish {
				if err := publishEvent(ctx, g.cfg, events.OddsCompleted(odds)); err != nil {
					return err
				}
			}
			if g.json {
				return printJSON(cmd.OutOrStdout(), odds)
			}
			printOdds(cmd.OutOrStdout(), odds, top)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", string(tournament.FormatClassic), "Tournament format: classic or keys")
	cmd.Flags().IntVarP(&n, "runs", "n", 10000, "Number of tournaments to play")
	cmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "Concurrent worker count")
	cmd.Flags().IntVar(&top, "top", 20, "Rows to print, 0 = all")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish an odds.completed event to NATS (NATS_URL)")
	return cmd
}
