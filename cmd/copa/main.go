// Command copa is the tournament simulator CLI.
//
// Usage:
//
//	copa match Universitario "Alianza Lima" --seed 7
//	copa knockout "Sporting Cristal" Melgar --surprise 8
//	copa groups --seed 42
//	copa classic --save --publish
//	copa keys --json
//	copa odds --format keys -n 10000 --workers 8
//	copa teams seed
//	copa runs list --limit 10
//	copa runs show <id>
//	copa runs prune --older-than 168h
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/copa-sim/internal/config"
	"github.com/albapepper/copa-sim/internal/engine"
	"github.com/albapepper/copa-sim/internal/team"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// globals holds the persistent flags shared by every command.
type globals struct {
	surprise  int
	seed      uint64
	rng       string
	teamsFile string
	logLevel  string
	json      bool

	cfg  *config.Config
	pots []team.Pot
}

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "copa",
		Short:         "Football tournament simulator",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.IntVar(&g.surprise, "surprise", 5, "Surprise level 0-10 (default SURPRISE_LEVEL)")
	pf.Uint64Var(&g.seed, "seed", 0, "Random seed, 0 = time-seeded (default SIM_SEED)")
	pf.StringVar(&g.rng, "rng", engine.SourcePCG, "Random source: pcg or xorshift32 (default RNG)")
	pf.StringVar(&g.teamsFile, "teams", "", "Pots file (.yaml or .json), empty = built-in (default TEAMS_FILE)")
	pf.StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error (default LOG_LEVEL)")
	pf.BoolVar(&g.json, "json", false, "Print JSON instead of tables")

	root.AddCommand(matchCmd(g))
	root.AddCommand(knockoutCmd(g))
	root.AddCommand(groupsCmd(g))
	root.AddCommand(drawCmd(g))
	root.AddCommand(tournamentCmd(g, "classic", "Play a classic tournament (group stage + knockout)"))
	root.AddCommand(tournamentCmd(g, "keys", "Play a keys tournament (pot-seeded knockout phases)"))
	root.AddCommand(oddsCmd(g))
	root.AddCommand(teamsCmd(g))
	root.AddCommand(runsCmd(g))
	return root
}

// load reads the environment, then lets explicitly set flags win.
func (g *globals) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	g.cfg = cfg

	flags := cmd.Flags()
	if !flags.Changed("surprise") {
		g.surprise = cfg.SurpriseLevel
	}
	if !flags.Changed("seed") {
		g.seed = cfg.Seed
	}
	if !flags.Changed("rng") {
		g.rng = cfg.RNG
	}
	if !flags.Changed("teams") {
		g.teamsFile = cfg.TeamsFile
	}

	level := cfg.LogLevel
	if g.logLevel != "" {
		if level, err = config.ParseLogLevel(g.logLevel); err != nil {
			return err
		}
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := engine.ValidateSurprise(g.surprise); err != nil {
		return err
	}
	g.pots, err = team.LoadPotsOrDefault(g.teamsFile)
	if err != nil {
		return fmt.Errorf("load teams: %w", err)
	}
	return nil
}

// engine builds a fresh engine from the flags and reports the seed used.
func (g *globals) engine() (*engine.Engine, uint64, error) {
	src, seed, err := engine.NewSource(g.rng, g.seed)
	if err != nil {
		return nil, 0, err
	}
	eng, err := engine.New(src, g.surprise)
	if err != nil {
		return nil, 0, err
	}
	logger.Debug("Engine ready", "rng", g.rng, "seed", seed, "surprise", g.surprise)
	return eng, seed, nil
}

// findTeams resolves catalogue names.
func (g *globals) findTeams(names ...string) ([]*team.Team, error) {
	out := make([]*team.Team, len(names))
	for i, n := range names {
		t, ok := team.Find(g.pots, n)
		if !ok {
			return nil, fmt.Errorf("unknown team %q (see `copa teams list`)", n)
		}
		out[i] = t
	}
	return out, nil
}

// signalContext cancels on interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
