// Package tournament runs whole tournaments on top of the engine: the
// classic format (group stage, then knockout from the round of 32) and the
// keys format (pot-seeded knockout phases, then the same knockout).
package tournament

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/albapepper/copa-sim/internal/bracket"
	"github.com/albapepper/copa-sim/internal/engine"
	"github.com/albapepper/copa-sim/internal/team"
)

// Format selects how a tournament is seeded.
type Format string

const (
	FormatClassic Format = "classic"
	FormatKeys    Format = "keys"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatClassic, FormatKeys:
		return Format(s), nil
	case "":
		return FormatClassic, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Stage names in play order.
const (
	StagePhase1    = "phase1"
	StagePhase2    = "phase2"
	StageRoundOf32 = "roundOf32"
	StageRoundOf16 = "roundOf16"
	StageQuarters  = "quarters"
	StageSemis     = "semis"
	StageFinal     = "final"
)

// knockoutStages names the rounds from the round of 32 on, keyed by the
// number of ties in the round.
var knockoutStages = map[int]string{
	16: StageRoundOf32,
	8:  StageRoundOf16,
	4:  StageQuarters,
	2:  StageSemis,
	1:  StageFinal,
}

// StageName names a knockout round by its number of ties.
func StageName(ties int) string {
	if name, ok := knockoutStages[ties]; ok {
		return name
	}
	return fmt.Sprintf("roundOf%d", ties*2)
}

var (
	ErrUnknownFormat = errors.New("unknown tournament format")
	ErrNoGroups      = errors.New("group draw produced no full groups")
)

// Stage is one played knockout round.
type Stage struct {
	Name     string           `json:"name"`
	Matchups []engine.Matchup `json:"matchups"`
}

// Run is a finished tournament.
type Run struct {
	ID        string               `json:"id"`
	Format    Format               `json:"format"`
	Surprise  int                  `json:"surprise"`
	Seed      uint64               `json:"seed"`
	Groups    []engine.GroupResult `json:"groups,omitempty"`
	Stages    []Stage              `json:"stages"`
	Champion  *team.Team           `json:"champion"`
	RunnerUp  *team.Team           `json:"runnerUp"`
	CreatedAt time.Time            `json:"createdAt"`
	Duration  time.Duration        `json:"duration"`
}

// Summary returns a human-readable summary.
func (r *Run) Summary() string {
	return fmt.Sprintf("run=%s format=%s surprise=%d seed=%d groups=%d stages=%d champion=%s runner_up=%s dur=%s",
		r.ID, r.Format, r.Surprise, r.Seed, len(r.Groups), len(r.Stages),
		r.Champion, r.RunnerUp, r.Duration.Round(time.Microsecond))
}

// Stage returns the named stage, if played.
func (r *Run) Stage(name string) (Stage, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return Stage{}, false
}

// Semifinalists returns the four teams of the semi-finals, if played.
func (r *Run) Semifinalists() []*team.Team {
	s, ok := r.Stage(StageSemis)
	if !ok {
		return nil
	}
	var out []*team.Team
	for _, m := range s.Matchups {
		out = append(out, m.TeamA, m.TeamB)
	}
	return out
}

// Options configures a single run.
type Options struct {
	Format   Format
	Surprise int
	Source   string // engine source kind
	Seed     uint64 // 0 = time-seeded
}

// Play builds an engine from opts and runs one tournament with pots.
func Play(ctx context.Context, pots []team.Pot, opts Options, logger *slog.Logger) (*Run, error) {
	src, seed, err := engine.NewSource(opts.Source, opts.Seed)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(src, opts.Surprise)
	if err != nil {
		return nil, err
	}

	var run *Run
	switch opts.Format {
	case FormatKeys:
		run, err = RunKeys(ctx, eng, pots, logger)
	case FormatClassic, "":
		run, err = RunClassic(ctx, eng, pots, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
	if err != nil {
		return nil, err
	}
	run.Seed = seed
	return run, nil
}

// RunClassic draws the groups, plays the group stage and then the knockout
// rounds from the classic round of 32.
func RunClassic(ctx context.Context, eng *engine.Engine, pots []team.Pot, logger *slog.Logger) (*Run, error) {
	start := time.Now()
	run := newRun(FormatClassic, eng)

	groups, err := bracket.DrawGroups(eng.Source(), pots)
	if err != nil {
		return nil, fmt.Errorf("draw groups: %w", err)
	}
	for _, g := range groups {
		if !g.Full() {
			logger.Debug("Skipping incomplete group", "group", g.Name, "teams", len(g.Teams))
		}
	}

	run.Groups = eng.SimulateGroupStage(groups)
	if len(run.Groups) == 0 {
		return nil, ErrNoGroups
	}

	first, err := bracket.ClassicRoundOf32(run.Groups)
	if err != nil {
		return nil, fmt.Errorf("seed knockout: %w", err)
	}
	if err := playKnockout(ctx, eng, run, first); err != nil {
		return nil, err
	}

	run.Duration = time.Since(start)
	logger.Debug("Tournament finished", "summary", run.Summary())
	return run, nil
}

// RunKeys plays the three pot-seeded phases (pot 3 v pot 4, then v pot 2,
// then v pot 1) and the knockout rounds after them.
func RunKeys(ctx context.Context, eng *engine.Engine, pots []team.Pot, logger *slog.Logger) (*Run, error) {
	start := time.Now()
	run := newRun(FormatKeys, eng)
	src := eng.Source()

	phase1, err := bracket.KeysPhase1(src, pots)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", StagePhase1, err)
	}
	winners, err := playStage(ctx, eng, run, StagePhase1, phase1)
	if err != nil {
		return nil, err
	}

	phase2, err := bracket.KeysPhase2(src, winners, pots)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", StagePhase2, err)
	}
	winners, err = playStage(ctx, eng, run, StagePhase2, phase2)
	if err != nil {
		return nil, err
	}

	first, err := bracket.KeysRoundOf32(src, winners, pots)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", StageRoundOf32, err)
	}
	if err := playKnockout(ctx, eng, run, first); err != nil {
		return nil, err
	}

	run.Duration = time.Since(start)
	logger.Debug("Tournament finished", "summary", run.Summary())
	return run, nil
}

func newRun(format Format, eng *engine.Engine) *Run {
	return &Run{
		ID:        newRunID(),
		Format:    format,
		Surprise:  eng.Surprise(),
		CreatedAt: time.Now().UTC(),
	}
}

func playStage(ctx context.Context, eng *engine.Engine, run *Run, name string, round []engine.Matchup) ([]*team.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	eng.ResolveRound(round)
	run.Stages = append(run.Stages, Stage{Name: name, Matchups: round})
	return bracket.Winners(round)
}

// playKnockout plays single elimination from round until a champion is
// crowned.
func playKnockout(ctx context.Context, eng *engine.Engine, run *Run, round []engine.Matchup) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		eng.ResolveRound(round)
		run.Stages = append(run.Stages, Stage{Name: StageName(len(round)), Matchups: round})

		next, champion, err := bracket.NextRound(round)
		if err != nil {
			return fmt.Errorf("advance %s: %w", StageName(len(round)), err)
		}
		if champion != nil {
			run.Champion = champion
			run.RunnerUp = round[0].Loser()
			return nil
		}
		round = next
	}
}
