package tournament

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/albapepper/copa-sim/internal/engine"
	"github.com/albapepper/copa-sim/internal/team"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatClassic, false},
		{"classic", FormatClassic, false},
		{"keys", FormatKeys, false},
		{"swiss", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v", tt.in, err)
		}
		if tt.wantErr && !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("ParseFormat(%q) should wrap ErrUnknownFormat", tt.in)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStageName(t *testing.T) {
	if StageName(16) != StageRoundOf32 || StageName(1) != StageFinal || StageName(32) != "roundOf64" {
		t.Errorf("unexpected stage names %s %s %s", StageName(16), StageName(1), StageName(32))
	}
}

func checkStages(t *testing.T, run *Run, want []string) {
	t.Helper()
	if len(run.Stages) != len(want) {
		t.Fatalf("expected %d stages, got %d", len(want), len(run.Stages))
	}
	for i, s := range run.Stages {
		if s.Name != want[i] {
			t.Errorf("stage %d = %s, want %s", i, s.Name, want[i])
		}
		for _, m := range s.Matchups {
			if !m.Resolved() {
				t.Fatalf("stage %s has an unresolved tie", s.Name)
			}
		}
	}
}

func TestPlayClassic(t *testing.T) {
	run, err := Play(context.Background(), team.DefaultPots(), Options{Format: FormatClassic, Surprise: 5, Source: engine.SourcePCG, Seed: 42}, quietLogger())
	if err != nil {
		t.Fatalf("Play() failed: %v", err)
	}
	if run.ID == "" || run.Seed != 42 || run.Format != FormatClassic {
		t.Errorf("unexpected run header %s", run.Summary())
	}
	if len(run.Groups) != 16 {
		t.Fatalf("expected 16 groups, got %d", len(run.Groups))
	}
	checkStages(t, run, []string{StageRoundOf32, StageRoundOf16, StageQuarters, StageSemis, StageFinal})

	final, _ := run.Stage(StageFinal)
	if run.Champion != final.Matchups[0].Winner() || run.RunnerUp != final.Matchups[0].Loser() {
		t.Error("champion and runner-up must come from the final")
	}
	if len(run.Semifinalists()) != 4 {
		t.Errorf("expected 4 semifinalists, got %d", len(run.Semifinalists()))
	}
}

func TestPlayKeys(t *testing.T) {
	run, err := Play(context.Background(), team.DefaultPots(), Options{Format: FormatKeys, Surprise: 3, Source: engine.SourceXorshift32, Seed: 7}, quietLogger())
	if err != nil {
		t.Fatalf("Play() failed: %v", err)
	}
	if len(run.Groups) != 0 {
		t.Error("keys format has no group stage")
	}
	checkStages(t, run, []string{StagePhase1, StagePhase2, StageRoundOf32, StageRoundOf16, StageQuarters, StageSemis, StageFinal})
	if run.Champion == nil {
		t.Fatal("no champion")
	}
}

func TestPlayDeterministic(t *testing.T) {
	opts := Options{Format: FormatClassic, Surprise: 5, Source: engine.SourcePCG, Seed: 99}
	a, err := Play(context.Background(), team.DefaultPots(), opts, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Play(context.Background(), team.DefaultPots(), opts, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if a.Champion.Name != b.Champion.Name || a.RunnerUp.Name != b.RunnerUp.Name {
		t.Errorf("same seed produced %s/%s and %s/%s", a.Champion, a.RunnerUp, b.Champion, b.RunnerUp)
	}
	if a.ID == b.ID {
		t.Error("run IDs must be unique")
	}
}

func TestPlayErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := Play(ctx, team.DefaultPots(), Options{Format: "swiss"}, quietLogger()); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
	if _, err := Play(ctx, team.DefaultPots(), Options{Surprise: 11}, quietLogger()); !errors.Is(err, engine.ErrInvalidSurprise) {
		t.Errorf("expected ErrInvalidSurprise, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := Play(cancelled, team.DefaultPots(), Options{Seed: 1}, quietLogger()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSimulateOdds(t *testing.T) {
	const n = 200
	odds, err := Simulate(context.Background(), MonteCarloOptions{
		Pots:     team.DefaultPots(),
		Format:   FormatKeys,
		Surprise: 5,
		Source:   engine.SourcePCG,
		Seed:     5,
		N:        n,
		Workers:  4,
	})
	if err != nil {
		t.Fatalf("Simulate() failed: %v", err)
	}
	if odds.Runs != n || odds.Workers != 4 || odds.Seed != 5 {
		t.Errorf("unexpected header %s", odds.Summary())
	}
	if len(odds.Teams) != 64 {
		t.Fatalf("expected 64 teams, got %d", len(odds.Teams))
	}

	var champs, finalists, semis int
	var pct float64
	for _, o := range odds.Teams {
		champs += o.Champion
		finalists += o.Finalist
		semis += o.Semifinalist
		pct += o.ChampionPct
	}
	if champs != n || finalists != 2*n || semis != 4*n {
		t.Errorf("tallies champions=%d finalists=%d semis=%d", champs, finalists, semis)
	}
	if pct < 99.9 || pct > 100.1 {
		t.Errorf("championship probabilities sum to %.2f", pct)
	}

	table := odds.Table()
	for i := 1; i < len(table); i++ {
		if table[i].Champion > table[i-1].Champion {
			t.Fatal("Table() not sorted by championship count")
		}
	}
}

func TestSimulateDeterministic(t *testing.T) {
	opts := MonteCarloOptions{Pots: team.DefaultPots(), Surprise: 5, Seed: 11, N: 50, Workers: 3}
	a, err := Simulate(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Simulate(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Teams {
		if a.Teams[i] != b.Teams[i] {
			t.Fatalf("row %d differs: %+v vs %+v", i, a.Teams[i], b.Teams[i])
		}
	}
}

func TestSimulateErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := Simulate(ctx, MonteCarloOptions{Pots: team.DefaultPots()}); !errors.Is(err, ErrNoRuns) {
		t.Errorf("expected ErrNoRuns, got %v", err)
	}
	if _, err := Simulate(ctx, MonteCarloOptions{Pots: team.DefaultPots(), N: 1, Source: "mt19937"}); err == nil {
		t.Error("expected an error for an unknown source")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := Simulate(cancelled, MonteCarloOptions{Pots: team.DefaultPots(), N: 10, Workers: 2}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
