package tournament

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/albapepper/copa-sim/internal/engine"
	"github.com/albapepper/copa-sim/internal/team"
)

// seedStride spreads worker seeds apart.
const seedStride = 0x9e3779b97f4a7c15

var ErrNoRuns = errors.New("number of runs must be positive")

// MonteCarloOptions configures Simulate.
type MonteCarloOptions struct {
	Pots     []team.Pot
	Format   Format
	Surprise int
	Source   string
	Seed     uint64 // base seed, 0 = time-seeded
	N        int
	Workers  int // 0 = runtime.NumCPU()
	Logger   *slog.Logger
}

// TeamOdds is one team's tally over all runs.
type TeamOdds struct {
	Team         string  `json:"team"`
	Champion     int     `json:"champion"`
	Finalist     int     `json:"finalist"`
	Semifinalist int     `json:"semifinalist"`
	ChampionPct  float64 `json:"championPct"`
	FinalPct     float64 `json:"finalPct"`
	SemiPct      float64 `json:"semiPct"`
}

// Odds aggregates the outcome of many runs.
type Odds struct {
	Runs     int           `json:"runs"`
	Format   Format        `json:"format"`
	Surprise int           `json:"surprise"`
	Seed     uint64        `json:"seed"`
	Workers  int           `json:"workers"`
	Teams    []TeamOdds    `json:"teams"`
	Duration time.Duration `json:"duration"`
}

// Table returns the per-team odds ordered by championship probability, then
// final and semi-final appearances, then name.
func (o *Odds) Table() []TeamOdds {
	out := make([]TeamOdds, len(o.Teams))
	copy(out, o.Teams)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Champion != b.Champion {
			return a.Champion > b.Champion
		}
		if a.Finalist != b.Finalist {
			return a.Finalist > b.Finalist
		}
		if a.Semifinalist != b.Semifinalist {
			return a.Semifinalist > b.Semifinalist
		}
		return a.Team < b.Team
	})
	return out
}

// Summary returns a human-readable summary.
func (o *Odds) Summary() string {
	fav := "-"
	if t := o.Table(); len(t) > 0 {
		fav = fmt.Sprintf("%s (%.1f%%)", t[0].Team, t[0].ChampionPct)
	}
	return fmt.Sprintf("runs=%d format=%s surprise=%d seed=%d workers=%d favourite=%s dur=%s",
		o.Runs, o.Format, o.Surprise, o.Seed, o.Workers, fav, o.Duration.Round(time.Millisecond))
}

type tally struct {
	champion, finalist, semifinalist int
}

// Simulate plays opts.N independent tournaments on a pool of workers. Each
// worker owns its engine and random source, seeded from the base seed and
// the worker index, so a fixed seed and worker count reproduce the odds.
func Simulate(ctx context.Context, opts MonteCarloOptions) (*Odds, error) {
	if opts.N < 1 {
		return nil, ErrNoRuns
	}
	if err := engine.ValidateSurprise(opts.Surprise); err != nil {
		return nil, err
	}
	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	base := opts.Seed
	if base == 0 {
		base = uint64(time.Now().UnixNano())
	}

	workers := opts.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > opts.N {
		workers = opts.N
	}

	engines := make([]*engine.Engine, workers)
	for w := range engines {
		seed := base + uint64(w)*seedStride
		if seed == 0 {
			seed = 1
		}
		src, _, err := engine.NewSource(opts.Source, seed)
		if err != nil {
			return nil, err
		}
		if engines[w], err = engine.New(src, opts.Surprise); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	perWorker, extra := opts.N/workers, opts.N%workers
	results := make(chan map[string]*tally, workers)
	errs := make(chan error, workers)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		n := perWorker
		if w < extra {
			n++
		}
		wg.Add(1)
		go func(eng *engine.Engine, n int) {
			defer wg.Done()
			local := make(map[string]*tally)
			get := func(t *team.Team) *tally {
				if t == nil {
					return &tally{}
				}
				if c, ok := local[t.Name]; ok {
					return c
				}
				c := &tally{}
				local[t.Name] = c
				return c
			}
			for i := 0; i < n; i++ {
				if err := ctx.Err(); err != nil {
					errs <- err
					return
				}
				var run *Run
				var err error
				if format == FormatKeys {
					run, err = RunKeys(ctx, eng, opts.Pots, logger)
				} else {
					run, err = RunClassic(ctx, eng, opts.Pots, logger)
				}
				if err != nil {
					errs <- err
					return
				}
				get(run.Champion).champion++
				get(run.Champion).finalist++
				get(run.RunnerUp).finalist++
				for _, t := range run.Semifinalists() {
					get(t).semifinalist++
				}
			}
			results <- local
		}(engines[w], n)
	}

	wg.Wait()
	close(results)
	close(errs)
	if err := <-errs; err != nil {
		return nil, err
	}

	totals := make(map[string]*tally)
	for _, t := range team.All(opts.Pots) {
		totals[t.Name] = &tally{}
	}
	for local := range results {
		for name, c := range local {
			t, ok := totals[name]
			if !ok {
				t = &tally{}
				totals[name] = t
			}
			t.champion += c.champion
			t.finalist += c.finalist
			t.semifinalist += c.semifinalist
		}
	}

	odds := &Odds{
		Runs:     opts.N,
		Format:   format,
		Surprise: opts.Surprise,
		Seed:     base,
		Workers:  workers,
		Duration: time.Since(start),
	}
	pct := func(n int) float64 { return 100 * float64(n) / float64(opts.N) }
	for name, t := range totals {
		odds.Teams = append(odds.Teams, TeamOdds{
			Team:         name,
			Champion:     t.champion,
			Finalist:     t.finalist,
			Semifinalist: t.semifinalist,
			ChampionPct:  pct(t.champion),
			FinalPct:     pct(t.finalist),
			SemiPct:      pct(t.semifinalist),
		})
	}
	odds.Teams = odds.Table()

	logger.Info("Monte-Carlo complete", "summary", odds.Summary())
	return odds, nil
}
