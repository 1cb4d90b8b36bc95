package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/albapepper/copa-sim/internal/tournament"
)

var ErrRunNotFound = errors.New("run not found")

// RunSummary is one row of the run archive listing.
type RunSummary struct {
	ID        string    `json:"id"`
	Format    string    `json:"format"`
	Surprise  int       `json:"surprise"`
	Seed      uint64    `json:"seed"`
	Champion  string    `json:"champion"`
	RunnerUp  string    `json:"runnerUp"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChampionCount is how often a team won across archived runs.
type ChampionCount struct {
	Team  string `json:"team"`
	Count int64  `json:"count"`
}

// SaveRun archives a finished run. The insert fires the run_saved notify.
func (p *Pool) SaveRun(ctx context.Context, run *tournament.Run) error {
	id, err := uuid.Parse(run.ID)
	if err != nil {
		return fmt.Errorf("run id %q: %w", run.ID, err)
	}
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	var champion, runnerUp *string
	if run.Champion != nil {
		champion = &run.Champion.Name
	}
	if run.RunnerUp != nil {
		runnerUp = &run.RunnerUp.Name
	}
	seed := pgtype.Numeric{Int: new(big.Int).SetUint64(run.Seed), Valid: true}

	_, err = p.Exec(ctx, "run_insert", id, string(run.Format), run.Surprise, seed,
		champion, runnerUp, payload, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun returns the stored JSON of a run.
func (p *Pool) GetRun(ctx context.Context, id string) ([]byte, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	var payload []byte
	err = p.QueryRow(ctx, "run_by_id", uid).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return payload, nil
}

// ListRuns returns archived runs, newest first.
func (p *Pool) ListRuns(ctx context.Context, limit, offset int) ([]RunSummary, error) {
	rows, err := p.Query(ctx, "run_list", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := []RunSummary{}
	for rows.Next() {
		var (
			r    RunSummary
			id   uuid.UUID
			seed string
		)
		if err := rows.Scan(&id, &r.Format, &r.Surprise, &seed, &r.Champion, &r.RunnerUp, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.ID = id.String()
		r.Seed, _ = strconv.ParseUint(seed, 10, 64)
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneRuns deletes runs created before cutoff and returns how many went.
func (p *Pool) PruneRuns(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.Exec(ctx, "run_prune", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ChampionCounts tallies archived champions, most frequent first.
func (p *Pool) ChampionCounts(ctx context.Context, limit int) ([]ChampionCount, error) {
	rows, err := p.Query(ctx, "run_champions", limit)
	if err != nil {
		return nil, fmt.Errorf("champion counts: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ChampionCount, error) {
		var c ChampionCount
		err := row.Scan(&c.Team, &c.Count)
		return c, err
	})
}
