package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/copa-sim/internal/team"
)

// UpsertTeams writes every team of pots in one batch.
func (p *Pool) UpsertTeams(ctx context.Context, pots []team.Pot) (int, error) {
	batch := &pgx.Batch{}
	for pi, pot := range pots {
		for pos, t := range pot {
			batch.Queue("team_upsert", t.Name, pi+1, pos,
				t.Stats.Level, t.Stats.GoalCapacity, t.Stats.DefenseCapacity, t.Stats.Hierarchy)
		}
	}

	br := p.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return i, fmt.Errorf("upsert team %d: %w", i, err)
		}
	}
	return batch.Len(), nil
}

// LoadTeams rebuilds the pots from the teams table. Returned pots are
// normalized and validated like file-loaded ones.
func (p *Pool) LoadTeams(ctx context.Context) ([]team.Pot, error) {
	rows, err := p.Query(ctx, "team_list")
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var pots []team.Pot
	for rows.Next() {
		var (
			potNo int
			t     team.Team
		)
		if err := rows.Scan(&t.Name, &potNo, &t.Stats.Level, &t.Stats.GoalCapacity,
			&t.Stats.DefenseCapacity, &t.Stats.Hierarchy); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		if potNo < 1 {
			return nil, fmt.Errorf("team %s has pot %d", t.Name, potNo)
		}
		for len(pots) < potNo {
			pots = append(pots, team.Pot{})
		}
		pots[potNo-1] = append(pots[potNo-1], &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	team.NormalizePots(pots)
	if err := team.Validate(pots); err != nil {
		return nil, err
	}
	return pots, nil
}
