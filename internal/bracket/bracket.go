// Package bracket builds pairings: knockout seeding from pots ("keys"),
// the classic round of 32 from group standings, single-elimination
// progression and the group draw. Nothing here plays a match; the only
// randomness is explicit shuffling with a caller-supplied Source.
package bracket

import (
	"errors"
	"fmt"

	"github.com/albapepper/copa-sim/internal/engine"
	"github.com/albapepper/copa-sim/internal/team"
)

var (
	ErrSizeMismatch   = errors.New("pairing lists differ in length")
	ErrOddGroups      = errors.New("classic seeding needs an even number of groups")
	ErrUnresolved     = errors.New("round has unresolved matchups")
	ErrOddRound       = errors.New("round has an odd number of matchups")
	ErrEmptyRound     = errors.New("round is empty")
	ErrPotsIncomplete = errors.New("not enough pots for keys seeding")
)

// Shuffle returns a Fisher-Yates shuffled copy of items.
func Shuffle[T any](src engine.Source, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Pair zips two lists positionally into unresolved matchups.
func Pair(a, b []*team.Team) ([]engine.Matchup, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrSizeMismatch, len(a), len(b))
	}
	out := make([]engine.Matchup, len(a))
	for i := range a {
		out[i] = engine.NewMatchup(a[i], b[i])
	}
	return out, nil
}

// PairAdjacent pairs entries 0-1, 2-3, ... of one list.
func PairAdjacent(teams []*team.Team) ([]engine.Matchup, error) {
	if len(teams)%2 != 0 {
		return nil, fmt.Errorf("%w: %d teams", ErrOddRound, len(teams))
	}
	out := make([]engine.Matchup, 0, len(teams)/2)
	for i := 0; i < len(teams); i += 2 {
		out = append(out, engine.NewMatchup(teams[i], teams[i+1]))
	}
	return out, nil
}

// ShufflePair shuffles both lists independently, then pairs them.
func ShufflePair(src engine.Source, a, b []*team.Team) ([]engine.Matchup, error) {
	return Pair(Shuffle(src, a), Shuffle(src, b))
}

// Winners returns the winners of a round in order.
func Winners(round []engine.Matchup) ([]*team.Team, error) {
	out := make([]*team.Team, len(round))
	for i, m := range round {
		if !m.Resolved() {
			return nil, fmt.Errorf("%w: matchup %d (%s vs %s)", ErrUnresolved, i, m.TeamA, m.TeamB)
		}
		out[i] = m.Winner()
	}
	return out, nil
}

// NextRound pairs the winners of a resolved round two by two. When the
// round is a single matchup its winner is the champion and next is nil.
func NextRound(round []engine.Matchup) (next []engine.Matchup, champion *team.Team, err error) {
	if len(round) == 0 {
		return nil, nil, ErrEmptyRound
	}
	winners, err := Winners(round)
	if err != nil {
		return nil, nil, err
	}
	if len(winners) == 1 {
		return nil, winners[0], nil
	}
	next, err = PairAdjacent(winners)
	if err != nil {
		return nil, nil, err
	}
	return next, nil, nil
}
