package bracket

import (
	"fmt"

	"github.com/albapepper/copa-sim/internal/engine"
	"github.com/albapepper/copa-sim/internal/team"
)

// Pot indexes, zero-based.
const (
	pot1 = iota
	pot2
	pot3
	pot4
)

// KeysPhase1 pairs shuffled Pot 3 against shuffled Pot 4.
func KeysPhase1(src engine.Source, pots []team.Pot) ([]engine.Matchup, error) {
	if len(pots) < team.PotCount {
		return nil, fmt.Errorf("%w: have %d", ErrPotsIncomplete, len(pots))
	}
	return ShufflePair(src, pots[pot3], pots[pot4])
}

// KeysPhase2 pairs the shuffled phase-1 winners against shuffled Pot 2.
func KeysPhase2(src engine.Source, winners []*team.Team, pots []team.Pot) ([]engine.Matchup, error) {
	if len(pots) < team.PotCount {
		return nil, fmt.Errorf("%w: have %d", ErrPotsIncomplete, len(pots))
	}
	return ShufflePair(src, winners, pots[pot2])
}

// KeysRoundOf32 pairs the shuffled phase-2 winners against shuffled Pot 1.
func KeysRoundOf32(src engine.Source, winners []*team.Team, pots []team.Pot) ([]engine.Matchup, error) {
	if len(pots) < team.PotCount {
		return nil, fmt.Errorf("%w: have %d", ErrPotsIncomplete, len(pots))
	}
	return ShufflePair(src, winners, pots[pot1])
}

// ClassicRoundOf32 seeds the first knockout round from group standings so
// that no tie is a rematch from the same group. With groups A..P:
//
//	half A: 1A 2B 1C 2D ... 1O 2P
//	half B: 1B 2A 1D 2C ... 1P 2O
//
// and adjacent entries of each half meet. Results must be in group order.
func ClassicRoundOf32(results []engine.GroupResult) ([]engine.Matchup, error) {
	if len(results) == 0 || len(results)%2 != 0 {
		return nil, fmt.Errorf("%w: have %d", ErrOddGroups, len(results))
	}

	pairs := len(results) / 2
	halfA := make([]*team.Team, 0, len(results))
	halfB := make([]*team.Team, 0, len(results))
	for i := 0; i < pairs; i++ {
		even, odd := results[i*2], results[i*2+1]
		halfA = append(halfA, even.Winner(), odd.RunnerUp())
		halfB = append(halfB, odd.Winner(), even.RunnerUp())
	}

	a, err := PairAdjacent(halfA)
	if err != nil {
		return nil, err
	}
	b, err := PairAdjacent(halfB)
	if err != nil {
		return nil, err
	}
	return append(a, b...), nil
}
