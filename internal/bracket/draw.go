package bracket

import (
	"errors"
	"fmt"

	"github.com/albapepper/copa-sim/internal/engine"
	"github.com/albapepper/copa-sim/internal/team"
)

var (
	ErrPotOneDrained    = errors.New("pot 1 is already drained")
	ErrPotOneNotDrained = errors.New("pot 1 must be drained first")
	ErrNoEmptyGroup     = errors.New("no empty group left for a pot 1 team")
	ErrNoPots           = errors.New("no pots to draw from")
)

// GroupName returns the letter of the i-th group (A, B, ...).
func GroupName(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return fmt.Sprintf("G%d", i+1)
}

// DrawState is a snapshot of an in-progress group draw. Draw functions take
// a state and return a new one; the input is never modified.
type DrawState struct {
	Pots   []team.Pot     `json:"pots"`
	Groups []engine.Group `json:"groups"`
}

// Drawn describes one team placed by DrawNext.
type Drawn struct {
	Team  *team.Team `json:"team"`
	Pot   int        `json:"pot"`
	Group string     `json:"group"`
}

// NewDrawState starts a draw with one empty group per Pot 1 team.
func NewDrawState(pots []team.Pot) (DrawState, error) {
	if len(pots) == 0 {
		return DrawState{}, ErrNoPots
	}
	groups := make([]engine.Group, len(pots[pot1]))
	for i := range groups {
		groups[i] = engine.Group{Name: GroupName(i), Teams: []*team.Team{}}
	}
	return DrawState{Pots: clonePots(pots), Groups: groups}, nil
}

// Done reports whether every pot is empty.
func (s DrawState) Done() bool {
	for _, p := range s.Pots {
		if len(p) > 0 {
			return false
		}
	}
	return true
}

// PotOneDrained reports whether all seeds have been placed.
func (s DrawState) PotOneDrained() bool {
	return len(s.Pots) == 0 || len(s.Pots[pot1]) == 0
}

func (s DrawState) clone() DrawState {
	groups := make([]engine.Group, len(s.Groups))
	for i, g := range s.Groups {
		teams := make([]*team.Team, len(g.Teams))
		copy(teams, g.Teams)
		groups[i] = engine.Group{Name: g.Name, Teams: teams}
	}
	return DrawState{Pots: clonePots(s.Pots), Groups: groups}
}

func clonePots(pots []team.Pot) []team.Pot {
	out := make([]team.Pot, len(pots))
	for i, p := range pots {
		out[i] = p.Clone()
	}
	return out
}

// DrawNext draws one random Pot 1 team into the first empty group.
func DrawNext(src engine.Source, s DrawState) (DrawState, Drawn, error) {
	if s.PotOneDrained() {
		return s, Drawn{}, ErrPotOneDrained
	}
	gi := -1
	for i, g := range s.Groups {
		if len(g.Teams) == 0 {
			gi = i
			break
		}
	}
	if gi < 0 {
		return s, Drawn{}, ErrNoEmptyGroup
	}

	next := s.clone()
	seeds := next.Pots[pot1]
	ti := src.IntN(len(seeds))
	picked := seeds[ti]
	next.Pots[pot1] = append(seeds[:ti:ti], seeds[ti+1:]...)
	next.Groups[gi].Teams = append(next.Groups[gi].Teams, picked)

	return next, Drawn{Team: picked, Pot: pot1 + 1, Group: next.Groups[gi].Name}, nil
}

// DrawRest fills the groups from pots 2..n once Pot 1 is drained: each pot
// is shuffled and every group still short of a team from that tier takes
// one. Teams left over when a pot outnumbers the groups stay in the pot.
func DrawRest(src engine.Source, s DrawState) (DrawState, error) {
	if !s.PotOneDrained() {
		return s, ErrPotOneNotDrained
	}
	next := s.clone()
	for pi := 1; pi < len(next.Pots); pi++ {
		remaining := Shuffle(src, next.Pots[pi])
		for gi := range next.Groups {
			if len(remaining) == 0 {
				break
			}
			if len(next.Groups[gi].Teams) < pi+1 {
				last := len(remaining) - 1
				next.Groups[gi].Teams = append(next.Groups[gi].Teams, remaining[last])
				remaining = remaining[:last]
			}
		}
		next.Pots[pi] = remaining
	}
	return next, nil
}

// DrawGroups runs a complete draw and returns the groups.
func DrawGroups(src engine.Source, pots []team.Pot) ([]engine.Group, error) {
	s, err := NewDrawState(pots)
	if err != nil {
		return nil, err
	}
	for !s.PotOneDrained() {
		s, _, err = DrawNext(src, s)
		if err != nil {
			return nil, err
		}
	}
	s, err = DrawRest(src, s)
	if err != nil {
		return nil, err
	}
	return s.Groups, nil
}
