package engine

import (
	"errors"

	"github.com/albapepper/copa-sim/internal/team"
)

// Decision says how a knockout tie was settled.
type Decision string

const (
	DecidedRegulation Decision = "regulation"
	DecidedExtraTime  Decision = "extra_time"
	DecidedPenalties  Decision = "penalties"
)

// Result is the outcome of a resolved knockout tie. When the tie went to
// extra time and was won there, the winner's score already includes the
// decisive goal.
type Result struct {
	Winner    *team.Team `json:"winner"`
	ScoreA    int        `json:"scoreA"`
	ScoreB    int        `json:"scoreB"`
	ExtraTime bool       `json:"extraTime"`
	Penalties *Penalties `json:"penalties,omitempty"`
	Decision  Decision   `json:"decision"`
}

// Matchup is a knockout fixture. A nil Result means the tie has not been
// played yet.
type Matchup struct {
	TeamA  *team.Team `json:"teamA"`
	TeamB  *team.Team `json:"teamB"`
	Result *Result    `json:"result,omitempty"`
}

// NewMatchup returns an unresolved matchup.
func NewMatchup(a, b *team.Team) Matchup {
	return Matchup{TeamA: a, TeamB: b}
}

// Resolved reports whether the matchup has a winner.
func (m Matchup) Resolved() bool { return m.Result != nil }

// Winner returns the winner, or nil while unresolved.
func (m Matchup) Winner() *team.Team {
	if m.Result == nil {
		return nil
	}
	return m.Result.Winner
}

// Loser returns the eliminated team, or nil while unresolved.
func (m Matchup) Loser() *team.Team {
	if m.Result == nil {
		return nil
	}
	if m.Result.Winner == m.TeamA {
		return m.TeamB
	}
	return m.TeamA
}

// ResolveKnockout plays a knockout tie between a and b through to a winner:
// regulation, then one extra-time pass, then penalties.
func (e *Engine) ResolveKnockout(a, b *team.Team) Matchup {
	m := NewMatchup(a, b)
	m.Result = e.playTie(a, b)
	return m
}

func (e *Engine) playTie(a, b *team.Team) *Result {
	scoreA, scoreB := e.ScoreMatch(a, b, true)
	if scoreA != scoreB {
		return &Result{
			Winner:   pick(scoreA > scoreB, a, b),
			ScoreA:   scoreA,
			ScoreB:   scoreB,
			Decision: DecidedRegulation,
		}
	}

	res := &Result{ScoreA: scoreA, ScoreB: scoreB, ExtraTime: true}
	extraA, extraB := e.ScoreMatch(a, b, true)
	if extraA != extraB {
		if extraA > extraB {
			res.ScoreA++
		} else {
			res.ScoreB++
		}
		res.Winner = pick(extraA > extraB, a, b)
		res.Decision = DecidedExtraTime
		return res
	}

	pens := e.PenaltyShootout()
	res.Penalties = &pens
	res.Winner = pick(pens.A > pens.B, a, b)
	res.Decision = DecidedPenalties
	return res
}

func pick(first bool, a, b *team.Team) *team.Team {
	if first {
		return a
	}
	return b
}

// Resolve plays an unresolved matchup in place. A matchup that already has
// a winner is left untouched and ErrAlreadyResolved is returned; use Reroll
// to replay it.
func (e *Engine) Resolve(m *Matchup) error {
	if m.Resolved() {
		return ErrAlreadyResolved
	}
	m.Result = e.playTie(m.TeamA, m.TeamB)
	return nil
}

// Reroll replays a matchup, discarding any previous result.
func (e *Engine) Reroll(m *Matchup) {
	m.Result = e.playTie(m.TeamA, m.TeamB)
}

// ResolveRound plays every unresolved matchup of a round in order and keeps
// the ones already decided. It returns how many ties were played.
func (e *Engine) ResolveRound(round []Matchup) int {
	played := 0
	for i := range round {
		if err := e.Resolve(&round[i]); errors.Is(err, ErrAlreadyResolved) {
			continue
		}
		played++
	}
	return played
}
