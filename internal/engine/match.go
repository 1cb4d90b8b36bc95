package engine

import "github.com/albapepper/copa-sim/internal/team"

// MatchResult is the score of a single ordinary fixture.
type MatchResult struct {
	TeamA  *team.Team `json:"teamA"`
	TeamB  *team.Team `json:"teamB"`
	ScoreA int        `json:"scoreA"`
	ScoreB int        `json:"scoreB"`
}

// Winner returns the winning team, or nil for a draw.
func (r MatchResult) Winner() *team.Team {
	switch {
	case r.ScoreA > r.ScoreB:
		return r.TeamA
	case r.ScoreB > r.ScoreA:
		return r.TeamB
	}
	return nil
}

// SimulateMatch plays an ordinary (not important) fixture.
func (e *Engine) SimulateMatch(a, b *team.Team) MatchResult {
	scoreA, scoreB := e.ScoreMatch(a, b, false)
	return MatchResult{TeamA: a, TeamB: b, ScoreA: scoreA, ScoreB: scoreB}
}
