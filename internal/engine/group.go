package engine

import (
	"sort"

	"github.com/albapepper/copa-sim/internal/team"
)

// GroupSize is the number of teams in a fully drawn group.
const GroupSize = 4

// Matchdays is the number of rounds in a group's round robin.
const Matchdays = 3

// groupFixtures pairs team slots so that every team plays once per matchday.
var groupFixtures = [...]struct{ a, b, matchday int }{
	{0, 3, 0},
	{1, 2, 0},
	{0, 2, 1},
	{1, 3, 1},
	{0, 1, 2},
	{2, 3, 2},
}

// finalMatchday is played with hierarchy in effect.
const finalMatchday = Matchdays - 1

// Group is a drawn group. Teams are in draw-slot order.
type Group struct {
	Name  string       `json:"name"`
	Teams []*team.Team `json:"teams"`
}

// Full reports whether the group has exactly GroupSize teams.
func (g Group) Full() bool { return len(g.Teams) == GroupSize }

// Standing accumulates a team's group record.
type Standing struct {
	Team         *team.Team `json:"team"`
	Played       int        `json:"played"`
	Wins         int        `json:"wins"`
	Draws        int        `json:"draws"`
	Losses       int        `json:"losses"`
	GoalsFor     int        `json:"gf"`
	GoalsAgainst int        `json:"ga"`
	GoalDiff     int        `json:"gd"`
	Points       int        `json:"points"`

	slot int
}

func (s *Standing) record(scored, conceded int) {
	s.Played++
	s.GoalsFor += scored
	s.GoalsAgainst += conceded
	s.GoalDiff = s.GoalsFor - s.GoalsAgainst
	switch {
	case scored > conceded:
		s.Wins++
		s.Points += 3
	case scored < conceded:
		s.Losses++
	default:
		s.Draws++
		s.Points++
	}
}

// GroupMatch is one played group fixture.
type GroupMatch struct {
	TeamA    *team.Team `json:"teamA"`
	TeamB    *team.Team `json:"teamB"`
	ScoreA   int        `json:"scoreA"`
	ScoreB   int        `json:"scoreB"`
	Matchday int        `json:"matchday"`
}

// GroupResult is a finished group: sorted standings and the fixtures by
// matchday.
type GroupResult struct {
	Group     string               `json:"group"`
	Standings []Standing           `json:"standings"`
	Matchdays map[int][]GroupMatch `json:"matchdays"`
}

// Winner returns the group winner.
func (r GroupResult) Winner() *team.Team { return r.Standings[0].Team }

// RunnerUp returns the second-placed team.
func (r GroupResult) RunnerUp() *team.Team { return r.Standings[1].Team }

// Matches returns every fixture in schedule order.
func (r GroupResult) Matches() []GroupMatch {
	var out []GroupMatch
	for d := 0; d < Matchdays; d++ {
		out = append(out, r.Matchdays[d]...)
	}
	return out
}

// SimulateGroupStage plays every full group. Groups that do not have
// exactly four teams are skipped.
func (e *Engine) SimulateGroupStage(groups []Group) []GroupResult {
	results := make([]GroupResult, 0, len(groups))
	for _, g := range groups {
		if !g.Full() {
			continue
		}
		results = append(results, e.SimulateGroup(g))
	}
	return results
}

// SimulateGroup plays one four-team round robin. The caller must pass a
// full group.
func (e *Engine) SimulateGroup(g Group) GroupResult {
	standings := make([]Standing, len(g.Teams))
	for i, t := range g.Teams {
		standings[i] = Standing{Team: t, slot: i}
	}

	byDay := make(map[int][]GroupMatch, Matchdays)
	for d := 0; d < Matchdays; d++ {
		byDay[d] = []GroupMatch{}
	}
	matches := make([]GroupMatch, 0, len(groupFixtures))

	for _, f := range groupFixtures {
		a, b := g.Teams[f.a], g.Teams[f.b]
		scoreA, scoreB := e.ScoreMatch(a, b, f.matchday == finalMatchday)

		m := GroupMatch{TeamA: a, TeamB: b, ScoreA: scoreA, ScoreB: scoreB, Matchday: f.matchday}
		byDay[f.matchday] = append(byDay[f.matchday], m)
		matches = append(matches, m)

		standings[f.a].record(scoreA, scoreB)
		standings[f.b].record(scoreB, scoreA)
	}

	SortStandings(standings, matches)
	return GroupResult{Group: g.Name, Standings: standings, Matchdays: byDay}
}

// SortStandings orders standings by points, goal difference and goals for.
// Teams still level are separated by a head-to-head table of the matches
// among them, and finally by draw slot.
func SortStandings(standings []Standing, matches []GroupMatch) {
	sort.SliceStable(standings, func(i, j int) bool {
		return ahead(standings[i], standings[j])
	})

	for start := 0; start < len(standings); {
		end := start + 1
		for end < len(standings) && level(standings[start], standings[end]) {
			end++
		}
		if end-start > 1 {
			breakTie(standings[start:end], matches)
		}
		start = end
	}
}

func ahead(a, b Standing) bool {
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	if a.GoalDiff != b.GoalDiff {
		return a.GoalDiff > b.GoalDiff
	}
	return a.GoalsFor > b.GoalsFor
}

func level(a, b Standing) bool {
	return a.Points == b.Points && a.GoalDiff == b.GoalDiff && a.GoalsFor == b.GoalsFor
}

// breakTie sorts teams level on the main criteria using only the matches
// they played against each other.
func breakTie(tied []Standing, matches []GroupMatch) {
	in := make(map[*team.Team]int, len(tied))
	mini := make([]Standing, len(tied))
	for i, s := range tied {
		in[s.Team] = i
		mini[i] = Standing{Team: s.Team, slot: s.slot}
	}
	for _, m := range matches {
		ia, okA := in[m.TeamA]
		ib, okB := in[m.TeamB]
		if !okA || !okB {
			continue
		}
		mini[ia].record(m.ScoreA, m.ScoreB)
		mini[ib].record(m.ScoreB, m.ScoreA)
	}

	h2h := make(map[*team.Team]Standing, len(mini))
	for _, s := range mini {
		h2h[s.Team] = s
	}
	sort.SliceStable(tied, func(i, j int) bool {
		a, b := h2h[tied[i].Team], h2h[tied[j].Team]
		if !level(a, b) {
			return ahead(a, b)
		}
		return tied[i].slot < tied[j].slot
	})
}
