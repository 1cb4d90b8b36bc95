package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/albapepper/copa-sim/internal/db"
	"github.com/albapepper/copa-sim/internal/engine"
	"github.com/albapepper/copa-sim/internal/team"
	"github.com/albapepper/copa-sim/internal/tournament"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// describeTie renders a decided tie, e.g. "Inter 1 - 1 Porto (aet, pens 4-3)".
func describeTie(m engine.Matchup) string {
	if m.Result == nil {
		return fmt.Sprintf("%s v %s (unplayed)", m.TeamA.Name, m.TeamB.Name)
	}
	r := m.Result
	s := fmt.Sprintf("%s %d - %d %s", m.TeamA.Name, r.ScoreA, r.ScoreB, m.TeamB.Name)
	switch r.Decision {
	case engine.DecidedExtraTime:
		s += " (aet)"
	case engine.DecidedPenalties:
		s += fmt.Sprintf(" (pens %d-%d)", r.Penalties.A, r.Penalties.B)
	}
	return s + " -> " + r.Winner.Name
}

func printGroups(w io.Writer, groups []engine.Group) {
	tw := newTable(w)
	fmt.Fprintln(tw, "Group\tPot 1\tPot 2\tPot 3\tPot 4")
	for _, g := range groups {
		fmt.Fprintf(tw, "%s", g.Name)
		for _, t := range g.Teams {
			fmt.Fprintf(tw, "\t%s", t.Name)
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

func printStandings(w io.Writer, r engine.GroupResult) {
	fmt.Fprintf(w, "Group %s\n", r.Group)
	tw := newTable(w)
	fmt.Fprintln(tw, "#\tTeam\tP\tW\tD\tL\tGF\tGA\tGD\tPts")
	for i, s := range r.Standings {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%+d\t%d\n",
			i+1, s.Team.Name, s.Played, s.Wins, s.Draws, s.Losses, s.GoalsFor, s.GoalsAgainst, s.GoalDiff, s.Points)
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func printRun(w io.Writer, run *tournament.Run) {
	for _, g := range run.Groups {
		printStandings(w, g)
	}
	for _, s := range run.Stages {
		fmt.Fprintf(w, "== %s ==\n", s.Name)
		for _, m := range s.Matchups {
			fmt.Fprintf(w, "  %s\n", describeTie(m))
		}
	}
	fmt.Fprintf(w, "\nChampion: %s  Runner-up: %s\n", run.Champion, run.RunnerUp)
	fmt.Fprintf(w, "run %s  format %s  surprise %d  seed %d\n", run.ID, run.Format, run.Surprise, run.Seed)
}

func printOdds(w io.Writer, odds *tournament.Odds, top int) {
	rows := odds.Table()
	if top > 0 && top < len(rows) {
		rows = rows[:top]
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "Team\tChampion\tFinal\tSemi")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%.2f%%\t%.2f%%\t%.2f%%\n", r.Team, r.ChampionPct, r.FinalPct, r.SemiPct)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%s\n", odds.Summary())
}

func printPots(w io.Writer, pots []team.Pot) {
	tw := newTable(w)
	fmt.Fprintln(tw, "Pot\tTeam\tLevel\tAttack\tDefense\tHierarchy")
	for i, p := range pots {
		for _, t := range p {
			fmt.Fprintf(tw, "%d\t%s\t%.1f\t%.1f\t%.1f\t%.1f\n",
				i+1, t.Name, t.Stats.Level, t.Stats.GoalCapacity, t.Stats.DefenseCapacity, t.Stats.Hierarchy)
		}
	}
	tw.Flush()
}

func printRunList(w io.Writer, runs []db.RunSummary) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tFormat\tSurprise\tSeed\tChampion\tRunner-up\tCreated")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			r.ID, r.Format, r.Surprise, r.Seed, r.Champion, r.RunnerUp, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
}
