// Package team holds the club data the simulation runs on: teams with their
// four rating attributes, and the seeding pots they are drawn from.
package team

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	// StatMin and StatMax bound every rating attribute.
	StatMin = 0.0
	StatMax = 10.0

	// DefenseFloor is the lowest defense capacity a loaded team keeps.
	// Weak defenses below it would blow up expected goals.
	DefenseFloor = 2.5

	// PotSize is the canonical number of teams per pot (4 x 16 = 64 teams).
	PotSize = 16
	// PotCount is the number of seeding tiers.
	PotCount = 4
)

var (
	ErrEmptyName     = errors.New("team name is empty")
	ErrDuplicateName = errors.New("duplicate team name")
)

// Stats are the rating attributes of a team, each in [0,10].
type Stats struct {
	Level           float64 `json:"level" yaml:"level"`
	GoalCapacity    float64 `json:"goalCapacity" yaml:"goalCapacity"`
	DefenseCapacity float64 `json:"defenseCapacity" yaml:"defenseCapacity"`
	Hierarchy       float64 `json:"hierarchy" yaml:"hierarchy"`
}

// Team is a club taking part in a run. Teams are read-only once a run starts.
type Team struct {
	Name  string `json:"name" yaml:"name"`
	Stats Stats  `json:"stats" yaml:"stats"`
}

func (t *Team) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}

// Pot is one seeding tier.
type Pot []*Team

// Names returns the team names in pot order.
func (p Pot) Names() []string {
	names := make([]string, len(p))
	for i, t := range p {
		names[i] = t.Name
	}
	return names
}

// Clone returns a copy of the pot slice. Teams are shared.
func (p Pot) Clone() Pot {
	out := make(Pot, len(p))
	copy(out, p)
	return out
}

// Normalize clamps every stat into [StatMin, StatMax] and lifts the defense
// capacity to DefenseFloor. NaN values become StatMin.
func Normalize(t *Team) {
	t.Name = strings.TrimSpace(t.Name)
	t.Stats.Level = clamp(t.Stats.Level)
	t.Stats.GoalCapacity = clamp(t.Stats.GoalCapacity)
	t.Stats.DefenseCapacity = math.Max(clamp(t.Stats.DefenseCapacity), DefenseFloor)
	t.Stats.Hierarchy = clamp(t.Stats.Hierarchy)
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return StatMin
	}
	return math.Min(StatMax, math.Max(StatMin, v))
}

// NormalizePots normalizes every team of every pot in place. Nil entries
// are left for Validate to report.
func NormalizePots(pots []Pot) {
	for _, p := range pots {
		for _, t := range p {
			if t != nil {
				Normalize(t)
			}
		}
	}
}

// Validate checks that every team has a name and that names are unique
// across all pots.
func Validate(pots []Pot) error {
	seen := make(map[string]int)
	for i, p := range pots {
		for _, t := range p {
			if t == nil || t.Name == "" {
				return fmt.Errorf("pot %d: %w", i+1, ErrEmptyName)
			}
			if prev, ok := seen[t.Name]; ok {
				return fmt.Errorf("%w: %q in pot %d and pot %d", ErrDuplicateName, t.Name, prev+1, i+1)
			}
			seen[t.Name] = i
		}
	}
	return nil
}

// All flattens the pots in pot order.
func All(pots []Pot) []*Team {
	var out []*Team
	for _, p := range pots {
		out = append(out, p...)
	}
	return out
}

// Find returns the team with the given name (case-insensitive).
func Find(pots []Pot, name string) (*Team, bool) {
	for _, p := range pots {
		for _, t := range p {
			if strings.EqualFold(t.Name, name) {
				return t, true
			}
		}
	}
	return nil, false
}
