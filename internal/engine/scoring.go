package engine

import (
	"math"

	"github.com/albapepper/copa-sim/internal/team"
)

const (
	// BaseScoringRate is the expected goals of a side whose attack equals
	// the opposing defense.
	BaseScoringRate = 1.5

	// MinDefense replaces a zero or negative defense capacity.
	MinDefense = 1e-3

	hierarchyScale = 20.0
	levelDamping   = 5.0
)

// ExpectedGoals returns the pre-surprise Poisson rates of both sides.
// In important matches the side with more hierarchy gets a boost that
// fades out when both teams are of a similar level.
func ExpectedGoals(a, b *team.Team, important bool) (lambdaA, lambdaB float64) {
	lambdaA = BaseScoringRate * (a.Stats.GoalCapacity / defense(b))
	lambdaB = BaseScoringRate * (b.Stats.GoalCapacity / defense(a))

	if important {
		hierarchyDiff := a.Stats.Hierarchy - b.Stats.Hierarchy
		levelDiff := math.Abs(a.Stats.Level - b.Stats.Level)
		damping := 1 - math.Exp(-levelDiff/levelDamping)
		shift := math.Abs(hierarchyDiff) / hierarchyScale * damping

		if hierarchyDiff > 0 {
			lambdaA *= 1 + shift
			lambdaB *= 1 - shift
		} else {
			lambdaB *= 1 + shift
			lambdaA *= 1 - shift
		}
	}

	return math.Max(0, lambdaA), math.Max(0, lambdaB)
}

func defense(t *team.Team) float64 {
	if t.Stats.DefenseCapacity <= 0 {
		return MinDefense
	}
	return t.Stats.DefenseCapacity
}

// ApplySurprise scales lambda by a random multiplier in
// [1-f, 1+f] where f = surprise/10. Surprise 0 leaves lambda unchanged.
func ApplySurprise(src Source, lambda float64, surprise int) float64 {
	factor := float64(surprise) / 10.0
	r := src.Float64() * 2
	return math.Max(0, lambda*((1-factor)+r*factor))
}

// poissonChunk bounds the rate of a single multiplication run. e^-lambda
// underflows to zero for lambda above ~745.
const poissonChunk = 500.0

// Poisson draws a Poisson(lambda) variate by multiplying uniforms until the
// running product falls below e^-lambda. Rates above poissonChunk are split
// into chunks and the draws summed, which keeps the result exact. lambda <= 0
// always yields 0.
func Poisson(src Source, lambda float64) int {
	if lambda <= 0 || math.IsNaN(lambda) {
		return 0
	}
	k := 0
	for lambda > poissonChunk {
		k += knuth(src, poissonChunk)
		lambda -= poissonChunk
	}
	return k + knuth(src, lambda)
}

func knuth(src Source, lambda float64) int {
	limit := math.Exp(-lambda)
	p := 1.0
	k := 0
	for {
		k++
		p *= src.Float64()
		if p <= limit {
			return k - 1
		}
	}
}

// ScoreMatch draws the goals of one match between a and b.
func (e *Engine) ScoreMatch(a, b *team.Team, important bool) (scoreA, scoreB int) {
	lambdaA, lambdaB := ExpectedGoals(a, b, important)
	lambdaA = ApplySurprise(e.src, lambdaA, e.surprise)
	lambdaB = ApplySurprise(e.src, lambdaB, e.surprise)
	return Poisson(e.src, lambdaA), Poisson(e.src, lambdaB)
}
