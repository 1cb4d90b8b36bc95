package engine

// shootoutTallies are plausible shootout finals, winner first. Kicks are not
// simulated individually.
var shootoutTallies = [...][2]int{
	{3, 0},
	{5, 4},
	{5, 3},
	{3, 2},
	{3, 1},
	{6, 5},
	{7, 6},
	{8, 7},
	{9, 8},
	{10, 9},
}

// Penalties is a shootout tally.
type Penalties struct {
	A int `json:"a"`
	B int `json:"b"`
}

// PenaltyShootout picks a tally uniformly and gives the higher number to
// either side with equal probability. The result is never level.
func (e *Engine) PenaltyShootout() Penalties {
	tally := shootoutTallies[e.src.IntN(len(shootoutTallies))]
	if e.src.Float64() < 0.5 {
		return Penalties{A: tally[0], B: tally[1]}
	}
	return Penalties{A: tally[1], B: tally[0]}
}
