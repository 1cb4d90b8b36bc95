package engine

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Source is the random stream the engine draws from. Implementations are
// not safe for concurrent use; give every goroutine its own Source.
type Source interface {
	// Float64 returns a value in [0,1).
	Float64() float64
	// IntN returns a value in [0,n). It panics if n <= 0.
	IntN(n int) int
}

// Source kinds accepted by NewSource.
const (
	SourcePCG        = "pcg"
	SourceXorshift32 = "xorshift32"
)

// NewSource builds a Source of the given kind. A zero seed means
// time-seeded; the seed actually used is returned so runs can be replayed.
func NewSource(kind string, seed uint64) (Source, uint64, error) {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	switch kind {
	case "", SourcePCG:
		return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), seed, nil
	case SourceXorshift32:
		return newXorshift32(seed), seed, nil
	default:
		return nil, 0, fmt.Errorf("unknown random source %q (want %q or %q)", kind, SourcePCG, SourceXorshift32)
	}
}

// xorshift32 is a tiny, fast generator for bulk Monte-Carlo runs.
type xorshift32 struct {
	state uint32
}

func newXorshift32(seed uint64) *xorshift32 {
	s := uint32(seed) ^ uint32(seed>>32)
	if s == 0 {
		// an all-zero state never leaves zero
		s = 0x6d2b79f5
	}
	return &xorshift32{state: s}
}

func (r *xorshift32) next() uint32 {
	r.state ^= r.state << 13
	r.state ^= r.state >> 17
	r.state ^= r.state << 5
	return r.state
}

func (r *xorshift32) Float64() float64 {
	return float64(r.next()) / 4294967296.0
}

func (r *xorshift32) IntN(n int) int {
	if n <= 0 {
		panic("engine: IntN called with n <= 0")
	}
	return int(r.Float64() * float64(n))
}
