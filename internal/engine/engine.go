// Package engine simulates football matches: the Poisson scoring model,
// single matches, knockout ties with extra time and penalties, and
// four-team round-robin groups.
//
// The engine is pure apart from its random Source. An Engine is not safe
// for concurrent use; run one Engine per goroutine.
package engine

import (
	"errors"
	"fmt"
)

const (
	// MinSurprise and MaxSurprise bound the surprise dial.
	MinSurprise = 0
	MaxSurprise = 10
)

var (
	ErrInvalidSurprise = errors.New("surprise level out of range")
	ErrAlreadyResolved = errors.New("matchup already resolved")
	ErrNilSource       = errors.New("random source is nil")
)

// Engine runs simulations for one tournament run at a fixed surprise level.
type Engine struct {
	src      Source
	surprise int
}

// New returns an Engine drawing from src. surprise must be in [0,10].
func New(src Source, surprise int) (*Engine, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	if err := ValidateSurprise(surprise); err != nil {
		return nil, err
	}
	return &Engine{src: src, surprise: surprise}, nil
}

// ValidateSurprise reports whether level is a valid surprise level.
func ValidateSurprise(level int) error {
	if level < MinSurprise || level > MaxSurprise {
		return fmt.Errorf("%w: %d (want %d..%d)", ErrInvalidSurprise, level, MinSurprise, MaxSurprise)
	}
	return nil
}

// Surprise returns the engine's surprise level.
func (e *Engine) Surprise() int { return e.surprise }

// Source returns the engine's random stream, for callers that need to
// shuffle with the same stream (draws, brackets).
func (e *Engine) Source() Source { return e.src }
