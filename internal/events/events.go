// Package events publishes tournament lifecycle events to NATS and to the
// in-memory feed the API serves.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/albapepper/copa-sim/internal/tournament"
)

// Event types.
const (
	TypeRunCompleted  = "run.completed"
	TypeOddsCompleted = "odds.completed"
	TypeRunsPruned    = "runs.pruned"
)

// Event is the JSON payload published for every finished run, odds batch
// or prune.
type Event struct {
	Type      string    `json:"type"`
	RunID     string    `json:"runId,omitempty"`
	Format    string    `json:"format,omitempty"`
	Surprise  int       `json:"surprise"`
	Seed      uint64    `json:"seed,omitempty"`
	Champion  string    `json:"champion,omitempty"`
	RunnerUp  string    `json:"runnerUp,omitempty"`
	Runs      int       `json:"runs,omitempty"`
	Count     int64     `json:"count,omitempty"`
	Timestamp time.Time `json:"ts"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close()
}

// RunCompleted builds the event for a finished run.
func RunCompleted(run *tournament.Run) Event {
	e := Event{
		Type:      TypeRunCompleted,
		RunID:     run.ID,
		Format:    string(run.Format),
		Surprise:  run.Surprise,
		Seed:      run.Seed,
		Timestamp: run.CreatedAt,
	}
	if run.Champion != nil {
		e.Champion = run.Champion.Name
	}
	if run.RunnerUp != nil {
		e.RunnerUp = run.RunnerUp.Name
	}
	return e
}

// OddsCompleted builds the event for a finished Monte-Carlo batch.
func OddsCompleted(o *tournament.Odds) Event {
	e := Event{
		Type:      TypeOddsCompleted,
		Format:    string(o.Format),
		Surprise:  o.Surprise,
		Seed:      o.Seed,
		Runs:      o.Runs,
		Timestamp: time.Now().UTC(),
	}
	if t := o.Table(); len(t) > 0 {
		e.Champion = t[0].Team
	}
	return e
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close()                               {}

// Multi publishes every event to each of its publishers in turn.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() {
	for _, p := range m {
		p.Close()
	}
}
