package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/albapepper/copa-sim/internal/engine"
	"github.com/albapepper/copa-sim/internal/team"
	"github.com/albapepper/copa-sim/internal/tournament"
)

func TestRunCompleted(t *testing.T) {
	run, err := tournament.Play(context.Background(), team.DefaultPots(),
		tournament.Options{Format: tournament.FormatKeys, Surprise: 4, Source: engine.SourcePCG, Seed: 3},
		slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	e := RunCompleted(run)
	if e.Type != TypeRunCompleted || e.RunID != run.ID || e.Seed != 3 || e.Surprise != 4 {
		t.Errorf("unexpected event %+v", e)
	}
	if e.Champion != run.Champion.Name || e.RunnerUp != run.RunnerUp.Name {
		t.Errorf("champion/runner-up mismatch: %+v", e)
	}
}

func TestMemoryPublish(t *testing.T) {
	m := NewMemory(2)
	sub := m.Subscribe()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := m.Publish(ctx, Event{Type: TypeRunCompleted, RunID: id}); err != nil {
			t.Fatal(err)
		}
	}

	got := m.Events()
	if len(got) != 2 || got[0].RunID != "b" || got[1].RunID != "c" {
		t.Errorf("retained %+v", got)
	}
	if e := <-sub; e.RunID != "a" {
		t.Errorf("subscriber got %+v first", e)
	}

	if r := m.Recent(5); len(r) != 2 || r[0].RunID != "c" {
		t.Errorf("Recent(5) = %+v", r)
	}
	if r := m.Recent(1); len(r) != 1 || r[0].RunID != "c" {
		t.Errorf("Recent(1) = %+v", r)
	}

	m.Close()
	for range sub {
	}
	m.Close()
	if err := m.Publish(ctx, Event{RunID: "d"}); err != nil {
		t.Errorf("Publish after Close: %v", err)
	}
	if _, ok := <-m.Subscribe(); ok {
		t.Error("Subscribe after Close should return a closed channel")
	}
}

func TestMemoryConcurrentClose(t *testing.T) {
	m := NewMemory(0)
	for i := 0; i < 4; i++ {
		m.Subscribe()
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				m.Publish(context.Background(), Event{Type: TypeRunCompleted})
			}
		}()
	}
	m.Close()
	wg.Wait()
	if got := len(m.Events()); got != 1000 {
		t.Errorf("retained %d events, want 1000", got)
	}
}

type failing struct{ closed bool }

func (f *failing) Publish(context.Context, Event) error { return errors.New("broker down") }
func (f *failing) Close()                               { f.closed = true }

func TestMulti(t *testing.T) {
	mem := NewMemory(0)
	bad := &failing{}
	p := Multi{bad, mem}
	if err := p.Publish(context.Background(), Event{RunID: "x"}); err == nil {
		t.Error("expected the failing publisher's error")
	}
	if got := mem.Events(); len(got) != 1 || got[0].RunID != "x" {
		t.Errorf("memory missed the event after an earlier failure: %+v", got)
	}
	p.Close()
	if !bad.closed {
		t.Error("Close not forwarded")
	}
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.Publish(context.Background(), Event{}); err != nil {
		t.Error(err)
	}
	p.Close()
}
