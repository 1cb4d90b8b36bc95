package events

import (
	"context"
	"sync"
)

// Memory keeps the latest events in process and fans them out to
// subscribers. The API serves its feed at /api/v1/events. Slow subscribers
// miss events rather than block publishers.
type Memory struct {
	mu          sync.RWMutex
	events      []Event
	subscribers []chan Event
	max         int
	closed      bool
}

// NewMemory keeps up to max events (0 = 1000).
func NewMemory(max int) *Memory {
	if max <= 0 {
		max = 1000
	}
	return &Memory{max: max}
}

// Publish records e and offers it to every subscriber. After Close events
// are still recorded but no longer delivered.
func (m *Memory) Publish(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	if len(m.events) > m.max {
		m.events = m.events[len(m.events)-m.max:]
	}
	if m.closed {
		return nil
	}
	for _, sub := range m.subscribers {
		select {
		case sub <- e:
		default:
		}
	}
	return nil
}

// Subscribe returns a buffered channel receiving every later event. The
// channel is closed by Close; subscribing to a closed bus yields a closed
// channel.
func (m *Memory) Subscribe() chan Event {
	ch := make(chan Event, 100)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		close(ch)
		return ch
	}
	m.subscribers = append(m.subscribers, ch)
	return ch
}

// Events returns a copy of the retained events, oldest first.
func (m *Memory) Events() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Recent returns up to n retained events, newest first.
func (m *Memory) Recent(n int) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n = min(n, len(m.events))
	out := make([]Event, 0, max(n, 0))
	for i := len(m.events) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.events[i])
	}
	return out
}

func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for _, sub := range m.subscribers {
		close(sub)
	}
	m.subscribers = nil
}
