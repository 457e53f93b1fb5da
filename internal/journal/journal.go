// Package journal records sync cache lifecycle events for audit and
// debugging. Recorders implement cache.Recorder and must stay cheap:
// the cache invokes them synchronously after each operation.
package journal

import (
	"sync"

	"main/internal/cache"
)

// Memory keeps events in order in memory, for tests and tooling.
type Memory struct {
	mu     sync.Mutex
	events []cache.Event
}

// NewMemory creates an empty in-memory recorder.
func NewMemory() *Memory {
	return &Memory{}
}

// Record appends the event.
func (m *Memory) Record(e cache.Event) {
	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()
}

// Events returns a copy of the recorded events in arrival order.
func (m *Memory) Events() []cache.Event {
	m.mu.Lock()
	out := make([]cache.Event, len(m.events))
	copy(out, m.events)
	m.mu.Unlock()
	return out
}

// Len returns the number of recorded events.
func (m *Memory) Len() int {
	m.mu.Lock()
	n := len(m.events)
	m.mu.Unlock()
	return n
}
