package cache

import (
	"sync"
	"time"
)

// tracker arms and cancels the one-shot rollback task of each pending
// update. Every terminal transition of an update must go through
// Cancel exactly once so no timer outlives its update.
type tracker struct {
	clock Clock

	mu     sync.Mutex
	timers map[string]Timer
}

func newTracker(clock Clock) *tracker {
	return &tracker{
		clock:  clock,
		timers: make(map[string]Timer),
	}
}

// Schedule arms the rollback task for an update. An existing task for
// the same id is stopped first.
func (t *tracker) Schedule(updateID string, d time.Duration, fire func()) {
	t.mu.Lock()
	if prev, ok := t.timers[updateID]; ok {
		prev.Stop()
	}
	t.timers[updateID] = t.clock.AfterFunc(d, fire)
	t.mu.Unlock()
}

// Cancel stops and forgets the task for an update.
// Returns false if no task was armed.
func (t *tracker) Cancel(updateID string) bool {
	t.mu.Lock()
	timer, ok := t.timers[updateID]
	if ok {
		timer.Stop()
		delete(t.timers, updateID)
	}
	t.mu.Unlock()
	return ok
}

// CancelAll stops every outstanding task.
func (t *tracker) CancelAll() {
	t.mu.Lock()
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
	t.mu.Unlock()
}

// Count returns the number of armed tasks.
func (t *tracker) Count() int {
	t.mu.Lock()
	count := len(t.timers)
	t.mu.Unlock()
	return count
}
