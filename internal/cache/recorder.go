package cache

import (
	"time"

	"main/internal/entity"
)

// EventKind identifies a sync lifecycle transition.
type EventKind uint8

const (
	EventRemoteApplied EventKind = iota + 1
	EventOptimisticApplied
	EventConfirmed
	EventRolledBack
	EventSuperseded
	EventConflictRaised
	EventConflictResolved
)

func (k EventKind) String() string {
	switch k {
	case EventRemoteApplied:
		return "remote_applied"
	case EventOptimisticApplied:
		return "optimistic_applied"
	case EventConfirmed:
		return "confirmed"
	case EventRolledBack:
		return "rolled_back"
	case EventSuperseded:
		return "superseded"
	case EventConflictRaised:
		return "conflict_raised"
	case EventConflictResolved:
		return "conflict_resolved"
	default:
		return "unknown"
	}
}

// Event describes one sync lifecycle transition for journaling.
type Event struct {
	Kind       EventKind
	Key        entity.Key
	UpdateID   string
	ConflictID string
	Strategy   Strategy
	Version    int64
	At         time.Time
}

// Recorder receives sync lifecycle events. Implementations must not
// call back into the cache.
type Recorder interface {
	Record(e Event)
}

type nopRecorder struct{}

func (nopRecorder) Record(Event) {}
