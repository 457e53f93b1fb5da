package cache

import (
	"time"

	"main/internal/entity"
)

// UpdateStatus tracks the lifecycle of a pending optimistic update.
type UpdateStatus uint8

const (
	UpdateStatusUnknown UpdateStatus = iota
	UpdateStatusPending
	UpdateStatusConfirmed
	UpdateStatusRolledBack
	UpdateStatusSuperseded
)

func (s UpdateStatus) String() string {
	switch s {
	case UpdateStatusPending:
		return "pending"
	case UpdateStatusConfirmed:
		return "confirmed"
	case UpdateStatusRolledBack:
		return "rolledback"
	case UpdateStatusSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is a terminal transition.
func (s UpdateStatus) Terminal() bool {
	switch s {
	case UpdateStatusConfirmed, UpdateStatusRolledBack, UpdateStatusSuperseded:
		return true
	default:
		return false
	}
}

// PendingUpdate is an optimistic local mutation awaiting confirmation.
// Base is the confirmed baseline captured at creation time; it is the
// fixed reference point for every later conflict comparison against
// this update.
type PendingUpdate struct {
	ID          string
	Key         entity.Key
	Patch       entity.Patch
	Base        entity.Data
	BaseVersion int64
	AppliedAt   time.Time
	Deadline    time.Time
	Status      UpdateStatus
}

// ConflictStatus tracks the lifecycle of a conflict entry.
type ConflictStatus uint8

const (
	ConflictStatusUnresolved ConflictStatus = iota + 1
	ConflictStatusResolved
)

func (s ConflictStatus) String() string {
	switch s {
	case ConflictStatusUnresolved:
		return "unresolved"
	case ConflictStatusResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// ConflictEntry records a disagreement between a pending optimistic
// update and an authoritative remote write on overlapping fields.
type ConflictEntry struct {
	ID            string
	Key           entity.Key
	Timestamp     time.Time
	LocalData     entity.Data
	RemoteData    entity.Data
	RemoteVersion int64
	Status        ConflictStatus

	// touched freezes the optimistic patch field set at raise time so
	// a merge resolution stays correct even after the pending update
	// reaches a terminal state.
	touched []string
}

// Strategy selects how a conflict is resolved.
type Strategy string

const (
	StrategyLocal  Strategy = "local"
	StrategyRemote Strategy = "remote"
	StrategyMerge  Strategy = "merge"
)

// Valid reports whether the strategy is one of local/remote/merge.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyLocal, StrategyRemote, StrategyMerge:
		return true
	default:
		return false
	}
}

// Snapshot is the externally visible view of a cached entity.
// Version changes only on confirmed authoritative writes, never on
// optimistic ones.
type Snapshot struct {
	Key             entity.Key
	Data            entity.Data
	Version         int64
	LastConfirmedAt time.Time
	Dirty           bool
}

// record is the internal per-key state. data is the live, possibly
// optimistic view; confirmed is the last authoritative baseline.
type record struct {
	data            entity.Data
	confirmed       entity.Data
	version         int64
	lastConfirmedAt time.Time
	dirty           bool

	// speculative marks an entry created by an optimistic write alone,
	// before any authoritative baseline exists. Such an entry is
	// removed entirely when its update rolls back.
	speculative bool
}

// remoteWrite is an authoritative payload coalesced behind an
// unresolved conflict, replayed after resolution.
type remoteWrite struct {
	data    entity.Data
	version int64
}
