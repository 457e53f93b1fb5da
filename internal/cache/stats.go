package cache

import (
	"sort"
	"time"

	"github.com/bytedance/sonic"
)

// Stats is a point-in-time aggregation over the cache contents.
type Stats struct {
	LastSyncAt           time.Time
	TotalEntries         int
	DirtyEntries         int
	TotalSubscribers     int
	ApproxCacheSizeBytes int64
}

// SyncStatus is the full read-only introspection view: counters plus
// the pending update and unresolved conflict listings.
type SyncStatus struct {
	Stats     Stats
	Pending   []PendingUpdate
	Conflicts []ConflictEntry
}

// Stats aggregates cache counters. Reading never mutates cache state.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statsLocked()
}

func (c *Cache) statsLocked() Stats {
	stats := Stats{
		LastSyncAt:       c.lastSyncAt,
		TotalEntries:     len(c.records),
		TotalSubscribers: c.subs.Count(),
	}
	for _, rec := range c.records {
		if rec.dirty {
			stats.DirtyEntries++
		}
		if payload, err := sonic.ConfigFastest.Marshal(rec.data); err == nil {
			stats.ApproxCacheSizeBytes += int64(len(payload))
		}
	}
	return stats
}

// PendingUpdates lists the pending optimistic updates, oldest first.
func (c *Cache) PendingUpdates() []PendingUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *Cache) pendingLocked() []PendingUpdate {
	out := make([]PendingUpdate, 0, len(c.updates))
	for _, pu := range c.updates {
		clone := *pu
		clone.Patch = pu.Patch.Clone()
		clone.Base = pu.Base.Clone()
		out = append(out, clone)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AppliedAt.Before(out[j].AppliedAt)
	})
	return out
}

// Conflicts lists the unresolved conflicts, oldest first.
func (c *Cache) Conflicts() []ConflictEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conflictsLocked()
}

func (c *Cache) conflictsLocked() []ConflictEntry {
	out := make([]ConflictEntry, 0, len(c.conflicts))
	for _, ce := range c.conflicts {
		clone := *ce
		clone.LocalData = ce.LocalData.Clone()
		clone.RemoteData = ce.RemoteData.Clone()
		out = append(out, clone)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Status returns the full introspection view in one pass.
func (c *Cache) Status() SyncStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return SyncStatus{
		Stats:     c.statsLocked(),
		Pending:   c.pendingLocked(),
		Conflicts: c.conflictsLocked(),
	}
}
