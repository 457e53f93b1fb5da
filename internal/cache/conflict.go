package cache

import (
	"github.com/google/uuid"
	"github.com/yanun0323/logs"

	"main/internal/entity"
)

// detectLocked classifies an authoritative write against the pending
// update's fixed baseline:
//
//   - no divergence from the baseline: the write is redundant, the
//     optimistic value stays;
//   - divergence in fields outside the optimistic patch: those fields
//     merge through silently, optimistic fields keep the local value;
//   - divergence only in optimistically touched fields: a conflict is
//     raised and the key is not mutated until resolved.
func (c *Cache) detectLocked(fx *effects, pu *PendingUpdate, data entity.Data, serverVersion int64) {
	diff := entity.DiffFields(pu.Base, data)
	if len(diff) == 0 {
		return
	}

	var untouched []string
	overlap := false
	for _, field := range diff {
		if _, ok := pu.Patch[field]; ok {
			overlap = true
		} else {
			untouched = append(untouched, field)
		}
	}

	if len(untouched) > 0 {
		rec := c.records[pu.Key]
		if rec.data == nil {
			rec.data = make(entity.Data)
		}
		if rec.confirmed == nil {
			rec.confirmed = make(entity.Data)
		}
		for _, field := range untouched {
			value, ok := data[field]
			if !ok {
				delete(rec.data, field)
				delete(rec.confirmed, field)
				continue
			}
			rec.data[field] = value
			rec.confirmed[field] = value
		}
		rec.version = serverVersion
		rec.lastConfirmedAt = c.lastSyncAt
		rec.speculative = false
		c.emitLocked(fx, Event{Kind: EventRemoteApplied, Key: pu.Key, UpdateID: pu.ID, Version: serverVersion})
		c.notifyLocked(fx, pu.Key)
		return
	}

	if overlap {
		c.raiseLocked(fx, pu, data, serverVersion)
	}
}

// raiseLocked records a conflict entry for the key. At most one
// unresolved entry exists per key; the caller already routed later
// remote writes into the coalescing queue.
func (c *Cache) raiseLocked(fx *effects, pu *PendingUpdate, data entity.Data, serverVersion int64) {
	rec := c.records[pu.Key]
	ce := &ConflictEntry{
		ID:            uuid.NewString(),
		Key:           pu.Key,
		Timestamp:     c.clock.Now(),
		LocalData:     rec.data.Clone(),
		RemoteData:    data.Clone(),
		RemoteVersion: serverVersion,
		Status:        ConflictStatusUnresolved,
		touched:       pu.Patch.Fields(),
	}
	c.conflicts[ce.ID] = ce
	c.conflictByKey[pu.Key] = ce.ID
	logs.Warnf("conflict on %s, update %s vs server version %d", pu.Key, pu.ID, serverVersion)
	c.emitLocked(fx, Event{
		Kind:       EventConflictRaised,
		Key:        pu.Key,
		UpdateID:   pu.ID,
		ConflictID: ce.ID,
		Version:    serverVersion,
	})
}

// ResolveConflict applies a resolution strategy to an unresolved
// conflict. The result becomes the confirmed baseline, subscribers
// are notified, and any remote write queued behind the conflict is
// replayed. Returns false for an unknown or resolved conflict id or
// an invalid strategy.
func (c *Cache) ResolveConflict(conflictID string, strategy Strategy) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	ce, ok := c.conflicts[conflictID]
	if !ok || ce.Status != ConflictStatusUnresolved {
		c.mu.Unlock()
		logs.Warnf("resolve ignored, unknown or resolved conflict %s", conflictID)
		return false
	}
	if !strategy.Valid() {
		c.mu.Unlock()
		logs.Warnf("resolve ignored, invalid strategy %q for conflict %s", strategy, conflictID)
		return false
	}

	fx := &effects{}
	rec := c.ensureLocked(ce.Key)

	var pu *PendingUpdate
	if updateID, pending := c.pendingByKey[ce.Key]; pending {
		pu = c.updates[updateID]
	}

	var updateID string
	if pu != nil {
		updateID = pu.ID
	}

	switch strategy {
	case StrategyLocal:
		// the optimistic value frozen on the entry becomes the
		// confirmed baseline
		if pu != nil {
			c.terminateLocked(fx, pu, UpdateStatusConfirmed, EventConfirmed)
		}
		rec.data = ce.LocalData.Clone()
		rec.confirmed = ce.LocalData.Clone()
		rec.version++
	case StrategyRemote:
		// the optimistic patch is discarded
		if pu != nil {
			c.terminateLocked(fx, pu, UpdateStatusRolledBack, EventRolledBack)
		}
		rec.data = ce.RemoteData.Clone()
		rec.confirmed = ce.RemoteData.Clone()
		rec.version = ce.RemoteVersion
	case StrategyMerge:
		merge := c.merges[ce.Key.Type]
		if merge == nil {
			merge = entity.MergeFields
		}
		merged := merge(ce.LocalData.Clone(), ce.RemoteData, ce.touched)
		if pu != nil {
			c.terminateLocked(fx, pu, UpdateStatusConfirmed, EventConfirmed)
		}
		rec.data = merged.Clone()
		rec.confirmed = merged.Clone()
		rec.version = ce.RemoteVersion + 1
	}
	rec.lastConfirmedAt = c.clock.Now()
	rec.dirty = false
	rec.speculative = false

	ce.Status = ConflictStatusResolved
	delete(c.conflicts, ce.ID)
	delete(c.conflictByKey, ce.Key)
	c.emitLocked(fx, Event{
		Kind:       EventConflictResolved,
		Key:        ce.Key,
		UpdateID:   updateID,
		ConflictID: ce.ID,
		Strategy:   strategy,
		Version:    rec.version,
	})
	c.notifyLocked(fx, ce.Key)

	if queued, pendingWrite := c.queued[ce.Key]; pendingWrite {
		delete(c.queued, ce.Key)
		c.applyRemoteLocked(fx, ce.Key, queued.data, queued.version)
	}
	c.mu.Unlock()

	c.flush(fx)
	return true
}
