package cache

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yanun0323/logs"

	"main/internal/entity"
	"main/pkg/exception"
)

const defaultTTL = 5 * time.Second

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the wall clock, used to drive rollback timers
// with a virtual clock in tests.
func WithClock(clock Clock) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithRecorder installs a sync event recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Cache) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithDefaultTTL sets the rollback deadline used when ApplyOptimistic
// receives a non-positive ttl.
func WithDefaultTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithMerge registers an entity-type specific merge function used by
// the merge resolution strategy.
func WithMerge(entityType string, fn entity.MergeFunc) Option {
	return func(c *Cache) {
		if entityType != "" && fn != nil {
			c.merges[entityType] = fn
		}
	}
}

// Cache is a versioned in-memory store of remote-owned entities with
// optimistic local mutation, timeout-driven rollback and conflict
// detection against authoritative writes.
//
// All public operations serialize on one lock; the only asynchronous
// element is the per-update rollback timer, which re-checks the
// update's status under the lock before acting.
type Cache struct {
	mu sync.Mutex

	clock    Clock
	recorder Recorder
	ttl      time.Duration
	merges   map[string]entity.MergeFunc

	records       map[entity.Key]*record
	updates       map[string]*PendingUpdate
	pendingByKey  map[entity.Key]string
	conflicts     map[string]*ConflictEntry
	conflictByKey map[entity.Key]string
	queued        map[entity.Key]remoteWrite

	timers *tracker
	subs   *registry

	lastSyncAt time.Time
	closed     bool
}

// New creates an empty sync cache. One instance is shared per
// session; create independent instances in tests.
func New(opts ...Option) *Cache {
	c := &Cache{
		clock:         SystemClock(),
		recorder:      nopRecorder{},
		ttl:           defaultTTL,
		merges:        make(map[string]entity.MergeFunc),
		records:       make(map[entity.Key]*record),
		updates:       make(map[string]*PendingUpdate),
		pendingByKey:  make(map[entity.Key]string),
		conflicts:     make(map[string]*ConflictEntry),
		conflictByKey: make(map[entity.Key]string),
		queued:        make(map[entity.Key]remoteWrite),
		subs:          newRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.timers = newTracker(c.clock)
	return c
}

// Get returns the current, possibly optimistic, view of an entity.
func (c *Cache) Get(key entity.Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.records[key]; !ok {
		return Snapshot{}, false
	}
	return c.snapshotLocked(key), true
}

// ApplyOptimistic mutates the snapshot immediately, registers a
// pending update with the confirmed baseline captured as of now, and
// arms a rollback timer. A prior pending update on the same key is
// superseded and its timer cancelled.
func (c *Cache) ApplyOptimistic(key entity.Key, patch entity.Patch, ttl time.Duration) (string, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", exception.ErrCacheClosed
	}
	if len(patch) == 0 {
		c.mu.Unlock()
		return "", exception.ErrEmptyPatch
	}
	if _, blocked := c.conflictByKey[key]; blocked {
		c.mu.Unlock()
		logs.Warnf("optimistic write on %s rejected, conflict unresolved", key)
		return "", exception.ErrConflictUnresolved
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	fx := &effects{}
	if prevID, ok := c.pendingByKey[key]; ok {
		prev := c.updates[prevID]
		prev.Status = UpdateStatusSuperseded
		c.timers.Cancel(prevID)
		delete(c.updates, prevID)
		delete(c.pendingByKey, key)
		c.emitLocked(fx, Event{Kind: EventSuperseded, Key: key, UpdateID: prevID})
	}

	rec, ok := c.records[key]
	if !ok {
		// no confirmed baseline yet
		rec = &record{speculative: true}
		c.records[key] = rec
	}

	now := c.clock.Now()
	pu := &PendingUpdate{
		ID:          uuid.NewString(),
		Key:         key,
		Patch:       patch.Clone(),
		Base:        rec.confirmed.Clone(),
		BaseVersion: rec.version,
		AppliedAt:   now,
		Deadline:    now.Add(ttl),
		Status:      UpdateStatusPending,
	}
	rec.data = rec.data.Apply(patch)
	rec.dirty = true
	c.updates[pu.ID] = pu
	c.pendingByKey[key] = pu.ID
	c.emitLocked(fx, Event{Kind: EventOptimisticApplied, Key: key, UpdateID: pu.ID})
	c.notifyLocked(fx, key)

	updateID := pu.ID
	c.timers.Schedule(updateID, ttl, func() { c.expire(updateID) })
	c.mu.Unlock()

	c.flush(fx)
	return updateID, nil
}

// ApplyRemote ingests an authoritative write. With no pending update
// on the key it is written through directly; otherwise it is
// classified against the pending update's baseline.
func (c *Cache) ApplyRemote(key entity.Key, data entity.Data, serverVersion int64) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	fx := &effects{}
	c.applyRemoteLocked(fx, key, data, serverVersion)
	c.mu.Unlock()
	c.flush(fx)
}

func (c *Cache) applyRemoteLocked(fx *effects, key entity.Key, data entity.Data, serverVersion int64) {
	c.lastSyncAt = c.clock.Now()

	if conflictID, blocked := c.conflictByKey[key]; blocked {
		// coalesce behind the unresolved conflict, latest payload wins
		c.queued[key] = remoteWrite{data: data.Clone(), version: serverVersion}
		logs.Infof("remote write on %s queued behind conflict %s", key, conflictID)
		return
	}

	updateID, hasPending := c.pendingByKey[key]
	if !hasPending {
		rec := c.ensureLocked(key)
		rec.data = data.Clone()
		rec.confirmed = data.Clone()
		rec.version = serverVersion
		rec.lastConfirmedAt = c.lastSyncAt
		rec.dirty = false
		rec.speculative = false
		c.emitLocked(fx, Event{Kind: EventRemoteApplied, Key: key, Version: serverVersion})
		c.notifyLocked(fx, key)
		return
	}

	c.detectLocked(fx, c.updates[updateID], data, serverVersion)
}

// Confirm marks a pending update confirmed; the optimistic data
// becomes the new baseline and the version increments. Returns false
// for an unknown or already terminal update id.
func (c *Cache) Confirm(updateID string) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	pu, ok := c.updates[updateID]
	if !ok || pu.Status != UpdateStatusPending {
		c.mu.Unlock()
		logs.Warnf("confirm ignored, unknown or terminal update %s", updateID)
		return false
	}
	if _, blocked := c.conflictByKey[pu.Key]; blocked {
		c.mu.Unlock()
		logs.Warnf("confirm of %s ignored, conflict unresolved on %s", updateID, pu.Key)
		return false
	}

	fx := &effects{}
	c.terminateLocked(fx, pu, UpdateStatusConfirmed, EventConfirmed)
	rec := c.records[pu.Key]
	rec.confirmed = rec.data.Clone()
	rec.version++
	rec.lastConfirmedAt = c.clock.Now()
	rec.dirty = false
	rec.speculative = false
	c.notifyLocked(fx, pu.Key)
	c.mu.Unlock()

	c.flush(fx)
	return true
}

// Rollback restores the snapshot to the update's confirmed baseline.
// Returns false for an unknown or already terminal update id.
func (c *Cache) Rollback(updateID string) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	pu, ok := c.updates[updateID]
	if !ok || pu.Status != UpdateStatusPending {
		c.mu.Unlock()
		logs.Warnf("rollback ignored, unknown or terminal update %s", updateID)
		return false
	}
	if _, blocked := c.conflictByKey[pu.Key]; blocked {
		c.mu.Unlock()
		logs.Warnf("rollback of %s ignored, conflict unresolved on %s", updateID, pu.Key)
		return false
	}

	fx := &effects{}
	c.restoreLocked(fx, pu)
	c.mu.Unlock()

	c.flush(fx)
	return true
}

// Subscribe registers a callback fired after every snapshot change of
// the key. Callbacks for one key fire in registration order.
func (c *Cache) Subscribe(key entity.Key, fn func(Snapshot)) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || fn == nil {
		return ""
	}
	return c.subs.Add(key, fn)
}

// Unsubscribe drops a subscription. Returns false if unknown.
func (c *Cache) Unsubscribe(subscriptionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs.Remove(subscriptionID)
}

// Close cancels every outstanding rollback timer and clears every
// subscription. Idempotent; timers that still fire after Close are
// no-ops.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	armed := c.timers.Count()
	c.timers.CancelAll()
	c.subs.Clear()
	c.mu.Unlock()

	if armed > 0 {
		logs.Infof("sync cache closed, cancelled %d rollback timers", armed)
	}
}

// expire is the rollback timer callback. It re-checks the update's
// status under the lock: any terminal transition that happened first
// wins and the fire is a no-op.
func (c *Cache) expire(updateID string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	pu, ok := c.updates[updateID]
	if !ok || pu.Status != UpdateStatusPending {
		c.mu.Unlock()
		return
	}
	if _, blocked := c.conflictByKey[pu.Key]; blocked {
		// the key is frozen until the conflict resolves; resolution
		// performs the update's terminal transition itself
		c.mu.Unlock()
		return
	}

	fx := &effects{}
	c.restoreLocked(fx, pu)
	logs.Infof("optimistic update %s on %s expired, rolled back", updateID, pu.Key)
	c.mu.Unlock()

	c.flush(fx)
}

// terminateLocked performs the single terminal transition of a
// pending update and clears its timer.
func (c *Cache) terminateLocked(fx *effects, pu *PendingUpdate, status UpdateStatus, kind EventKind) {
	pu.Status = status
	c.timers.Cancel(pu.ID)
	delete(c.updates, pu.ID)
	delete(c.pendingByKey, pu.Key)
	c.emitLocked(fx, Event{Kind: kind, Key: pu.Key, UpdateID: pu.ID})
}

// restoreLocked rolls a pending update back to its confirmed
// baseline. A speculative entry created by the optimistic write
// itself is removed entirely.
func (c *Cache) restoreLocked(fx *effects, pu *PendingUpdate) {
	c.terminateLocked(fx, pu, UpdateStatusRolledBack, EventRolledBack)
	rec := c.records[pu.Key]
	if rec == nil {
		return
	}
	if rec.speculative {
		delete(c.records, pu.Key)
	} else {
		rec.data = rec.confirmed.Clone()
		rec.dirty = false
	}
	c.notifyLocked(fx, pu.Key)
}

func (c *Cache) ensureLocked(key entity.Key) *record {
	rec, ok := c.records[key]
	if !ok {
		rec = &record{}
		c.records[key] = rec
	}
	return rec
}

func (c *Cache) snapshotLocked(key entity.Key) Snapshot {
	rec := c.records[key]
	if rec == nil {
		return Snapshot{Key: key}
	}
	return Snapshot{
		Key:             key,
		Data:            rec.data.Clone(),
		Version:         rec.version,
		LastConfirmedAt: rec.lastConfirmedAt,
		Dirty:           rec.dirty,
	}
}

// note carries one key's callbacks plus the snapshot to deliver.
type note struct {
	fns  []func(Snapshot)
	snap Snapshot
}

// effects collects recorder events and subscriber notifications built
// under the lock, delivered after it is released.
type effects struct {
	events []Event
	notes  []note
}

func (c *Cache) emitLocked(fx *effects, e Event) {
	e.At = c.clock.Now()
	fx.events = append(fx.events, e)
}

func (c *Cache) notifyLocked(fx *effects, key entity.Key) {
	fns := c.subs.Callbacks(key)
	if len(fns) == 0 {
		return
	}
	fx.notes = append(fx.notes, note{fns: fns, snap: c.snapshotLocked(key)})
}

func (c *Cache) flush(fx *effects) {
	for _, e := range fx.events {
		c.recorder.Record(e)
	}
	for _, n := range fx.notes {
		for _, fn := range n.fns {
			fn(n.snap)
		}
	}
}
