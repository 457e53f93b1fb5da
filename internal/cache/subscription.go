package cache

import (
	"github.com/google/uuid"

	"main/internal/entity"
)

// Subscription binds a callback to every snapshot change of one key.
type Subscription struct {
	ID  string
	Key entity.Key

	fn func(Snapshot)
}

// registry holds subscriptions in per-key registration order.
// It is guarded by the owning Cache's lock and carries no lock of
// its own.
type registry struct {
	subs  map[string]*Subscription
	byKey map[entity.Key][]*Subscription
}

func newRegistry() *registry {
	return &registry{
		subs:  make(map[string]*Subscription),
		byKey: make(map[entity.Key][]*Subscription),
	}
}

// Add registers a callback for a key and returns the subscription id.
func (r *registry) Add(key entity.Key, fn func(Snapshot)) string {
	sub := &Subscription{
		ID:  uuid.NewString(),
		Key: key,
		fn:  fn,
	}
	r.subs[sub.ID] = sub
	r.byKey[key] = append(r.byKey[key], sub)
	return sub.ID
}

// Remove drops a subscription. Returns false if the id is unknown.
func (r *registry) Remove(subscriptionID string) bool {
	sub, ok := r.subs[subscriptionID]
	if !ok {
		return false
	}
	delete(r.subs, subscriptionID)

	ordered := r.byKey[sub.Key]
	for i, candidate := range ordered {
		if candidate.ID == subscriptionID {
			ordered = append(ordered[:i], ordered[i+1:]...)
			break
		}
	}
	if len(ordered) == 0 {
		delete(r.byKey, sub.Key)
	} else {
		r.byKey[sub.Key] = ordered
	}
	return true
}

// Callbacks returns the callbacks for a key in registration order.
func (r *registry) Callbacks(key entity.Key) []func(Snapshot) {
	ordered := r.byKey[key]
	if len(ordered) == 0 {
		return nil
	}
	out := make([]func(Snapshot), 0, len(ordered))
	for _, sub := range ordered {
		out = append(out, sub.fn)
	}
	return out
}

// Count returns the number of registered subscriptions.
func (r *registry) Count() int {
	return len(r.subs)
}

// Clear drops every subscription.
func (r *registry) Clear() {
	r.subs = make(map[string]*Subscription)
	r.byKey = make(map[entity.Key][]*Subscription)
}
