package entity

import (
	"reflect"
	"sort"
)

// Well-known entity types tracked by the sync cache.
const (
	TypeMarket   = "market"
	TypeBot      = "bot"
	TypeAccount  = "account"
	TypePosition = "position"
)

// Key uniquely identifies a synchronizable entity.
type Key struct {
	Type string
	ID   string
}

// NewKey builds a key from an entity type and id.
func NewKey(entityType, id string) Key {
	return Key{Type: entityType, ID: id}
}

// Zero reports whether the key is empty.
func (k Key) Zero() bool {
	return k.Type == "" && k.ID == ""
}

func (k Key) String() string {
	return k.Type + ":" + k.ID
}

// Data is the field map of an entity snapshot.
type Data map[string]any

// Patch is a partial field overlay applied optimistically.
type Patch map[string]any

// Clone returns an independent shallow copy of the field map.
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	for field, value := range d {
		out[field] = value
	}
	return out
}

// Apply returns a copy of d with the patch fields overlaid.
func (d Data) Apply(p Patch) Data {
	out := d.Clone()
	if out == nil {
		out = make(Data, len(p))
	}
	for field, value := range p {
		out[field] = value
	}
	return out
}

// Clone returns an independent shallow copy of the patch.
func (p Patch) Clone() Patch {
	if p == nil {
		return nil
	}
	out := make(Patch, len(p))
	for field, value := range p {
		out[field] = value
	}
	return out
}

// Fields returns the sorted field names touched by the patch.
func (p Patch) Fields() []string {
	if len(p) == 0 {
		return nil
	}
	out := make([]string, 0, len(p))
	for field := range p {
		out = append(out, field)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether two field maps hold identical values.
func Equal(a, b Data) bool {
	if len(a) != len(b) {
		return false
	}
	for field, value := range a {
		other, ok := b[field]
		if !ok || !reflect.DeepEqual(value, other) {
			return false
		}
	}
	return true
}

// DiffFields returns the sorted set of fields whose values differ
// between a and b, including fields present on only one side.
func DiffFields(a, b Data) []string {
	var out []string
	for field, value := range a {
		other, ok := b[field]
		if !ok || !reflect.DeepEqual(value, other) {
			out = append(out, field)
		}
	}
	for field := range b {
		if _, ok := a[field]; !ok {
			out = append(out, field)
		}
	}
	sort.Strings(out)
	return out
}

// MergeFunc produces a resolved field map from a local and a remote view.
// touched lists the fields the local optimistic patch modified.
type MergeFunc func(local, remote Data, touched []string) Data

// MergeFields is the default field-level merge: fields touched by the
// optimistic patch keep the local value, every other field takes the
// remote value.
func MergeFields(local, remote Data, touched []string) Data {
	out := remote.Clone()
	if out == nil {
		out = make(Data, len(touched))
	}
	for _, field := range touched {
		if value, ok := local[field]; ok {
			out[field] = value
		}
	}
	return out
}
