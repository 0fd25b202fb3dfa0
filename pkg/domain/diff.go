package domain

import (
	"reflect"
	"sort"
)

// AttributeDelta holds changed, added or deleted attribute keys.
// For deletions, the key is present with a nil value.
// Render hosts merge these updates into their node's attributes.
type AttributeDelta map[string]any

// DiffAttributes calculates the difference between two attribute snapshots.
// If old is nil, every key of new is part of the delta (initial load).
// It returns nil when nothing changed.
func DiffAttributes(old, new map[string]any) AttributeDelta {
	delta := make(AttributeDelta)

	if old == nil {
		for k, v := range new {
			delta[k] = v
		}
		if len(delta) == 0 {
			return nil
		}
		return delta
	}

	// Added or modified
	for k, newVal := range new {
		oldVal, exists := old[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}

	// Deleted
	for k := range old {
		if _, exists := new[k]; !exists {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// Keys returns the delta keys in sorted order, so deltas can be applied deterministically.
func (d AttributeDelta) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsEmpty checks if the delta contains any change.
func (d AttributeDelta) IsEmpty() bool {
	return len(d) == 0
}
