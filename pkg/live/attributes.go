package live

import (
	"maps"
	"slices"

	"github.com/aretw0/ivy/pkg/watch"
)

// Attributes is the attribute source of a live node. *reactive.Record implements it:
// the node follows every later write. Static wraps a plain map.
type Attributes interface {
	WatchAll(fn func(key string, value any)) (watch.Disposer, error)
}

// Static is a fixed attribute set, applied once when the node is created.
type Static map[string]any

// WatchAll replays every key in sorted order. A static set never changes.
func (s Static) WatchAll(fn func(key string, value any)) (watch.Disposer, error) {
	for _, k := range slices.Sorted(maps.Keys(s)) {
		fn(k, s[k])
	}
	return watch.Nop, nil
}
