package derive

import (
	"fmt"
	"slices"

	"github.com/aretw0/ivy/pkg/domain"
	"github.com/aretw0/ivy/pkg/reactive"
	"github.com/aretw0/ivy/pkg/watch"
)

// Concatenation is the watchable, ordered concatenation of several sources.
type Concatenation struct {
	lens     []int
	items    []any
	watchers watch.Registry[reactive.SeqEvent]
	release  []watch.Disposer
	disposed bool
}

// Concat builds the concatenation of sources.
//
// A source that also implements reactive.Watchable is followed live. Any other source
// is copied once, at composition time, and never re-read. An event at local offset i
// of source k is re-emitted at i plus the current lengths of sources 0..k-1, so an
// insert or delete in one source shifts the global offsets of later sources without
// re-announcing their elements.
func Concat(sources ...reactive.Source) (*Concatenation, error) {
	c := &Concatenation{
		lens: make([]int, len(sources)),
	}

	for k, src := range sources {
		w, ok := src.(reactive.Watchable)
		if !ok {
			n := src.Len()
			for i := 0; i < n; i++ {
				c.items = append(c.items, src.At(i))
			}
			c.lens[k] = n
			continue
		}

		k := k
		dispose, err := w.WatchArray(reactive.ArrayWatcher{
			Changed:  func(offset int, v any) { c.changed(k, offset, v) },
			Inserted: func(offset int, v any) { c.inserted(k, offset, v) },
			Deleted:  func(offset int) { c.deleted(k, offset) },
		})
		if err != nil {
			dispose()
			c.Dispose()
			return nil, fmt.Errorf("failed to watch source %d: %w", k, err)
		}
		c.release = append(c.release, dispose)
	}

	return c, nil
}

func (c *Concatenation) base(k int) int {
	n := 0
	for _, l := range c.lens[:k] {
		n += l
	}
	return n
}

func (c *Concatenation) changed(k, offset int, v any) {
	g := c.base(k) + offset
	c.items[g] = v
	c.watchers.Notify(reactive.SeqEvent{Kind: domain.EventChanged, Offset: g, Value: v})
}

func (c *Concatenation) inserted(k, offset int, v any) {
	g := c.base(k) + offset
	c.items = slices.Insert(c.items, g, v)
	c.lens[k]++
	c.watchers.Notify(reactive.SeqEvent{Kind: domain.EventInserted, Offset: g, Value: v})
}

func (c *Concatenation) deleted(k, offset int) {
	g := c.base(k) + offset
	c.items = slices.Delete(c.items, g, g+1)
	c.lens[k]--
	c.watchers.Notify(reactive.SeqEvent{Kind: domain.EventDeleted, Offset: g})
}

// Len returns the total number of elements.
func (c *Concatenation) Len() int { return len(c.items) }

// At returns the element at global offset.
func (c *Concatenation) At(offset int) any { return c.items[offset] }

// Snapshot returns a copy of the concatenated contents.
func (c *Concatenation) Snapshot() []any { return slices.Clone(c.items) }

// WatchArray registers w and replays one Inserted call per element.
func (c *Concatenation) WatchArray(w reactive.ArrayWatcher) (watch.Disposer, error) {
	if c.disposed {
		return watch.Nop, fmt.Errorf("concatenation: %w", domain.ErrDisposedTarget)
	}
	dispose := c.watchers.Add(w.Deliver)
	if w.Inserted != nil {
		for i, v := range slices.Clone(c.items) {
			w.Inserted(i, v)
		}
	}
	return dispose, nil
}

// Dispose releases the source watches and every watcher of the view.
func (c *Concatenation) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	watch.All(c.release...)()
	c.release = nil
	c.watchers.Close()
}
