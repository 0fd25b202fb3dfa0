package derive

import (
	"fmt"
	"slices"

	"github.com/aretw0/ivy/pkg/domain"
	"github.com/aretw0/ivy/pkg/reactive"
	"github.com/aretw0/ivy/pkg/watch"
)

// Mapped is an element-wise projection of a source.
type Mapped struct {
	fn       func(any) any
	items    []any
	watchers watch.Registry[reactive.SeqEvent]
	release  watch.Disposer
	disposed bool
}

// Map builds a view whose element i is fn(src.At(i)). fn must be pure: it is called
// once per inserted or changed source element and its results are memoized.
// A non-watchable source is projected once.
func Map(src reactive.Source, fn func(any) any) (*Mapped, error) {
	m := &Mapped{fn: fn, release: watch.Nop}

	w, ok := src.(reactive.Watchable)
	if !ok {
		for i := 0; i < src.Len(); i++ {
			m.items = append(m.items, fn(src.At(i)))
		}
		return m, nil
	}

	dispose, err := w.WatchArray(reactive.ArrayWatcher{
		Changed: func(offset int, v any) {
			p := m.fn(v)
			m.items[offset] = p
			m.watchers.Notify(reactive.SeqEvent{Kind: domain.EventChanged, Offset: offset, Value: p})
		},
		Inserted: func(offset int, v any) {
			p := m.fn(v)
			m.items = slices.Insert(m.items, offset, p)
			m.watchers.Notify(reactive.SeqEvent{Kind: domain.EventInserted, Offset: offset, Value: p})
		},
		Deleted: func(offset int) {
			m.items = slices.Delete(m.items, offset, offset+1)
			m.watchers.Notify(reactive.SeqEvent{Kind: domain.EventDeleted, Offset: offset})
		},
	})
	if err != nil {
		dispose()
		return nil, fmt.Errorf("failed to watch source: %w", err)
	}
	m.release = dispose
	return m, nil
}

// Len returns the number of elements.
func (m *Mapped) Len() int { return len(m.items) }

// At returns the projected element at offset.
func (m *Mapped) At(offset int) any { return m.items[offset] }

// Snapshot returns a copy of the projected contents.
func (m *Mapped) Snapshot() []any { return slices.Clone(m.items) }

// WatchArray registers w and replays one Inserted call per element.
func (m *Mapped) WatchArray(w reactive.ArrayWatcher) (watch.Disposer, error) {
	if m.disposed {
		return watch.Nop, fmt.Errorf("mapped view: %w", domain.ErrDisposedTarget)
	}
	dispose := m.watchers.Add(w.Deliver)
	if w.Inserted != nil {
		for i, v := range slices.Clone(m.items) {
			w.Inserted(i, v)
		}
	}
	return dispose, nil
}

// Dispose releases the source watch and every watcher of the view.
func (m *Mapped) Dispose() {
	if m.disposed {
		return
	}
	m.disposed = true
	m.release()
	m.watchers.Close()
}
