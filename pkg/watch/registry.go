package watch

import "slices"

// Disposer releases a watch. It is idempotent.
type Disposer func()

// Nop is a Disposer that does nothing.
func Nop() {}

// All combines disposers into one that releases each of them in order.
func All(ds ...Disposer) Disposer {
	return func() {
		for _, d := range ds {
			if d != nil {
				d()
			}
		}
	}
}

type entry[E any] struct {
	fn   func(E)
	live bool
}

// Registry holds the callbacks registered against a single target.
// The zero value is ready to use. A Registry is not safe for concurrent use.
type Registry[E any] struct {
	entries []*entry[E]
	closed  bool
}

// Add appends fn to the watch set and returns its disposer.
// Adding to a closed registry returns a no-op disposer and never fires fn.
func (r *Registry[E]) Add(fn func(E)) Disposer {
	if r.closed {
		return Nop
	}
	e := &entry[E]{fn: fn, live: true}
	r.entries = append(r.entries, e)
	return func() { r.remove(e) }
}

func (r *Registry[E]) remove(e *entry[E]) {
	if !e.live {
		return
	}
	e.live = false
	if i := slices.Index(r.entries, e); i >= 0 {
		r.entries = slices.Delete(r.entries, i, i+1)
	}
}

// Notify invokes every callback registered when the call starts, in registration order.
// It returns the number of callbacks invoked.
func (r *Registry[E]) Notify(ev E) int {
	if len(r.entries) == 0 {
		return 0
	}
	snapshot := slices.Clone(r.entries)
	for _, e := range snapshot {
		e.fn(ev)
	}
	return len(snapshot)
}

// Len returns the number of live watches.
func (r *Registry[E]) Len() int {
	return len(r.entries)
}

// Close drops every watch. Later Add calls are ignored.
func (r *Registry[E]) Close() {
	for _, e := range r.entries {
		e.live = false
	}
	r.entries = nil
	r.closed = true
}
