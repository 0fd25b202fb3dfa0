package reactive

import (
	"errors"
	"fmt"
	"slices"

	"github.com/aretw0/ivy/pkg/domain"
	"github.com/aretw0/ivy/pkg/watch"
)

// SeqEvent is a positional sequence event, as a tagged variant.
// Value is unset for EventDeleted.
type SeqEvent struct {
	Kind   domain.EventKind
	Offset int
	Value  any
}

// ArrayWatcher receives positional sequence events. Every callback is optional;
// a nil callback ignores its events.
type ArrayWatcher struct {
	Changed  func(offset int, value any)
	Inserted func(offset int, value any)
	Deleted  func(offset int)
}

// OnEvent adapts a single tagged-variant callback into an ArrayWatcher.
func OnEvent(fn func(SeqEvent)) ArrayWatcher {
	return ArrayWatcher{
		Changed: func(offset int, value any) {
			fn(SeqEvent{Kind: domain.EventChanged, Offset: offset, Value: value})
		},
		Inserted: func(offset int, value any) {
			fn(SeqEvent{Kind: domain.EventInserted, Offset: offset, Value: value})
		},
		Deleted: func(offset int) {
			fn(SeqEvent{Kind: domain.EventDeleted, Offset: offset})
		},
	}
}

// Deliver routes ev to the matching callback.
func (w ArrayWatcher) Deliver(ev SeqEvent) {
	switch ev.Kind {
	case domain.EventChanged:
		if w.Changed != nil {
			w.Changed(ev.Offset, ev.Value)
		}
	case domain.EventInserted:
		if w.Inserted != nil {
			w.Inserted(ev.Offset, ev.Value)
		}
	case domain.EventDeleted:
		if w.Deleted != nil {
			w.Deleted(ev.Offset)
		}
	}
}

// Source is a readable, index-addressed sequence of values.
type Source interface {
	Len() int
	At(offset int) any
}

// Watchable is a source that reports positional changes.
type Watchable interface {
	WatchArray(w ArrayWatcher) (watch.Disposer, error)
}

// View is a read-only, watchable sequence. Sequences and derived views implement it.
type View interface {
	Source
	Watchable
}

// Sequence is an observable, ordered, zero-based collection.
//
// Insert and Remove shift later offsets and are reported as one positional event each,
// so the event stream replayed from an empty sequence reconstructs the current contents.
type Sequence struct {
	host      *Host
	id        string
	shard     string
	elems     []any
	watchers  watch.Registry[SeqEvent]
	persisted bool
	closed    bool
}

// NewSequence creates an empty in-memory sequence declared under shard.
func (h *Host) NewSequence(shard, id string) *Sequence {
	return &Sequence{
		host:  h,
		id:    id,
		shard: shard,
	}
}

// ID returns the sequence identifier.
func (s *Sequence) ID() string { return s.id }

// Shard returns the shard the sequence is declared under.
func (s *Sequence) Shard() string { return s.shard }

// Len returns the number of elements.
func (s *Sequence) Len() int { return len(s.elems) }

// At returns the element at offset. It panics if offset is out of range, like a slice index.
func (s *Sequence) At(offset int) any { return s.elems[offset] }

// Snapshot returns a copy of the elements.
func (s *Sequence) Snapshot() []any { return slices.Clone(s.elems) }

// WatchArray registers w and immediately replays one Inserted call per existing
// element, offsets 0..n-1 in order.
func (s *Sequence) WatchArray(w ArrayWatcher) (watch.Disposer, error) {
	if s.closed {
		return watch.Nop, s.disposedErr()
	}

	dispose := s.watchers.Add(w.Deliver)

	snapshot := slices.Clone(s.elems)
	err := s.host.dispatch(s.id, func() int {
		if w.Inserted != nil {
			for i, v := range snapshot {
				w.Inserted(i, v)
			}
		}
		return len(snapshot)
	})
	return dispose, err
}

// Set replaces the element at offset, firing Changed iff the value differs under Same.
func (s *Sequence) Set(offset int, value any) error {
	if err := s.checkWrite(); err != nil {
		return err
	}
	if offset < 0 || offset >= len(s.elems) {
		return s.rangeErr(offset)
	}
	if Same(s.elems[offset], value) {
		return nil
	}
	s.elems[offset] = value

	var persistErr error
	if s.shouldPersist(value) {
		persistErr = s.persistResult(s.host.store.SetAt(s.host.ctx(), s.id, offset, value))
	}
	return errors.Join(s.emit(SeqEvent{Kind: domain.EventChanged, Offset: offset, Value: value}), persistErr)
}

// Insert places value at offset (0 <= offset <= Len), shifting later elements up, and
// fires Inserted.
func (s *Sequence) Insert(offset int, value any) error {
	if err := s.checkWrite(); err != nil {
		return err
	}
	if offset < 0 || offset > len(s.elems) {
		return s.rangeErr(offset)
	}
	s.elems = slices.Insert(s.elems, offset, value)

	var persistErr error
	if s.shouldPersist(value) {
		persistErr = s.persistResult(s.host.store.InsertAt(s.host.ctx(), s.id, offset, value))
	}
	return errors.Join(s.emit(SeqEvent{Kind: domain.EventInserted, Offset: offset, Value: value}), persistErr)
}

// Append inserts value at the end.
func (s *Sequence) Append(value any) error {
	return s.Insert(len(s.elems), value)
}

// Remove deletes the element at offset, shifting later elements down, and fires Deleted.
func (s *Sequence) Remove(offset int) error {
	if err := s.checkWrite(); err != nil {
		return err
	}
	if offset < 0 || offset >= len(s.elems) {
		return s.rangeErr(offset)
	}
	removed := s.elems[offset]
	s.elems = slices.Delete(s.elems, offset, offset+1)

	var persistErr error
	if s.shouldPersist(removed) {
		persistErr = s.persistResult(s.host.store.RemoveAt(s.host.ctx(), s.id, offset))
	}
	return errors.Join(s.emit(SeqEvent{Kind: domain.EventDeleted, Offset: offset}), persistErr)
}

// IndexOf returns the first offset holding a value Same as v, or -1.
func (s *Sequence) IndexOf(v any) int {
	for i, e := range s.elems {
		if Same(e, v) {
			return i
		}
	}
	return -1
}

// Close tears the sequence down: every watch is released, and later operations and
// registrations fail with domain.ErrDisposedTarget.
func (s *Sequence) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.watchers.Close()
}

// Closed reports whether Close was called.
func (s *Sequence) Closed() bool { return s.closed }

func (s *Sequence) checkWrite() error {
	if s.closed {
		return s.disposedErr()
	}
	return s.host.checkWrite("sequence "+s.id, s.shard)
}

func (s *Sequence) emit(ev SeqEvent) error {
	s.host.wrote(&domain.WriteEvent{
		Shard:  s.shard,
		Target: s.id,
		Kind:   ev.Kind,
		Offset: ev.Offset,
		Value:  ev.Value,
	})
	return s.host.dispatch(s.id, func() int {
		return s.watchers.Notify(ev)
	})
}

// shouldPersist reports whether an operation touching value is mirrored to the
// datastore. Observable references cannot be stored, so the first one inserted into a
// persisted sequence turns write-through off for good rather than letting offsets drift.
func (s *Sequence) shouldPersist(value any) bool {
	if !s.persisted {
		return false
	}
	if !persistable(value) {
		s.persisted = false
		s.host.logger.Warn("sequence holds observable references, write-through disabled", "sequence", s.id)
		return false
	}
	return true
}

func (s *Sequence) persistResult(err error) error {
	if err == nil {
		return nil
	}
	s.host.logger.Warn("failed to persist sequence operation", "sequence", s.id, "err", err)
	return fmt.Errorf("failed to persist sequence %s: %w", s.id, err)
}

func (s *Sequence) rangeErr(offset int) error {
	return fmt.Errorf("sequence %s: %w: %d (len %d)", s.id, domain.ErrOffsetOutOfRange, offset, len(s.elems))
}

func (s *Sequence) disposedErr() error {
	return fmt.Errorf("sequence %s: %w", s.id, domain.ErrDisposedTarget)
}

// persistable reports whether value can be handed to a datastore.
// Observable references and code values live in memory only.
func persistable(value any) bool {
	switch value.(type) {
	case *Record, *Sequence, Source, Watchable, func():
		return false
	}
	return true
}
