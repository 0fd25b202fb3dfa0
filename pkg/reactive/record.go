package reactive

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/ivy/pkg/domain"
	"github.com/aretw0/ivy/pkg/watch"
	"github.com/mitchellh/mapstructure"
)

// Field is the payload delivered to whole-record watchers.
type Field struct {
	Key   string
	Value any
}

// Record is an observable key to value container.
//
// Records are shared by every holder of a reference and have no single owner.
// Application record "kinds" are built by composition: a Record plus domain methods.
type Record struct {
	host      *Host
	id        string
	shard     string
	values    map[string]any
	keys      map[string]*watch.Registry[any]
	all       watch.Registry[Field]
	persisted bool
	closed    bool
}

// NewRecord creates an empty in-memory record declared under shard.
func (h *Host) NewRecord(shard, id string) *Record {
	return &Record{
		host:   h,
		id:     id,
		shard:  shard,
		values: make(map[string]any),
		keys:   make(map[string]*watch.Registry[any]),
	}
}

// ID returns the record identifier.
func (r *Record) ID() string { return r.id }

// Shard returns the shard the record is declared under.
func (r *Record) Shard() string { return r.shard }

// Read returns the current value of key, or nil if it was never written.
func (r *Record) Read(key string) any {
	return r.values[key]
}

// Lookup returns the current value of key and whether it was ever written.
func (r *Record) Lookup(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the written keys in sorted order.
func (r *Record) Keys() []string {
	keys := make([]string, 0, len(r.values))
	for k := range r.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a shallow copy of the record contents.
func (r *Record) Snapshot() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Decode copies the record contents into out (a pointer to a struct or map) using
// mapstructure tags, with weak typing so that store-decoded numbers fit typed fields.
func (r *Record) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := dec.Decode(r.Snapshot()); err != nil {
		return fmt.Errorf("failed to decode record %s: %w", r.id, err)
	}
	return nil
}

// Watch calls fn with the value of key now, and again every time it changes.
func (r *Record) Watch(key string, fn func(value any)) (watch.Disposer, error) {
	if r.closed {
		return watch.Nop, r.disposedErr()
	}

	reg, ok := r.keys[key]
	if !ok {
		reg = &watch.Registry[any]{}
		r.keys[key] = reg
	}
	dispose := reg.Add(fn)

	err := r.host.dispatch(r.id, func() int {
		fn(r.values[key])
		return 1
	})
	return dispose, err
}

// WatchAll calls fn once per written key now (in sorted key order), and again for every
// subsequent write to any key.
func (r *Record) WatchAll(fn func(key string, value any)) (watch.Disposer, error) {
	if r.closed {
		return watch.Nop, r.disposedErr()
	}

	dispose := r.all.Add(func(f Field) { fn(f.Key, f.Value) })

	err := r.host.dispatch(r.id, func() int {
		keys := r.Keys()
		for _, k := range keys {
			fn(k, r.values[k])
		}
		return len(keys)
	})
	return dispose, err
}

// Write sets key to value.
//
// If value is unchanged under Same, no notification fires. Otherwise the value is
// stored, persisted when the record is backed by a datastore, and key watchers then
// whole-record watchers are notified synchronously, in that order.
// A persistence failure is returned after notification; the in-memory write stands.
func (r *Record) Write(key string, value any) error {
	if r.closed {
		return r.disposedErr()
	}
	if err := r.host.checkWrite("record "+r.id, r.shard); err != nil {
		return err
	}

	old, exists := r.values[key]
	if Same(old, value) && (exists || value == nil) {
		return nil
	}
	r.values[key] = value

	persistErr := r.persist(key, value)

	r.host.wrote(&domain.WriteEvent{
		Shard:  r.shard,
		Target: r.id,
		Kind:   domain.EventChanged,
		Key:    key,
		Value:  value,
	})

	err := r.host.dispatch(r.id, func() int {
		n := 0
		if reg, ok := r.keys[key]; ok {
			n += reg.Notify(value)
		}
		return n + r.all.Notify(Field{Key: key, Value: value})
	})
	return errors.Join(err, persistErr)
}

func (r *Record) persist(key string, value any) error {
	if !r.persisted {
		return nil
	}

	// An observable reference is never stored; drop whatever scalar it replaced.
	ctx := r.host.ctx()
	var err error
	if value == nil || !persistable(value) {
		err = r.host.store.DeleteField(ctx, r.id, key)
	} else {
		err = r.host.store.PutField(ctx, r.id, key, value)
	}
	if err != nil {
		r.host.logger.Warn("failed to persist record field", "record", r.id, "key", key, "err", err)
		return fmt.Errorf("failed to persist %s.%s: %w", r.id, key, err)
	}
	return nil
}

// Close tears the record down: every watch is released, and later writes and
// registrations fail with domain.ErrDisposedTarget.
func (r *Record) Close() {
	if r.closed {
		return
	}
	r.closed = true
	for _, reg := range r.keys {
		reg.Close()
	}
	r.all.Close()
}

// Closed reports whether Close was called.
func (r *Record) Closed() bool { return r.closed }

func (r *Record) disposedErr() error {
	return fmt.Errorf("record %s: %w", r.id, domain.ErrDisposedTarget)
}
