package derive

import (
	"fmt"

	"github.com/aretw0/ivy/pkg/domain"
	"github.com/aretw0/ivy/pkg/reactive"
	"github.com/aretw0/ivy/pkg/watch"
)

// KeyRef names one key of one record.
type KeyRef struct {
	Record *reactive.Record
	Key    string
}

// Ref is shorthand for KeyRef{rec, key}.
func Ref(rec *reactive.Record, key string) KeyRef {
	return KeyRef{Record: rec, Key: key}
}

// Value is a derived scalar: the memoized result of a pure function of its inputs.
// Watchers fire only when the result changes under reactive.Same.
type Value struct {
	compute  func() (any, error)
	current  any
	err      error
	ready    bool
	watchers watch.Registry[any]
	release  []watch.Disposer
	disposed bool
}

// Combine derives a value from record keys. fn receives the current value of every
// ref, in order, each time one of them changes.
func Combine(fn func(values []any) any, refs ...KeyRef) (*Value, error) {
	v := &Value{
		compute: func() (any, error) {
			args := make([]any, len(refs))
			for i, ref := range refs {
				args[i] = ref.Record.Read(ref.Key)
			}
			return fn(args), nil
		},
	}

	for _, ref := range refs {
		dispose, err := ref.Record.Watch(ref.Key, func(any) { v.recompute() })
		if err != nil {
			dispose()
			v.Dispose()
			return nil, fmt.Errorf("failed to watch %s.%s: %w", ref.Record.ID(), ref.Key, err)
		}
		v.release = append(v.release, dispose)
	}
	v.ready = true
	v.recompute()
	return v, nil
}

func (v *Value) recompute() {
	if !v.ready || v.disposed {
		return
	}
	next, err := v.compute()
	v.err = err
	if err != nil {
		return
	}
	if reactive.Same(v.current, next) {
		return
	}
	v.current = next
	v.watchers.Notify(next)
}

// Get returns the last computed value.
func (v *Value) Get() any { return v.current }

// Err returns the error of the last computation, if it failed. The previous value is
// kept when a computation fails.
func (v *Value) Err() error { return v.err }

// Watch calls fn with the current value now, and again every time it changes.
func (v *Value) Watch(fn func(any)) (watch.Disposer, error) {
	if v.disposed {
		return watch.Nop, fmt.Errorf("derived value: %w", domain.ErrDisposedTarget)
	}
	dispose := v.watchers.Add(fn)
	fn(v.current)
	return dispose, nil
}

// Dispose releases the input watches and every watcher of the value.
func (v *Value) Dispose() {
	if v.disposed {
		return
	}
	v.disposed = true
	watch.All(v.release...)()
	v.release = nil
	v.watchers.Close()
}

// Into mirrors v into rec[key]: the key is written now and on every change of v.
// The returned disposer stops mirroring; it does not dispose v.
func Into(v *Value, rec *reactive.Record, key string) (watch.Disposer, error) {
	var writeErr error
	dispose, err := v.Watch(func(x any) {
		if err := rec.Write(key, x); err != nil {
			writeErr = err
		}
	})
	if err != nil {
		return dispose, err
	}
	if writeErr != nil {
		dispose()
		return watch.Nop, fmt.Errorf("failed to mirror into %s.%s: %w", rec.ID(), key, writeErr)
	}
	return dispose, nil
}
