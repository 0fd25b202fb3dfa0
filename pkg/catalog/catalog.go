// Package catalog names the records and sequences of one host so that outer surfaces
// (the HTTP adapter, the CLI) can find them by id.
package catalog

import (
	"context"
	"fmt"
	"slices"

	"github.com/aretw0/ivy/pkg/domain"
	"github.com/aretw0/ivy/pkg/reactive"
	"github.com/puzpuzpuz/xsync/v3"
)

// Catalog is a concurrent index of named observables. Lookups are safe from any
// goroutine; the observables themselves must still be used under the host's scope.
type Catalog struct {
	host      *reactive.Host
	records   *xsync.MapOf[string, *reactive.Record]
	sequences *xsync.MapOf[string, *reactive.Sequence]
}

// New creates an empty catalog over host.
func New(host *reactive.Host) *Catalog {
	return &Catalog{
		host:      host,
		records:   xsync.NewMapOf[string, *reactive.Record](),
		sequences: xsync.NewMapOf[string, *reactive.Sequence](),
	}
}

// Host returns the host the observables belong to.
func (c *Catalog) Host() *reactive.Host {
	return c.host
}

// Record returns the record named id, opening it through the host's datastore on
// first use. An existing record declared under another shard is an error.
func (c *Catalog) Record(ctx context.Context, shard, id string) (*reactive.Record, error) {
	var openErr error
	rec, _ := c.records.Compute(id, func(old *reactive.Record, loaded bool) (*reactive.Record, bool) {
		if loaded {
			return old, false
		}
		r, err := c.host.OpenRecord(ctx, shard, id)
		if err != nil {
			openErr = err
			return nil, true
		}
		return r, false
	})
	if openErr != nil {
		return nil, openErr
	}
	if rec.Shard() != shard {
		return nil, fmt.Errorf("%w: record %s is declared under shard %q, not %q", domain.ErrScopeViolation, id, rec.Shard(), shard)
	}
	return rec, nil
}

// Sequence returns the sequence named id, opening it on first use.
func (c *Catalog) Sequence(ctx context.Context, shard, id string) (*reactive.Sequence, error) {
	var openErr error
	seq, _ := c.sequences.Compute(id, func(old *reactive.Sequence, loaded bool) (*reactive.Sequence, bool) {
		if loaded {
			return old, false
		}
		s, err := c.host.OpenSequence(ctx, shard, id)
		if err != nil {
			openErr = err
			return nil, true
		}
		return s, false
	})
	if openErr != nil {
		return nil, openErr
	}
	if seq.Shard() != shard {
		return nil, fmt.Errorf("%w: sequence %s is declared under shard %q, not %q", domain.ErrScopeViolation, id, seq.Shard(), shard)
	}
	return seq, nil
}

// LookupRecord returns an already opened record.
func (c *Catalog) LookupRecord(id string) (*reactive.Record, bool) {
	return c.records.Load(id)
}

// LookupSequence returns an already opened sequence.
func (c *Catalog) LookupSequence(id string) (*reactive.Sequence, bool) {
	return c.sequences.Load(id)
}

// Records returns the ids of the opened records, sorted.
func (c *Catalog) Records() []string {
	return keys(c.records)
}

// Sequences returns the ids of the opened sequences, sorted.
func (c *Catalog) Sequences() []string {
	return keys(c.sequences)
}

// DropRecord closes the record and forgets it. Stored data is left untouched.
func (c *Catalog) DropRecord(id string) {
	if rec, ok := c.records.LoadAndDelete(id); ok {
		rec.Close()
	}
}

// DropSequence closes the sequence and forgets it.
func (c *Catalog) DropSequence(id string) {
	if seq, ok := c.sequences.LoadAndDelete(id); ok {
		seq.Close()
	}
}

func keys[V any](m *xsync.MapOf[string, V]) []string {
	out := make([]string, 0, m.Size())
	m.Range(func(k string, _ V) bool {
		out = append(out, k)
		return true
	})
	slices.Sort(out)
	return out
}
