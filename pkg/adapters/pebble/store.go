// Package pebble provides an embedded ports.Datastore on top of a Pebble LSM.
package pebble

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/ivy/pkg/domain"
	backend "github.com/cockroachdb/pebble"
)

const (
	recordPrefix = "r/"
	seqPrefix    = "s/"
	recordIndex  = "idx/records"
)

// Store implements ports.Datastore in a local Pebble database.
//
// Each record is one JSON object and each sequence one JSON array, rewritten on
// every operation; the record index is a JSON array of ids. Multi-key updates are
// committed in a single batch. Operations are serialized by a mutex, so the store
// is safe for concurrent use within one process.
type Store struct {
	db    *backend.DB
	write *backend.WriteOptions
	mu    sync.Mutex
}

type Option func(*Store)

// WithSync makes every commit wait for the WAL to reach stable storage.
func WithSync(sync bool) Option {
	return func(s *Store) {
		s.write = &backend.WriteOptions{Sync: sync}
	}
}

// Open opens or creates a store in dir.
func Open(dir string, opts ...Option) (*Store, error) {
	db, err := backend.Open(dir, &backend.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", dir, err)
	}
	s := &Store{db: db, write: backend.Sync}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// get decodes the JSON value at key into out. It reports false when the key is absent.
func (s *Store) get(key string, out any) (bool, error) {
	val, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, backend.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer func() { _ = closer.Close() }()
	if err := json.Unmarshal(val, out); err != nil {
		return false, fmt.Errorf("corrupt value at %s: %w", key, err)
	}
	return true, nil
}

func set(b *backend.Batch, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return b.Set([]byte(key), data, nil)
}

func (s *Store) index() ([]string, error) {
	var ids []string
	_, err := s.get(recordIndex, &ids)
	return ids, err
}

// LoadRecord returns every field of the record.
func (s *Store) LoadRecord(ctx context.Context, id string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields := make(map[string]any)
	ok, err := s.get(recordPrefix+id, &fields)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	return fields, nil
}

// PutField persists a single field, indexing the record on first write.
func (s *Store) PutField(ctx context.Context, id, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields := make(map[string]any)
	exists, err := s.get(recordPrefix+id, &fields)
	if err != nil {
		return err
	}
	fields[key] = value

	b := s.db.NewBatch()
	defer func() { _ = b.Close() }()
	if err := set(b, recordPrefix+id, fields); err != nil {
		return err
	}
	if !exists {
		ids, err := s.index()
		if err != nil {
			return err
		}
		if i, found := slices.BinarySearch(ids, id); !found {
			if err := set(b, recordIndex, slices.Insert(ids, i, id)); err != nil {
				return err
			}
		}
	}
	return b.Commit(s.write)
}

// DeleteField removes a single field.
func (s *Store) DeleteField(ctx context.Context, id, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields := make(map[string]any)
	exists, err := s.get(recordPrefix+id, &fields)
	if err != nil || !exists {
		return err
	}
	if _, ok := fields[key]; !ok {
		return nil
	}
	delete(fields, key)

	b := s.db.NewBatch()
	defer func() { _ = b.Close() }()
	if err := set(b, recordPrefix+id, fields); err != nil {
		return err
	}
	return b.Commit(s.write)
}

// DeleteRecord removes the record and its index entry.
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.index()
	if err != nil {
		return err
	}

	b := s.db.NewBatch()
	defer func() { _ = b.Close() }()
	if err := b.Delete([]byte(recordPrefix+id), nil); err != nil {
		return err
	}
	if i, found := slices.BinarySearch(ids, id); found {
		if err := set(b, recordIndex, slices.Delete(ids, i, i+1)); err != nil {
			return err
		}
	}
	return b.Commit(s.write)
}

// ListRecords returns the stored record ids, sorted.
func (s *Store) ListRecords(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.index()
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// LoadSequence returns the elements in order.
func (s *Store) LoadSequence(ctx context.Context, id string) ([]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elems := []any{}
	ok, err := s.get(seqPrefix+id, &elems)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	return elems, nil
}

func (s *Store) rewrite(id string, edit func([]any) ([]any, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	elems := []any{}
	if _, err := s.get(seqPrefix+id, &elems); err != nil {
		return err
	}
	next, err := edit(elems)
	if err != nil {
		return err
	}

	b := s.db.NewBatch()
	defer func() { _ = b.Close() }()
	if err := set(b, seqPrefix+id, next); err != nil {
		return err
	}
	return b.Commit(s.write)
}

// InsertAt inserts value at offset.
func (s *Store) InsertAt(ctx context.Context, id string, offset int, value any) error {
	return s.rewrite(id, func(elems []any) ([]any, error) {
		if offset < 0 || offset > len(elems) {
			return nil, outOfRange(id, offset, len(elems))
		}
		return slices.Insert(elems, offset, value), nil
	})
}

// SetAt replaces the element at offset.
func (s *Store) SetAt(ctx context.Context, id string, offset int, value any) error {
	return s.rewrite(id, func(elems []any) ([]any, error) {
		if offset < 0 || offset >= len(elems) {
			return nil, outOfRange(id, offset, len(elems))
		}
		elems[offset] = value
		return elems, nil
	})
}

// RemoveAt deletes the element at offset.
func (s *Store) RemoveAt(ctx context.Context, id string, offset int) error {
	return s.rewrite(id, func(elems []any) ([]any, error) {
		if offset < 0 || offset >= len(elems) {
			return nil, outOfRange(id, offset, len(elems))
		}
		return slices.Delete(elems, offset, offset+1), nil
	})
}

// DeleteSequence removes the sequence.
func (s *Store) DeleteSequence(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Delete([]byte(seqPrefix+id), s.write)
}

func outOfRange(id string, offset, n int) error {
	return fmt.Errorf("sequence %s: %w: %d (len %d)", id, domain.ErrOffsetOutOfRange, offset, n)
}
