package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/ivy/pkg/domain"
)

// Store implements ports.Datastore in memory.
// Safe for concurrent use.
type Store struct {
	records map[string]map[string]any
	seqs    map[string][]any
	mu      sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]map[string]any),
		seqs:    make(map[string][]any),
	}
}

// LoadRecord returns a copy of the record fields so callers can't mutate the store directly.
func (s *Store) LoadRecord(ctx context.Context, id string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out, nil
}

// PutField stores a single field.
func (s *Store) PutField(ctx context.Context, id, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		rec = make(map[string]any)
		s.records[id] = rec
	}
	rec[key] = value
	return nil
}

// DeleteField removes a single field.
func (s *Store) DeleteField(ctx context.Context, id, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records[id], key)
	return nil
}

// DeleteRecord removes the record.
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// ListRecords returns the stored record ids.
func (s *Store) ListRecords(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// LoadSequence returns a copy of the sequence elements.
func (s *Store) LoadSequence(ctx context.Context, id string) ([]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seq, ok := s.seqs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return slices.Clone(seq), nil
}

// InsertAt inserts value at offset.
func (s *Store) InsertAt(ctx context.Context, id string, offset int, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seqs[id]
	if offset < 0 || offset > len(seq) {
		return outOfRange(id, offset, len(seq))
	}
	s.seqs[id] = slices.Insert(seq, offset, value)
	return nil
}

// SetAt replaces the element at offset.
func (s *Store) SetAt(ctx context.Context, id string, offset int, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seqs[id]
	if offset < 0 || offset >= len(seq) {
		return outOfRange(id, offset, len(seq))
	}
	seq[offset] = value
	return nil
}

// RemoveAt deletes the element at offset.
func (s *Store) RemoveAt(ctx context.Context, id string, offset int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seqs[id]
	if offset < 0 || offset >= len(seq) {
		return outOfRange(id, offset, len(seq))
	}
	s.seqs[id] = slices.Delete(seq, offset, offset+1)
	return nil
}

// DeleteSequence removes the sequence.
func (s *Store) DeleteSequence(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seqs, id)
	return nil
}

func outOfRange(id string, offset, n int) error {
	return fmt.Errorf("sequence %s: %w: %d (len %d)", id, domain.ErrOffsetOutOfRange, offset, n)
}
