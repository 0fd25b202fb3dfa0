// Package file provides a datastore keeping each record and sequence as a JSON
// file in a directory.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/aretw0/ivy/pkg/domain"
	"github.com/aretw0/ivy/pkg/ports"
)

const (
	recordsDir   = "records"
	sequencesDir = "sequences"
)

// Store implements ports.Datastore using the local filesystem. Every operation
// rewrites the whole file of its record or sequence.
type Store struct {
	BasePath string
	mu       sync.Mutex
}

var _ ports.Datastore = (*Store)(nil)

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".ivy/data".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".ivy", "data")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(dir, id string) string {
	return filepath.Join(s.BasePath, dir, url.PathEscape(id)+".json")
}

// read decodes the file into out. It reports false when the file does not exist.
func (s *Store) read(dir, id string, out any) (bool, error) {
	data, err := os.ReadFile(s.path(dir, id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", id, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", id, err)
	}
	return true, nil
}

// write persists v atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) write(dir, id string, v any) error {
	base := filepath.Join(s.BasePath, dir)
	if err := os.MkdirAll(base, 0755); err != nil {
		return fmt.Errorf("failed to ensure directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}

	// Same directory, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(base, "tmp-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Cannot rename an open file on Windows.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path(dir, id)); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (s *Store) remove(dir, id string) error {
	err := os.Remove(s.path(dir, id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	return nil
}

// LoadRecord returns every field of the record.
func (s *Store) LoadRecord(ctx context.Context, id string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields := make(map[string]any)
	ok, err := s.read(recordsDir, id, &fields)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	return fields, nil
}

func (s *Store) editRecord(id string, edit func(map[string]any)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields := make(map[string]any)
	if _, err := s.read(recordsDir, id, &fields); err != nil {
		return err
	}
	edit(fields)
	return s.write(recordsDir, id, fields)
}

// PutField stores a single field.
func (s *Store) PutField(ctx context.Context, id, key string, value any) error {
	return s.editRecord(id, func(fields map[string]any) { fields[key] = value })
}

// DeleteField removes a single field.
func (s *Store) DeleteField(ctx context.Context, id, key string) error {
	return s.editRecord(id, func(fields map[string]any) { delete(fields, key) })
}

// DeleteRecord removes the record file.
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(recordsDir, id)
}

// ListRecords returns the ids of all stored records, sorted.
func (s *Store) ListRecords(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.BasePath, recordsDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// LoadSequence returns the elements in order.
func (s *Store) LoadSequence(ctx context.Context, id string) ([]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elems := []any{}
	ok, err := s.read(sequencesDir, id, &elems)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	return elems, nil
}

func (s *Store) editSequence(id string, edit func([]any) ([]any, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	elems := []any{}
	if _, err := s.read(sequencesDir, id, &elems); err != nil {
		return err
	}
	next, err := edit(elems)
	if err != nil {
		return err
	}
	return s.write(sequencesDir, id, next)
}

// InsertAt inserts value at offset.
func (s *Store) InsertAt(ctx context.Context, id string, offset int, value any) error {
	return s.editSequence(id, func(elems []any) ([]any, error) {
		if offset < 0 || offset > len(elems) {
			return nil, outOfRange(id, offset, len(elems))
		}
		return slices.Insert(elems, offset, value), nil
	})
}

// SetAt replaces the element at offset.
func (s *Store) SetAt(ctx context.Context, id string, offset int, value any) error {
	return s.editSequence(id, func(elems []any) ([]any, error) {
		if offset < 0 || offset >= len(elems) {
			return nil, outOfRange(id, offset, len(elems))
		}
		elems[offset] = value
		return elems, nil
	})
}

// RemoveAt deletes the element at offset.
func (s *Store) RemoveAt(ctx context.Context, id string, offset int) error {
	return s.editSequence(id, func(elems []any) ([]any, error) {
		if offset < 0 || offset >= len(elems) {
			return nil, outOfRange(id, offset, len(elems))
		}
		return slices.Delete(elems, offset, offset+1), nil
	})
}

// DeleteSequence removes the sequence file.
func (s *Store) DeleteSequence(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(sequencesDir, id)
}

func outOfRange(id string, offset, n int) error {
	return fmt.Errorf("sequence %s: %w: %d (len %d)", id, domain.ErrOffsetOutOfRange, offset, n)
}
