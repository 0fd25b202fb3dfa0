// Package redis provides a Redis-backed ports.Datastore and ports.DistributedLocker.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/aretw0/ivy/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// maxTxRetries bounds optimistic retries of positional sequence updates.
const maxTxRetries = 16

// Store implements ports.Datastore using Redis.
//
// A record is a hash of JSON-encoded fields; a sequence is a list of JSON-encoded
// elements. Two sets index the ids that exist, so an emptied record or sequence is
// still found. Positional inserts run as WATCH/MULTI transactions.
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "ivy:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) recordKey(id string) string { return s.prefix + "record:" + id }
func (s *Store) recordIndex() string        { return s.prefix + "records" }
func (s *Store) seqKey(id string) string    { return s.prefix + "seq:" + id }
func (s *Store) seqIndex() string           { return s.prefix + "seqs" }

// LoadRecord returns every field of the record.
func (s *Store) LoadRecord(ctx context.Context, id string) (map[string]any, error) {
	exists, err := s.client.SIsMember(ctx, s.recordIndex(), id).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check record %s: %w", id, err)
	}
	if !exists {
		return nil, domain.ErrNotFound
	}

	raw, err := s.client.HGetAll(ctx, s.recordKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", id, err)
	}
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		val, err := decode(v)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s.%s: %w", id, k, err)
		}
		fields[k] = val
	}
	return fields, nil
}

// PutField persists a single field.
func (s *Store) PutField(ctx context.Context, id, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s.%s: %w", id, key, err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.HSet(ctx, s.recordKey(id), key, data)
		pipe.SAdd(ctx, s.recordIndex(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// DeleteField removes a single field.
func (s *Store) DeleteField(ctx context.Context, id, key string) error {
	return s.client.HDel(ctx, s.recordKey(id), key).Err()
}

// DeleteRecord removes the record and its index entry.
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Del(ctx, s.recordKey(id))
		pipe.SRem(ctx, s.recordIndex(), id)
		return nil
	})
	return err
}

// ListRecords returns the stored record ids, sorted.
func (s *Store) ListRecords(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.recordIndex()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}

// LoadSequence returns the elements in order.
func (s *Store) LoadSequence(ctx context.Context, id string) ([]any, error) {
	exists, err := s.client.SIsMember(ctx, s.seqIndex(), id).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check sequence %s: %w", id, err)
	}
	if !exists {
		return nil, domain.ErrNotFound
	}

	raw, err := s.client.LRange(ctx, s.seqKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load sequence %s: %w", id, err)
	}
	elems := make([]any, 0, len(raw))
	for i, v := range raw {
		val, err := decode(v)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s[%d]: %w", id, i, err)
		}
		elems = append(elems, val)
	}
	return elems, nil
}

// InsertAt inserts value at offset.
func (s *Store) InsertAt(ctx context.Context, id string, offset int, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s[%d]: %w", id, offset, err)
	}
	return s.rewrite(ctx, id, func(elems []string) ([]string, error) {
		if offset < 0 || offset > len(elems) {
			return nil, outOfRange(id, offset, len(elems))
		}
		return slices.Insert(elems, offset, string(data)), nil
	})
}

// SetAt replaces the element at offset.
func (s *Store) SetAt(ctx context.Context, id string, offset int, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s[%d]: %w", id, offset, err)
	}
	return s.rewrite(ctx, id, func(elems []string) ([]string, error) {
		if offset < 0 || offset >= len(elems) {
			return nil, outOfRange(id, offset, len(elems))
		}
		elems[offset] = string(data)
		return elems, nil
	})
}

// RemoveAt deletes the element at offset.
func (s *Store) RemoveAt(ctx context.Context, id string, offset int) error {
	return s.rewrite(ctx, id, func(elems []string) ([]string, error) {
		if offset < 0 || offset >= len(elems) {
			return nil, outOfRange(id, offset, len(elems))
		}
		return slices.Delete(elems, offset, offset+1), nil
	})
}

// DeleteSequence removes the sequence and its index entry.
func (s *Store) DeleteSequence(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Del(ctx, s.seqKey(id))
		pipe.SRem(ctx, s.seqIndex(), id)
		return nil
	})
	return err
}

// rewrite applies edit to the list under WATCH, retrying when another client
// modified it concurrently.
func (s *Store) rewrite(ctx context.Context, id string, edit func([]string) ([]string, error)) error {
	key := s.seqKey(id)
	txf := func(tx *backend.Tx) error {
		elems, err := tx.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return err
		}
		next, err := edit(elems)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Del(ctx, key)
			if len(next) > 0 {
				vals := make([]any, len(next))
				for i, v := range next {
					vals[i] = v
				}
				pipe.RPush(ctx, key, vals...)
			}
			pipe.SAdd(ctx, s.seqIndex(), id)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, backend.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("sequence %s: too much contention", id)
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func decode(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func outOfRange(id string, offset, n int) error {
	return fmt.Errorf("sequence %s: %w: %d (len %d)", id, domain.ErrOffsetOutOfRange, offset, n)
}
