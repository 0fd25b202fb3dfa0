package ports

import "context"

// RecordStore persists the fields of observable records.
type RecordStore interface {
	// LoadRecord returns every field of the record.
	// Returns domain.ErrNotFound if the record does not exist.
	LoadRecord(ctx context.Context, id string) (map[string]any, error)

	// PutField persists a single field, creating the record if needed.
	PutField(ctx context.Context, id, key string, value any) error

	// DeleteField removes a single field. Deleting a missing field is not an error.
	DeleteField(ctx context.Context, id, key string) error

	// DeleteRecord removes the record and all its fields.
	DeleteRecord(ctx context.Context, id string) error

	// ListRecords returns the ids of all stored records.
	ListRecords(ctx context.Context) ([]string, error)
}

// SequenceStore persists the elements of observable sequences.
type SequenceStore interface {
	// LoadSequence returns the elements in order.
	// Returns domain.ErrNotFound if the sequence does not exist.
	LoadSequence(ctx context.Context, id string) ([]any, error)

	// InsertAt inserts value at offset, shifting later elements up. 0 <= offset <= len.
	InsertAt(ctx context.Context, id string, offset int, value any) error

	// SetAt replaces the element at offset.
	SetAt(ctx context.Context, id string, offset int, value any) error

	// RemoveAt deletes the element at offset, shifting later elements down.
	RemoveAt(ctx context.Context, id string, offset int) error

	// DeleteSequence removes the whole sequence.
	DeleteSequence(ctx context.Context, id string) error
}

// Datastore is the full storage collaborator. The core does not care how data
// arrives or is stored, only that these operations keep the record and sequence semantics.
type Datastore interface {
	RecordStore
	SequenceStore
}
