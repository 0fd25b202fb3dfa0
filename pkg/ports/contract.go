package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/ivy/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunDatastoreContract runs a suite of tests to verify that a Datastore implementation
// adheres to the defined interface contract.
// Values are limited to strings and booleans so that JSON-backed stores compare equal.
func RunDatastoreContract(t *testing.T, store Datastore) {
	ctx := context.Background()
	suffix := time.Now().Format("20060102150405.000000000")
	recordID := "contract-record-" + suffix
	seqID := "contract-seq-" + suffix

	t.Run("Put and Load Record", func(t *testing.T) {
		require.NoError(t, store.PutField(ctx, recordID, "title", "hello"))
		require.NoError(t, store.PutField(ctx, recordID, "done", false))
		require.NoError(t, store.PutField(ctx, recordID, "title", "world"))

		fields, err := store.LoadRecord(ctx, recordID)
		require.NoError(t, err, "LoadRecord should not return error")
		assert.Equal(t, "world", fields["title"])
		assert.Equal(t, false, fields["done"])
		assert.Len(t, fields, 2)
	})

	t.Run("Delete Field", func(t *testing.T) {
		require.NoError(t, store.DeleteField(ctx, recordID, "done"))
		require.NoError(t, store.DeleteField(ctx, recordID, "never-written"))

		fields, err := store.LoadRecord(ctx, recordID)
		require.NoError(t, err)
		assert.NotContains(t, fields, "done")
		assert.Equal(t, "world", fields["title"])
	})

	t.Run("List Records", func(t *testing.T) {
		other := recordID + "-2"
		require.NoError(t, store.PutField(ctx, other, "k", "v"))
		defer func() { _ = store.DeleteRecord(ctx, other) }()

		ids, err := store.ListRecords(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, recordID)
		assert.Contains(t, ids, other)
	})

	t.Run("Load Non-Existent Record", func(t *testing.T) {
		_, err := store.LoadRecord(ctx, "non-existent-"+recordID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Delete Record", func(t *testing.T) {
		require.NoError(t, store.DeleteRecord(ctx, recordID))
		_, err := store.LoadRecord(ctx, recordID)
		assert.ErrorIs(t, err, domain.ErrNotFound, "LoadRecord after DeleteRecord should return ErrNotFound")
	})

	t.Run("Sequence Positional Operations", func(t *testing.T) {
		require.NoError(t, store.InsertAt(ctx, seqID, 0, "a"))
		require.NoError(t, store.InsertAt(ctx, seqID, 1, "c"))
		require.NoError(t, store.InsertAt(ctx, seqID, 1, "b"))

		elems, err := store.LoadSequence(ctx, seqID)
		require.NoError(t, err)
		assert.Equal(t, []any{"a", "b", "c"}, elems)

		require.NoError(t, store.InsertAt(ctx, seqID, 1, "x"))
		require.NoError(t, store.RemoveAt(ctx, seqID, 0))
		require.NoError(t, store.SetAt(ctx, seqID, 2, "C"))

		elems, err = store.LoadSequence(ctx, seqID)
		require.NoError(t, err)
		assert.Equal(t, []any{"x", "b", "C"}, elems)
	})

	t.Run("Sequence Offsets Out Of Range", func(t *testing.T) {
		assert.ErrorIs(t, store.InsertAt(ctx, seqID, 10, "z"), domain.ErrOffsetOutOfRange)
		assert.ErrorIs(t, store.SetAt(ctx, seqID, -1, "z"), domain.ErrOffsetOutOfRange)
		assert.ErrorIs(t, store.RemoveAt(ctx, seqID, 3), domain.ErrOffsetOutOfRange)
	})

	t.Run("Delete Sequence", func(t *testing.T) {
		require.NoError(t, store.DeleteSequence(ctx, seqID))
		_, err := store.LoadSequence(ctx, seqID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
