package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/ivy/pkg/adapters/redis"
	"github.com/aretw0/ivy/pkg/domain"
	"github.com/aretw0/ivy/pkg/ports"
	"github.com/aretw0/ivy/pkg/reactive"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunDatastoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.PutField(ctx, "user", "name", "ada"))
	require.NoError(t, store.InsertAt(ctx, "todo", 0, "write tests"))

	assert.True(t, mr.Exists("custom:app:record:user"))
	assert.True(t, mr.Exists("custom:app:records"))
	assert.True(t, mr.Exists("custom:app:seq:todo"))

	ids, err := store.ListRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, ids)
}

func TestRedisStore_EmptiedSequenceStillExists(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	require.NoError(t, store.InsertAt(ctx, "s", 0, "only"))
	require.NoError(t, store.RemoveAt(ctx, "s", 0))

	elems, err := store.LoadSequence(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, elems)
}

func TestRedisStore_HostWriteThrough(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	h := reactive.NewHost(reactive.WithDatastore(store))
	rec, err := h.OpenRecord(ctx, "users", "ada")
	require.NoError(t, err)
	require.NoError(t, h.Run(ctx, "users", func(context.Context) error {
		return rec.Write("age", 36)
	}))

	// A second host sees the persisted value, decoded from JSON.
	other := reactive.NewHost(reactive.WithDatastore(store))
	again, err := other.OpenRecord(ctx, "users", "ada")
	require.NoError(t, err)
	assert.Equal(t, float64(36), again.Read("age"))

	_, err = store.LoadRecord(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
