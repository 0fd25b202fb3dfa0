package ivy_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aretw0/ivy"
	"github.com/aretw0/ivy/pkg/adapters/memory"
	"github.com/aretw0/ivy/pkg/adapters/recorder"
	"github.com/aretw0/ivy/pkg/domain"
	"github.com/aretw0/ivy/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type allowList map[string]string

func (a allowList) Authorize(_ context.Context, shard, caller string) error {
	if a[caller] == shard {
		return nil
	}
	return domain.ErrUnauthorized
}

type remoteOnly string

func (r remoteOnly) RunsLocally(shard string) bool { return shard != string(r) }

func TestEngine_MutateScopesWrites(t *testing.T) {
	eng, err := ivy.New()
	require.NoError(t, err)
	ctx := context.Background()

	users, err := eng.Record(ctx, "users", "ada")
	require.NoError(t, err)
	orders, err := eng.Record(ctx, "orders", "o1")
	require.NoError(t, err)

	err = eng.Mutate(ctx, "users", func(context.Context) error {
		require.NoError(t, users.Write("name", "ada"))
		return orders.Write("total", 10)
	})
	assert.ErrorIs(t, err, domain.ErrScopeViolation)
	assert.Equal(t, "ada", users.Read("name"), "applied writes stand")
	assert.Nil(t, orders.Read("total"))
}

func TestEngine_Authorizer(t *testing.T) {
	eng, err := ivy.New(ivy.WithAuthorizer(allowList{"alice": "users"}))
	require.NoError(t, err)
	ran := false
	fn := func(context.Context) error { ran = true; return nil }

	err = eng.Mutate(domain.WithCaller(context.Background(), "bob"), "users", fn)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.False(t, ran)

	require.NoError(t, eng.Mutate(domain.WithCaller(context.Background(), "alice"), "users", fn))
	assert.True(t, ran)
}

func TestEngine_RemoteShard(t *testing.T) {
	eng, err := ivy.New(ivy.WithRemoting(remoteOnly("far")))
	require.NoError(t, err)

	err = eng.Mutate(context.Background(), "far", func(context.Context) error {
		t.Fatal("must not run")
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrRemoteShard)
}

func TestEngine_StrictScope(t *testing.T) {
	eng, err := ivy.New(ivy.WithStrictScope())
	require.NoError(t, err)
	rec, err := eng.Record(context.Background(), "", "r")
	require.NoError(t, err)

	assert.ErrorIs(t, rec.Write("k", 1), domain.ErrScopeViolation)
	require.NoError(t, eng.Mutate(context.Background(), "", func(context.Context) error {
		return rec.Write("k", 1)
	}))
}

func TestEngine_ConcurrentMutations(t *testing.T) {
	eng, err := ivy.New()
	require.NoError(t, err)
	ctx := context.Background()
	counter, err := eng.Record(ctx, "c", "counter")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := eng.Mutate(ctx, "c", func(context.Context) error {
				n, _ := counter.Read("n").(int)
				return counter.Write("n", n+1)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var n any
	_ = eng.View(func() error { n = counter.Read("n"); return nil })
	assert.Equal(t, 20, n)
}

func TestEngine_DatastoreWithMiddleware(t *testing.T) {
	store := memory.NewStore()
	eng, err := ivy.New(
		ivy.WithDatastore(store),
		ivy.WithStoreMiddleware(middleware.NewPIIMiddleware([]string{"password"})),
	)
	require.NoError(t, err)
	ctx := context.Background()

	rec, err := eng.Record(ctx, "users", "ada")
	require.NoError(t, err)
	require.NoError(t, eng.Mutate(ctx, "users", func(context.Context) error {
		return rec.Write("password", "hunter2")
	}))

	stored, err := store.LoadRecord(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, stored["password"])
	assert.Equal(t, "hunter2", rec.Read("password"))
	assert.NoError(t, eng.Close())
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := ivy.New(ivy.WithMaxDepth(-1))
	assert.Error(t, err)

	_, err = ivy.New(ivy.WithStoreMiddleware(middleware.NewPIIMiddleware(nil)))
	assert.Error(t, err)
}

func TestEngine_BindRendersIntoHost(t *testing.T) {
	host := recorder.New()
	eng, err := ivy.New(ivy.WithRenderHost(host))
	require.NoError(t, err)
	ctx := context.Background()

	attrs, err := eng.Record(ctx, "ui", "title")
	require.NoError(t, err)
	node, err := eng.Bind("h1", attrs, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, eng.Binder().Live())

	require.NoError(t, eng.Mutate(ctx, "ui", func(context.Context) error {
		return attrs.Write("text", "hello")
	}))
	assert.Equal(t, "- `<h1>` text=hello\n", recorder.Markdown(node.Handle()))

	var failing = errors.New("nope")
	err = eng.Mutate(ctx, "ui", func(context.Context) error { return failing })
	assert.ErrorIs(t, err, failing)
}
