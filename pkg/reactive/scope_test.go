package reactive_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/ivy/pkg/domain"
	"github.com/aretw0/ivy/pkg/reactive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type remoteShards map[string]bool

func (r remoteShards) RunsLocally(shard string) bool { return !r[shard] }

func TestRun_WritesWithinShard(t *testing.T) {
	h := reactive.NewHost()
	rec := h.NewRecord("shardA", "a")
	seq := h.NewSequence("shardA", "list")
	local := h.NewRecord(reactive.Unsharded, "ui")

	err := h.Run(context.Background(), "shardA", func(ctx context.Context) error {
		shard, active := h.ActiveShard()
		assert.True(t, active)
		assert.Equal(t, "shardA", shard)

		if err := rec.Write("k", 1); err != nil {
			return err
		}
		if err := local.Write("selected", true); err != nil {
			return err
		}
		return seq.Append("x")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Read("k"))
	assert.Equal(t, 1, seq.Len())

	_, active := h.ActiveShard()
	assert.False(t, active)
}

func TestRun_ScopeViolationKeepsPartialEffects(t *testing.T) {
	h := reactive.NewHost()
	mine := h.NewRecord("shardA", "mine")
	other := h.NewRecord("shardB", "other")

	var violations [][2]string
	h2 := reactive.NewHost(reactive.WithHooks(domain.Hooks{
		OnScopeViolation: func(_ context.Context, active, target string) {
			violations = append(violations, [2]string{active, target})
		},
	}))
	hooked := h2.NewRecord("shardB", "hooked")

	err := h.Run(context.Background(), "shardA", func(ctx context.Context) error {
		require.NoError(t, mine.Write("step", 1))
		return other.Write("k", "v")
	})
	assert.ErrorIs(t, err, domain.ErrScopeViolation)
	assert.Equal(t, 1, mine.Read("step"), "already-applied writes stand")
	_, written := other.Lookup("k")
	assert.False(t, written)

	err = h2.Run(context.Background(), "shardA", func(ctx context.Context) error {
		return hooked.Write("k", 1)
	})
	assert.ErrorIs(t, err, domain.ErrScopeViolation)
	assert.Equal(t, [][2]string{{"shardA", "shardB"}}, violations)
}

func TestRun_ReportsSwallowedViolation(t *testing.T) {
	h := reactive.NewHost()
	other := h.NewRecord("shardB", "other")

	err := h.Run(context.Background(), "shardA", func(ctx context.Context) error {
		_ = other.Write("k", "v")
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrScopeViolation)
}

func TestRun_Nesting(t *testing.T) {
	h := reactive.NewHost()
	rec := h.NewRecord("shardA", "a")
	ctx := context.Background()

	err := h.Run(ctx, "shardA", func(ctx context.Context) error {
		return h.Run(ctx, "shardA", func(ctx context.Context) error {
			return rec.Write("nested", true)
		})
	})
	require.NoError(t, err)
	assert.Equal(t, true, rec.Read("nested"))

	ran := false
	var inner error
	err = h.Run(ctx, "shardA", func(ctx context.Context) error {
		inner = h.Run(ctx, "shardB", func(ctx context.Context) error {
			ran = true
			return nil
		})
		return nil
	})
	assert.False(t, ran, "inner scope with a different shard must not run")
	assert.ErrorIs(t, inner, domain.ErrScopeViolation)
	assert.ErrorIs(t, err, domain.ErrScopeViolation)
}

func TestRun_PropagatesFnError(t *testing.T) {
	h := reactive.NewHost()
	boom := errors.New("boom")
	err := h.Run(context.Background(), "s", func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestRun_RemoteShard(t *testing.T) {
	h := reactive.NewHost(reactive.WithRemoting(remoteShards{"far": true}))
	ran := false
	err := h.Run(context.Background(), "far", func(ctx context.Context) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrRemoteShard)
	assert.False(t, ran)
}

func TestStrictScope(t *testing.T) {
	h := reactive.NewHost(reactive.WithStrictScope())
	rec := h.NewRecord("shardA", "a")

	assert.ErrorIs(t, rec.Write("k", 1), domain.ErrScopeViolation)

	err := h.Run(context.Background(), "shardA", func(ctx context.Context) error {
		return rec.Write("k", 1)
	})
	require.NoError(t, err)
}

func TestUnscopedWritesAllowedByDefault(t *testing.T) {
	h := reactive.NewHost()
	rec := h.NewRecord("shardA", "a")
	assert.NoError(t, rec.Write("k", 1))
}
