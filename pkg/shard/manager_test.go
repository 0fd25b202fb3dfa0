package shard_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/ivy/pkg/adapters/redis"
	"github.com/aretw0/ivy/pkg/ports"
	"github.com/aretw0/ivy/pkg/shard"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SerializesOneShard(t *testing.T) {
	m := shard.NewManager()
	ctx := context.Background()

	var inside, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.WithLock(ctx, "orders", func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak, "one shard must never run two mutations at once")
	assert.Zero(t, m.Active())
}

func TestManager_ShardsRunIndependently(t *testing.T) {
	m := shard.NewManager()
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- m.WithLock(ctx, "a", func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	ran := false
	require.NoError(t, m.WithLock(ctx, "b", func(context.Context) error {
		ran = true
		return nil
	}))
	assert.True(t, ran, "shard b must not wait on shard a")
	assert.Equal(t, 1, m.Active())

	close(release)
	require.NoError(t, <-done)
}

func TestManager_ReturnsFnError(t *testing.T) {
	m := shard.NewManager()
	boom := errors.New("boom")

	err := m.WithLock(context.Background(), "a", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, m.Active())
}

type failingLocker struct{ err error }

func (f failingLocker) Lock(context.Context, string, time.Duration) (ports.UnlockFunc, error) {
	return nil, f.err
}

func TestManager_LockerFailureSkipsFn(t *testing.T) {
	down := errors.New("redis down")
	m := shard.NewManager(shard.WithLocker(failingLocker{err: down}))

	ran := false
	err := m.WithLock(context.Background(), "a", func(context.Context) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, down)
	assert.False(t, ran)
	assert.Zero(t, m.Active())
}

func TestManager_DistributedLock(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	m := shard.NewManager(
		shard.WithLocker(redis.NewLocker(client, "ivy:")),
		shard.WithLockTTL(5*time.Second),
	)
	ctx := context.Background()

	require.NoError(t, m.WithLock(ctx, "orders", func(context.Context) error {
		assert.True(t, mr.Exists("ivy:lock:orders"), "lock key must be held during the mutation")
		assert.InDelta(t, 5*time.Second, mr.TTL("ivy:lock:orders"), float64(time.Second))
		return nil
	}))
	assert.False(t, mr.Exists("ivy:lock:orders"), "lock key must be released afterwards")

	// A second replica holding the shard blocks this one until its context expires.
	other := redis.NewLocker(client, "ivy:")
	unlock, err := other.Lock(ctx, "orders", 5*time.Second)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	err = m.WithLock(short, "orders", func(context.Context) error {
		t.Fatal("must not run while another replica holds the shard")
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NoError(t, unlock(ctx))
}
