package shard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/ivy/internal/logging"
	"github.com/aretw0/ivy/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica can hold a shard.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the number of callers waiting on or holding it.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes work per shard id.
type Manager struct {
	mu    sync.Mutex
	locks map[string]*lockEntry

	locker ports.DistributedLocker
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry passed to the distributed locker.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a shard manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		locks:  make(map[string]*lockEntry),
		ttl:    DefaultLockTTL,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates the entry for shardID and takes a reference on it.
// The caller must pair it with release.
func (m *Manager) acquire(shardID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[shardID]
	if !ok {
		entry = &lockEntry{}
		m.locks[shardID] = entry
	}
	entry.refs++
	return entry
}

// release drops a reference and forgets the entry once nobody uses it.
func (m *Manager) release(shardID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[shardID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, shardID)
	}
}

// Active reports how many shards currently have a holder or a waiter.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

// WithLock runs fn while holding the lock for shardID.
func (m *Manager) WithLock(ctx context.Context, shardID string, fn func(context.Context) error) error {
	entry := m.acquire(shardID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(shardID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, shardID, m.ttl)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock for shard %q: %w", shardID, err)
		}
		defer func() {
			// The mutation context may already be canceled; the unlock must still go out.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"shard", shardID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
