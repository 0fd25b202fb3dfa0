package reactive

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/ivy/internal/logging"
	"github.com/aretw0/ivy/pkg/domain"
	"github.com/aretw0/ivy/pkg/ports"
	"github.com/aretw0/ivy/pkg/watch"
)

// Host is the context shared by every observable created from it: the active mutation
// scope, the notification depth guard, the optional datastore and the observability hooks.
//
// A Host is not safe for concurrent use. Concurrent callers (e.g. an HTTP server) must
// serialize access, see shard.Manager and ivy.Engine.Mutate.
type Host struct {
	guard    *watch.Guard
	logger   *slog.Logger
	hooks    domain.Hooks
	store    ports.Datastore
	remoting ports.Remoting
	strict   bool
	maxDepth int
	scope    scopeState
	baseCtx  context.Context
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.Hooks) Option {
	return func(h *Host) {
		h.hooks = hooks
	}
}

// WithDatastore enables write-through persistence for records and sequences opened
// with OpenRecord and OpenSequence.
func WithDatastore(store ports.Datastore) Option {
	return func(h *Host) {
		h.store = store
	}
}

// WithRemoting sets the collaborator consulted by Run before executing mutation logic.
func WithRemoting(r ports.Remoting) Option {
	return func(h *Host) {
		h.remoting = r
	}
}

// WithMaxDepth sets the notification nesting limit (default watch.DefaultDepth).
func WithMaxDepth(depth int) Option {
	return func(h *Host) {
		h.maxDepth = depth
	}
}

// WithStrictScope rejects writes made outside of any Run call.
func WithStrictScope() Option {
	return func(h *Host) {
		h.strict = true
	}
}

// NewHost creates a Host.
func NewHost(opts ...Option) *Host {
	h := &Host{
		logger:   logging.NewNop(),
		remoting: ports.LocalRemoting{},
		baseCtx:  context.Background(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.guard = watch.NewGuard(h.maxDepth)
	h.guard.OnTrip = func(depth int) {
		h.logger.Error("notification recursion limit exceeded", "depth", depth)
		if h.hooks.OnRecursionLimit != nil {
			h.hooks.OnRecursionLimit(h.ctx(), depth)
		}
	}
	return h
}

// Logger returns the host logger.
func (h *Host) Logger() *slog.Logger {
	return h.logger
}

// Hooks returns the host hooks.
func (h *Host) Hooks() domain.Hooks {
	return h.hooks
}

// Datastore returns the configured datastore, or nil.
func (h *Host) Datastore() ports.Datastore {
	return h.store
}

// ctx returns the context of the active mutation scope, or the background context.
func (h *Host) ctx() context.Context {
	if h.scope.ctx != nil {
		return h.scope.ctx
	}
	return h.baseCtx
}

// dispatch runs notify as one level of a notification cascade for target.
func (h *Host) dispatch(target string, notify func() int) error {
	return h.guard.Dispatch(func() {
		n := notify()
		if h.hooks.OnNotify != nil && n > 0 {
			h.hooks.OnNotify(h.ctx(), target, n)
		}
	})
}

func (h *Host) wrote(ev *domain.WriteEvent) {
	if h.hooks.OnWrite != nil {
		h.hooks.OnWrite(h.ctx(), ev)
	}
}

// OpenRecord returns a record hydrated from the datastore whose writes are persisted
// back to it. Without a datastore it behaves like NewRecord.
func (h *Host) OpenRecord(ctx context.Context, shard, id string) (*Record, error) {
	r := h.NewRecord(shard, id)
	if h.store == nil {
		return r, nil
	}

	fields, err := h.store.LoadRecord(ctx, id)
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("failed to load record %s: %w", id, err)
	}
	for k, v := range fields {
		r.values[k] = v
	}
	r.persisted = true
	return r, nil
}

// OpenSequence returns a sequence hydrated from the datastore whose operations are
// persisted back to it. Without a datastore it behaves like NewSequence.
func (h *Host) OpenSequence(ctx context.Context, shard, id string) (*Sequence, error) {
	s := h.NewSequence(shard, id)
	if h.store == nil {
		return s, nil
	}

	elems, err := h.store.LoadSequence(ctx, id)
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("failed to load sequence %s: %w", id, err)
	}
	s.elems = elems
	s.persisted = true
	return s, nil
}
