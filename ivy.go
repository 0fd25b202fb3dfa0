package ivy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/ivy/internal/logging"
	"github.com/aretw0/ivy/pkg/adapters/recorder"
	"github.com/aretw0/ivy/pkg/catalog"
	"github.com/aretw0/ivy/pkg/domain"
	"github.com/aretw0/ivy/pkg/live"
	"github.com/aretw0/ivy/pkg/persistence/middleware"
	"github.com/aretw0/ivy/pkg/ports"
	"github.com/aretw0/ivy/pkg/reactive"
	"github.com/aretw0/ivy/pkg/shard"
)

// Version is the release of the engine. Overridden at build time with -ldflags.
var Version = "0.1.0-dev"

// Engine is the high-level entry point of the library. It owns one reactive host,
// the catalog of its named observables, and a live tree binder, and serializes every
// access to them so that the host can be shared by concurrent callers.
type Engine struct {
	host    *reactive.Host
	catalog *catalog.Catalog
	binder  *live.Binder
	shards  *shard.Manager
	mu      sync.Mutex

	store       ports.Datastore
	base        ports.Datastore
	middlewares []middleware.Middleware
	render      ports.RenderHost
	remoting    ports.Remoting
	authorizer  ports.Authorizer
	locker      ports.DistributedLocker
	hooks       domain.Hooks
	logger      *slog.Logger
	maxDepth    int
	strict      bool
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.Hooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithDatastore backs records and sequences opened through the engine with store.
func WithDatastore(store ports.Datastore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithStoreMiddleware wraps the datastore, the first middleware being the outermost.
func WithStoreMiddleware(mws ...middleware.Middleware) Option {
	return func(e *Engine) {
		e.middlewares = append(e.middlewares, mws...)
	}
}

// WithRenderHost sets the host live nodes are rendered into. Defaults to recorder.Null.
func WithRenderHost(host ports.RenderHost) Option {
	return func(e *Engine) {
		e.render = host
	}
}

// WithRemoting sets the collaborator deciding which shards run on this host.
func WithRemoting(r ports.Remoting) Option {
	return func(e *Engine) {
		e.remoting = r
	}
}

// WithAuthorizer gates every Mutate call.
func WithAuthorizer(a ports.Authorizer) Option {
	return func(e *Engine) {
		e.authorizer = a
	}
}

// WithLocker serializes each shard across replicas through a distributed lock.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithMaxDepth bounds nested notification cascades.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		e.maxDepth = depth
	}
}

// WithStrictScope rejects writes made outside of Mutate.
func WithStrictScope() Option {
	return func(e *Engine) {
		e.strict = true
	}
}

// New initializes an Engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}

	if e.maxDepth < 0 {
		return nil, fmt.Errorf("max depth must not be negative, got %d", e.maxDepth)
	}
	if len(e.middlewares) > 0 && e.store == nil {
		return nil, errors.New("store middleware requires a datastore")
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.render == nil {
		e.render = recorder.Null()
	}
	if e.remoting == nil {
		e.remoting = ports.LocalRemoting{}
	}

	hostOpts := []reactive.Option{
		reactive.WithLogger(e.logger),
		reactive.WithHooks(e.hooks),
		reactive.WithRemoting(e.remoting),
	}
	if e.store != nil {
		e.base = e.store
		e.store = middleware.Chain(e.store, e.middlewares...)
		hostOpts = append(hostOpts, reactive.WithDatastore(e.store))
	}
	if e.maxDepth > 0 {
		hostOpts = append(hostOpts, reactive.WithMaxDepth(e.maxDepth))
	}
	if e.strict {
		hostOpts = append(hostOpts, reactive.WithStrictScope())
	}

	e.host = reactive.NewHost(hostOpts...)
	e.catalog = catalog.New(e.host)
	e.binder = live.NewBinder(e.render, live.WithLogger(e.logger), live.WithHooks(e.hooks))

	shardOpts := []shard.Option{shard.WithLogger(e.logger)}
	if e.locker != nil {
		shardOpts = append(shardOpts, shard.WithLocker(e.locker))
	}
	e.shards = shard.NewManager(shardOpts...)

	return e, nil
}

// Host returns the reactive host. Direct use must happen inside Mutate or View.
func (e *Engine) Host() *reactive.Host {
	return e.host
}

// Catalog returns the catalog of named records and sequences.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Binder returns the live tree binder.
func (e *Engine) Binder() *live.Binder {
	return e.binder
}

// Mutate runs fn as a mutation scope for shard.
//
// The caller taken from ctx (domain.WithCaller) is authorized first when an
// Authorizer is configured. Calls for one shard are serialized, across replicas too
// when a distributed locker is configured, and the whole cascade runs while holding
// the engine lock. fn must not call Mutate or View; nested scopes go through Host().Run.
func (e *Engine) Mutate(ctx context.Context, shardID string, fn func(ctx context.Context) error) error {
	if e.authorizer != nil {
		caller := domain.CallerFrom(ctx)
		if err := e.authorizer.Authorize(ctx, shardID, caller); err != nil {
			e.logger.Warn("mutation rejected", "shard", shardID, "caller", caller, "err", err)
			return err
		}
	}
	if !e.remoting.RunsLocally(shardID) {
		return fmt.Errorf("%w: %q", domain.ErrRemoteShard, shardID)
	}

	return e.shards.WithLock(ctx, shardID, func(ctx context.Context) error {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.host.Run(ctx, shardID, fn)
	})
}

// View runs fn while holding the engine lock, for reads and watch registration.
func (e *Engine) View(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn()
}

// Record opens the record id declared under shard.
func (e *Engine) Record(ctx context.Context, shardID, id string) (*reactive.Record, error) {
	return e.catalog.Record(ctx, shardID, id)
}

// Sequence opens the sequence id declared under shard.
func (e *Engine) Sequence(ctx context.Context, shardID, id string) (*reactive.Sequence, error) {
	return e.catalog.Sequence(ctx, shardID, id)
}

// Bind creates a live node rendered into the engine's render host.
func (e *Engine) Bind(tag string, attrs live.Attributes, children reactive.Source) (*live.Node, error) {
	var node *live.Node
	err := e.View(func() error {
		var err error
		node, err = e.binder.CreateLiveNode(tag, attrs, children)
		return err
	})
	return node, err
}

// Close releases the datastore when it holds resources.
func (e *Engine) Close() error {
	if c, ok := e.base.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
