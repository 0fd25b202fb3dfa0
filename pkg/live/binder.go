package live

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aretw0/ivy/internal/logging"
	"github.com/aretw0/ivy/pkg/domain"
	"github.com/aretw0/ivy/pkg/ports"
	"github.com/aretw0/ivy/pkg/reactive"
)

// Binder creates live nodes against one render host.
// Like the rest of the engine it is not safe for concurrent use.
type Binder struct {
	host   ports.RenderHost
	logger *slog.Logger
	hooks  domain.Hooks
	seq    uint64
	live   int
}

// Option configures a Binder.
type Option func(*Binder)

// WithLogger sets the logger used to report render host failures.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Binder) {
		b.logger = logger
	}
}

// WithHooks registers render callbacks.
func WithHooks(hooks domain.Hooks) Option {
	return func(b *Binder) {
		b.hooks = hooks
	}
}

// NewBinder creates a Binder rendering into host.
func NewBinder(host ports.RenderHost, opts ...Option) *Binder {
	b := &Binder{
		host:   host,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Live returns the number of nodes created and not yet disposed.
func (b *Binder) Live() int {
	return b.live
}

// CreateLiveNode creates an element node bound to attrs and children.
//
// attrs may be nil, a Static set, or a *reactive.Record. children may be nil or any
// reactive.Source; it is followed if it is also reactive.Watchable. Child elements that
// are *Node are attached as they are; any other element becomes a text leaf owned by
// the new node. The initial attribute and child replays build the node before it is
// returned.
func (b *Binder) CreateLiveNode(tag string, attrs Attributes, children reactive.Source) (*Node, error) {
	b.seq++
	n := &Node{
		binder: b,
		id:     tag + "#" + strconv.FormatUint(b.seq, 10),
		tag:    tag,
	}

	handle, err := b.host.Create(ports.NodeDescription{Tag: tag})
	b.report("create", n.id, err)
	if err != nil {
		return nil, fmt.Errorf("failed to create node %s: %w", n.id, err)
	}
	n.handle = handle
	b.live++

	if attrs != nil {
		dispose, err := attrs.WatchAll(n.setAttr)
		n.release = append(n.release, dispose)
		if err != nil {
			n.Dispose()
			return nil, fmt.Errorf("failed to bind attributes of %s: %w", n.id, err)
		}
	}

	if children != nil {
		if err := n.bindChildren(children); err != nil {
			n.Dispose()
			return nil, fmt.Errorf("failed to bind children of %s: %w", n.id, err)
		}
	}

	return n, nil
}

// Dispose tears node down. It is equivalent to node.Dispose.
func (b *Binder) Dispose(node *Node) {
	if node != nil {
		node.Dispose()
	}
}

// report records the outcome of a render host call. Failures are logged and passed
// to OnRenderError; they never abort the notification that caused them.
func (b *Binder) report(op, nodeID string, err error) {
	ev := &domain.RenderEvent{Op: op, NodeID: nodeID, Err: err}
	ctx := context.Background()
	if err != nil {
		b.logger.Warn("Render host call failed", "op", op, "node", nodeID, "err", err)
		if b.hooks.OnRenderError != nil {
			b.hooks.OnRenderError(ctx, ev)
		}
		return
	}
	if b.hooks.OnRender != nil {
		b.hooks.OnRender(ctx, ev)
	}
}
