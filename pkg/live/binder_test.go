package live_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/ivy/pkg/adapters/recorder"
	"github.com/aretw0/ivy/pkg/derive"
	"github.com/aretw0/ivy/pkg/domain"
	"github.com/aretw0/ivy/pkg/live"
	"github.com/aretw0/ivy/pkg/ports"
	"github.com/aretw0/ivy/pkg/reactive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ops(calls []recorder.Call) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Op
	}
	return out
}

func TestCreateLiveNode_InitialBuild(t *testing.T) {
	h := reactive.NewHost()
	attrs := h.NewRecord("", "attrs")
	require.NoError(t, attrs.Write("class", "todo"))
	require.NoError(t, attrs.Write("id", "main"))
	items := h.NewSequence("", "items")
	require.NoError(t, items.Append("a"))
	require.NoError(t, items.Append("b"))

	rec := recorder.New()
	b := live.NewBinder(rec)
	n, err := b.CreateLiveNode("ul", attrs, items)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"create",
		"update", "update",
		"create", "insert",
		"create", "insert",
	}, ops(rec.Calls()))
	assert.Equal(t, "- `<ul>` class=todo id=main\n  - a\n  - b\n", recorder.Markdown(n.Handle()))
	assert.Equal(t, 2, n.Len())
	assert.Equal(t, 1, b.Live())
}

func TestLiveNode_Patching(t *testing.T) {
	h := reactive.NewHost()
	attrs := h.NewRecord("", "attrs")
	items := h.NewSequence("", "items")
	require.NoError(t, items.Append("a"))

	rec := recorder.New()
	n, err := live.NewBinder(rec).CreateLiveNode("ul", attrs, items)
	require.NoError(t, err)
	rec.Reset()

	require.NoError(t, attrs.Write("class", "done"))
	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "update", calls[0].Op)
	assert.Equal(t, domain.AttributeDelta{"class": "done"}, calls[0].Delta)

	rec.Reset()
	require.NoError(t, items.Insert(0, "z"))
	assert.Equal(t, []string{"create", "insert"}, ops(rec.Calls()))

	rec.Reset()
	require.NoError(t, items.Set(1, "A"))
	assert.Equal(t, []string{"remove", "destroy", "create", "insert"}, ops(rec.Calls()))

	rec.Reset()
	require.NoError(t, items.Remove(0))
	assert.Equal(t, []string{"remove", "destroy"}, ops(rec.Calls()))

	assert.Equal(t, "- `<ul>` class=done\n  - A\n", recorder.Markdown(n.Handle()))
}

func TestLiveNode_NestedChildren(t *testing.T) {
	h := reactive.NewHost()
	rec := recorder.New()
	b := live.NewBinder(rec)

	first, err := b.CreateLiveNode("li", live.Static{"n": 1}, derive.Slice("one"))
	require.NoError(t, err)
	second, err := b.CreateLiveNode("li", live.Static{"n": 2}, derive.Slice("two"))
	require.NoError(t, err)

	rows := h.NewSequence("", "rows")
	require.NoError(t, rows.Append(first))
	require.NoError(t, rows.Append(second))

	list, err := b.CreateLiveNode("ul", nil, rows)
	require.NoError(t, err)
	assert.Equal(t, "- `<ul>`\n  - `<li>` n=1\n    - one\n  - `<li>` n=2\n    - two\n", recorder.Markdown(list.Handle()))
	assert.Equal(t, 3, b.Live())

	require.NoError(t, rows.Remove(0))
	assert.True(t, first.Disposed(), "removed live child is disposed")
	assert.False(t, second.Disposed())
	assert.Equal(t, 2, b.Live())

	b.Dispose(list)
	assert.True(t, second.Disposed())
	assert.Equal(t, 0, b.Live())
	assert.Equal(t, 0, rec.Alive())
}

func TestLiveNode_NoRenderCallsAfterDispose(t *testing.T) {
	h := reactive.NewHost()
	attrs := h.NewRecord("", "attrs")
	items := h.NewSequence("", "items")
	require.NoError(t, items.Append("a"))

	rec := recorder.New()
	n, err := live.NewBinder(rec).CreateLiveNode("ul", attrs, items)
	require.NoError(t, err)

	n.Dispose()
	n.Dispose()
	rec.Reset()

	require.NoError(t, attrs.Write("class", "x"))
	require.NoError(t, items.Append("b"))
	require.NoError(t, items.Set(0, "c"))
	require.NoError(t, items.Remove(0))
	assert.Empty(t, rec.Calls())
}

func TestLiveNode_DisposedDuringNotificationPass(t *testing.T) {
	h := reactive.NewHost()
	attrs := h.NewRecord("", "attrs")

	rec := recorder.New()
	var n *live.Node
	// Registered first, so it runs before the node's own watch in the same pass.
	_, err := attrs.WatchAll(func(key string, _ any) {
		if key == "close" && n != nil {
			n.Dispose()
		}
	})
	require.NoError(t, err)

	n, err = live.NewBinder(rec).CreateLiveNode("div", attrs, nil)
	require.NoError(t, err)
	rec.Reset()

	require.NoError(t, attrs.Write("close", true))
	assert.Equal(t, []string{"destroy"}, ops(rec.Calls()), "only the teardown reaches the host")
}

func TestLiveNode_ConcatenatedChildren(t *testing.T) {
	h := reactive.NewHost()
	head := h.NewSequence("", "head")
	tail := h.NewSequence("", "tail")
	require.NoError(t, head.Append("h"))
	require.NoError(t, tail.Append("t"))

	all, err := derive.Concat(head, derive.Slice("-"), tail)
	require.NoError(t, err)

	rec := recorder.New()
	n, err := live.NewBinder(rec).CreateLiveNode("p", nil, all)
	require.NoError(t, err)

	require.NoError(t, tail.Insert(0, "t0"))
	calls := rec.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, "insert", last.Op)
	assert.Equal(t, 2, last.Offset)
	assert.Equal(t, "- `<p>`\n  - h\n  - -\n  - t0\n  - t\n", recorder.Markdown(n.Handle()))
}

type failingHost struct {
	ports.RenderHost
}

func (failingHost) Update(ports.HostNode, domain.AttributeDelta) error {
	return errors.New("host gone")
}

func TestLiveNode_RenderErrorsAreReported(t *testing.T) {
	h := reactive.NewHost()
	attrs := h.NewRecord("", "attrs")

	var failed []*domain.RenderEvent
	var rendered int
	b := live.NewBinder(failingHost{recorder.New()}, live.WithHooks(domain.Hooks{
		OnRender:      func(context.Context, *domain.RenderEvent) { rendered++ },
		OnRenderError: func(_ context.Context, ev *domain.RenderEvent) { failed = append(failed, ev) },
	}))

	n, err := b.CreateLiveNode("div", attrs, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rendered)

	require.NoError(t, attrs.Write("k", "v"), "render failures do not abort the write")
	require.Len(t, failed, 1)
	assert.Equal(t, "update", failed[0].Op)
	assert.Equal(t, n.ID(), failed[0].NodeID)
	assert.EqualError(t, failed[0].Err, "host gone")
}

func TestCreateLiveNode_DisposedChildren(t *testing.T) {
	h := reactive.NewHost()
	items := h.NewSequence("", "items")
	items.Close()

	rec := recorder.New()
	b := live.NewBinder(rec)
	_, err := b.CreateLiveNode("ul", nil, items)
	assert.ErrorIs(t, err, domain.ErrDisposedTarget)
	assert.Equal(t, 0, b.Live())
	assert.Equal(t, 0, rec.Alive())
}

func TestLiveNode_FailedChildKeepsHostOffsetsAligned(t *testing.T) {
	h := reactive.NewHost()
	rec := recorder.New()
	b := live.NewBinder(rec)

	dead, err := b.CreateLiveNode("li", nil, nil)
	require.NoError(t, err)
	b.Dispose(dead)

	items := h.NewSequence("", "items")
	require.NoError(t, items.Append(dead))

	var failed []string
	b = live.NewBinder(rec, live.WithHooks(domain.Hooks{
		OnRenderError: func(_ context.Context, ev *domain.RenderEvent) { failed = append(failed, ev.Op) },
	}))
	list, err := b.CreateLiveNode("ul", nil, items)
	require.NoError(t, err)
	assert.Equal(t, []string{"create"}, failed)
	assert.Equal(t, 1, list.Len())

	require.NoError(t, items.Append("b"))
	require.NoError(t, items.Insert(1, "a"))
	assert.Equal(t, "- `<ul>`\n  - a\n  - b\n", recorder.Markdown(list.Handle()))

	rec.Reset()
	require.NoError(t, items.Remove(0))
	assert.Equal(t, []string{}, ops(rec.Calls()), "the failed slot was never in the host")
	assert.Equal(t, "- `<ul>`\n  - a\n  - b\n", recorder.Markdown(list.Handle()))

	require.NoError(t, items.Remove(1))
	assert.Equal(t, "- `<ul>`\n  - a\n", recorder.Markdown(list.Handle()))
	assert.Equal(t, []string{"create"}, failed, "no later patch is rejected")
}
