package live

import (
	"fmt"
	"slices"

	"github.com/aretw0/ivy/pkg/domain"
	"github.com/aretw0/ivy/pkg/ports"
	"github.com/aretw0/ivy/pkg/reactive"
	"github.com/aretw0/ivy/pkg/watch"
)

// child is one slot of a node's children: a nested live node, or a leaf owned by
// the parent. Slots stay aligned with the offsets of the children source; only
// attached slots exist in the host, so host offsets count attached slots.
type child struct {
	node     *Node
	leaf     ports.HostNode
	attached bool
}

// Node is a render host node plus the watches it owns.
type Node struct {
	binder   *Binder
	id       string
	tag      string
	handle   ports.HostNode
	children []child
	release  []watch.Disposer
	disposed bool
}

// ID returns the binder-assigned id of the node, e.g. "li#3".
func (n *Node) ID() string { return n.id }

// Tag returns the element tag.
func (n *Node) Tag() string { return n.tag }

// Handle returns the render host handle.
func (n *Node) Handle() ports.HostNode { return n.handle }

// Len returns the number of child slots, one per element of the children source.
func (n *Node) Len() int { return len(n.children) }

// Disposed reports whether the node has been torn down.
func (n *Node) Disposed() bool { return n.disposed }

func (n *Node) setAttr(key string, value any) {
	if n.disposed {
		return
	}
	err := n.binder.host.Update(n.handle, domain.AttributeDelta{key: value})
	n.binder.report("update", n.id, err)
}

func (n *Node) bindChildren(src reactive.Source) error {
	w, ok := src.(reactive.Watchable)
	if !ok {
		for i := 0; i < src.Len(); i++ {
			n.inserted(i, src.At(i))
		}
		return nil
	}

	dispose, err := w.WatchArray(reactive.ArrayWatcher{
		Changed: func(offset int, v any) {
			n.deleted(offset)
			n.inserted(offset, v)
		},
		Inserted: n.inserted,
		Deleted:  n.deleted,
	})
	n.release = append(n.release, dispose)
	return err
}

func (n *Node) inserted(offset int, v any) {
	if n.disposed {
		return
	}
	c, err := n.materialize(v)
	if err != nil {
		n.binder.report("create", n.id, err)
	} else {
		err = n.binder.host.InsertChild(n.handle, n.hostOffset(offset), c.handle())
		n.binder.report("insert", n.id, err)
		c.attached = err == nil
	}
	n.children = slices.Insert(n.children, offset, c)
}

func (n *Node) deleted(offset int) {
	if n.disposed || offset < 0 || offset >= len(n.children) {
		return
	}
	c := n.children[offset]
	at := n.hostOffset(offset)
	n.children = slices.Delete(n.children, offset, offset+1)
	if c.attached {
		err := n.binder.host.RemoveChild(n.handle, at)
		n.binder.report("remove", n.id, err)
	}
	n.teardown(c)
}

// hostOffset maps a source offset to the host offset, skipping slots whose
// materialization or insertion failed.
func (n *Node) hostOffset(offset int) int {
	at := 0
	for _, c := range n.children[:min(offset, len(n.children))] {
		if c.attached {
			at++
		}
	}
	return at
}

func (n *Node) materialize(v any) (child, error) {
	if node, ok := v.(*Node); ok {
		if node.disposed {
			return child{}, fmt.Errorf("child %s: %w", node.id, domain.ErrDisposedTarget)
		}
		return child{node: node}, nil
	}
	leaf, err := n.binder.host.Create(ports.NodeDescription{Text: leafText(v)})
	if err != nil {
		return child{}, err
	}
	return child{leaf: leaf}, nil
}

func (c child) handle() ports.HostNode {
	if c.node != nil {
		return c.node.handle
	}
	return c.leaf
}

func (n *Node) teardown(c child) {
	switch {
	case c.node != nil:
		c.node.Dispose()
	case c.leaf != nil:
		err := n.binder.host.Destroy(c.leaf)
		n.binder.report("destroy", n.id, err)
	}
}

// Dispose releases every watch owned by the node, disposes nested live children,
// destroys owned leaves and finally the node's own handle. It is idempotent.
func (n *Node) Dispose() {
	if n.disposed {
		return
	}
	n.disposed = true
	watch.All(n.release...)()
	n.release = nil

	children := n.children
	n.children = nil
	for _, c := range children {
		n.teardown(c)
	}

	err := n.binder.host.Destroy(n.handle)
	n.binder.report("destroy", n.id, err)
	n.binder.live--
}

func leafText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}
