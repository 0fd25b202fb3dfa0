// Package recorder provides server-side render hosts: Recorder keeps the element tree
// and a log of every call, Null ignores everything.
package recorder

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/ivy/pkg/domain"
	"github.com/aretw0/ivy/pkg/ports"
	"github.com/oklog/ulid/v2"
)

// Element is a node of the recorded tree. Leaves have Text and no Tag.
type Element struct {
	ID       string         `json:"id"`
	Tag      string         `json:"tag,omitempty"`
	Text     string         `json:"text,omitempty"`
	Attrs    map[string]any `json:"attrs,omitempty"`
	Children []*Element     `json:"children,omitempty"`

	destroyed bool
}

// Call is one entry of the call log.
type Call struct {
	Op     string                `json:"op"`
	Node   string                `json:"node"`
	Child  string                `json:"child,omitempty"`
	Offset int                   `json:"offset,omitempty"`
	Delta  domain.AttributeDelta `json:"delta,omitempty"`
}

// Recorder is a ports.RenderHost that materializes the tree in memory.
// Calls against destroyed elements or invalid offsets fail, which makes it
// useful to check that a binder keeps its host consistent.
type Recorder struct {
	calls []Call
	nodes map[string]*Element
}

// New creates an empty Recorder.
func New() *Recorder {
	return &Recorder{nodes: make(map[string]*Element)}
}

var _ ports.RenderHost = (*Recorder)(nil)

func (r *Recorder) Create(desc ports.NodeDescription) (ports.HostNode, error) {
	el := &Element{ID: ulid.Make().String(), Tag: desc.Tag, Text: desc.Text}
	if !desc.IsLeaf() {
		el.Attrs = make(map[string]any)
	}
	r.nodes[el.ID] = el
	r.calls = append(r.calls, Call{Op: "create", Node: el.ID})
	return el, nil
}

func (r *Recorder) Update(node ports.HostNode, delta domain.AttributeDelta) error {
	el, err := r.element(node)
	if err != nil {
		return err
	}
	if el.Attrs == nil {
		return fmt.Errorf("recorder: update on leaf %s", el.ID)
	}
	for k, v := range delta {
		if v == nil {
			delete(el.Attrs, k)
			continue
		}
		el.Attrs[k] = v
	}
	r.calls = append(r.calls, Call{Op: "update", Node: el.ID, Delta: maps.Clone(delta)})
	return nil
}

func (r *Recorder) InsertChild(parent ports.HostNode, offset int, child ports.HostNode) error {
	p, err := r.element(parent)
	if err != nil {
		return err
	}
	c, err := r.element(child)
	if err != nil {
		return err
	}
	if offset < 0 || offset > len(p.Children) {
		return fmt.Errorf("recorder: insert at %d into %s: %w", offset, p.ID, domain.ErrOffsetOutOfRange)
	}
	p.Children = slices.Insert(p.Children, offset, c)
	r.calls = append(r.calls, Call{Op: "insert", Node: p.ID, Child: c.ID, Offset: offset})
	return nil
}

func (r *Recorder) RemoveChild(parent ports.HostNode, offset int) error {
	p, err := r.element(parent)
	if err != nil {
		return err
	}
	if offset < 0 || offset >= len(p.Children) {
		return fmt.Errorf("recorder: remove at %d from %s: %w", offset, p.ID, domain.ErrOffsetOutOfRange)
	}
	c := p.Children[offset]
	p.Children = slices.Delete(p.Children, offset, offset+1)
	r.calls = append(r.calls, Call{Op: "remove", Node: p.ID, Child: c.ID, Offset: offset})
	return nil
}

func (r *Recorder) Destroy(node ports.HostNode) error {
	el, err := r.element(node)
	if err != nil {
		return err
	}
	el.destroyed = true
	delete(r.nodes, el.ID)
	r.calls = append(r.calls, Call{Op: "destroy", Node: el.ID})
	return nil
}

func (r *Recorder) element(node ports.HostNode) (*Element, error) {
	el, ok := node.(*Element)
	if !ok || el == nil {
		return nil, fmt.Errorf("recorder: foreign node %T", node)
	}
	if el.destroyed {
		return nil, fmt.Errorf("recorder: element %s: %w", el.ID, domain.ErrDisposedTarget)
	}
	return el, nil
}

// Calls returns a copy of the call log.
func (r *Recorder) Calls() []Call {
	return slices.Clone(r.calls)
}

// Reset clears the call log. The tree is kept.
func (r *Recorder) Reset() {
	r.calls = nil
}

// Alive returns the number of created, not yet destroyed elements.
func (r *Recorder) Alive() int {
	return len(r.nodes)
}

// Markdown renders the subtree rooted at node as a nested markdown list.
func Markdown(node ports.HostNode) string {
	el, ok := node.(*Element)
	if !ok || el == nil {
		return ""
	}
	var sb strings.Builder
	writeMarkdown(&sb, el, 0)
	return sb.String()
}

func writeMarkdown(sb *strings.Builder, el *Element, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString("- ")
	if el.Tag == "" {
		sb.WriteString(el.Text)
	} else {
		fmt.Fprintf(sb, "`<%s>`", el.Tag)
		for _, k := range slices.Sorted(maps.Keys(el.Attrs)) {
			fmt.Fprintf(sb, " %s=%v", k, el.Attrs[k])
		}
	}
	sb.WriteString("\n")
	for _, c := range el.Children {
		writeMarkdown(sb, c, depth+1)
	}
}

// JSON encodes the subtree rooted at node.
func JSON(node ports.HostNode) ([]byte, error) {
	el, ok := node.(*Element)
	if !ok {
		return nil, fmt.Errorf("recorder: foreign node %T", node)
	}
	return json.MarshalIndent(el, "", "  ")
}
