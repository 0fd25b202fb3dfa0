// Package terminal provides a render host that keeps the tree in a recorder and
// traces every host call as a colored line on a terminal.
package terminal

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/aretw0/ivy/pkg/adapters/recorder"
	"github.com/aretw0/ivy/pkg/domain"
	"github.com/aretw0/ivy/pkg/ports"
	"github.com/muesli/termenv"
)

// Host traces render calls. Failed calls are traced too, in the error color.
type Host struct {
	tree *recorder.Recorder
	out  *termenv.Output
}

// Option configures the Host.
type Option func(*Host)

// WithProfile forces a color profile, e.g. termenv.Ascii for plain output.
func WithProfile(p termenv.Profile) Option {
	return func(h *Host) {
		h.out = termenv.NewOutput(h.out.Writer(), termenv.WithProfile(p))
	}
}

// New creates a Host writing its trace to w. The color profile is detected from w.
func New(w io.Writer, opts ...Option) *Host {
	h := &Host{
		tree: recorder.New(),
		out:  termenv.NewOutput(w),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var _ ports.RenderHost = (*Host)(nil)

// Tree returns the recorder holding the rendered elements.
func (h *Host) Tree() *recorder.Recorder {
	return h.tree
}

func (h *Host) Create(desc ports.NodeDescription) (ports.HostNode, error) {
	node, err := h.tree.Create(desc)
	subject := "<" + desc.Tag + ">"
	if desc.IsLeaf() {
		subject = fmt.Sprintf("%q", desc.Text)
	}
	h.trace("create", subject, err)
	return node, err
}

func (h *Host) Update(node ports.HostNode, delta domain.AttributeDelta) error {
	err := h.tree.Update(node, delta)
	parts := make([]string, 0, len(delta))
	for _, k := range slices.Sorted(maps.Keys(delta)) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, delta[k]))
	}
	h.trace("update", label(node)+" "+strings.Join(parts, " "), err)
	return err
}

func (h *Host) InsertChild(parent ports.HostNode, offset int, child ports.HostNode) error {
	err := h.tree.InsertChild(parent, offset, child)
	h.trace("insert", fmt.Sprintf("%s[%d] %s", label(parent), offset, label(child)), err)
	return err
}

func (h *Host) RemoveChild(parent ports.HostNode, offset int) error {
	err := h.tree.RemoveChild(parent, offset)
	h.trace("remove", fmt.Sprintf("%s[%d]", label(parent), offset), err)
	return err
}

func (h *Host) Destroy(node ports.HostNode) error {
	err := h.tree.Destroy(node)
	h.trace("destroy", label(node), err)
	return err
}

func (h *Host) trace(op, subject string, err error) {
	verb := h.out.String(fmt.Sprintf("%-7s", op)).Foreground(h.out.Color(opColor(op))).Bold()
	if err != nil {
		msg := h.out.String(err.Error()).Foreground(h.out.Color("#fb7185"))
		_, _ = fmt.Fprintf(h.out, "%s %s %s\n", verb, subject, msg)
		return
	}
	_, _ = fmt.Fprintf(h.out, "%s %s\n", verb, h.out.String(subject).Faint())
}

func opColor(op string) string {
	switch op {
	case "create", "insert":
		return "#34d399"
	case "remove", "destroy":
		return "#f59e0b"
	default:
		return "#818cf8"
	}
}

func label(node ports.HostNode) string {
	el, ok := node.(*recorder.Element)
	if !ok || el == nil {
		return "?"
	}
	if el.Tag == "" {
		return fmt.Sprintf("%q", el.Text)
	}
	return "<" + el.Tag + ">"
}
