package ports

import "github.com/aretw0/ivy/pkg/domain"

// HostNode is an opaque handle to a node owned by a RenderHost.
type HostNode any

// NodeDescription describes a node to create.
// Element nodes carry a Tag; leaf nodes carry Text and an empty Tag.
type NodeDescription struct {
	Tag  string `json:"tag,omitempty"`
	Text string `json:"text,omitempty"`
}

// IsLeaf reports whether the description is a text leaf.
func (d NodeDescription) IsLeaf() bool {
	return d.Tag == ""
}

// RenderHost turns live-tree patches into an actual presentation tree.
// A client host drives a real UI; a server host may record or ignore every call.
type RenderHost interface {
	Create(desc NodeDescription) (HostNode, error)
	Update(node HostNode, delta domain.AttributeDelta) error
	InsertChild(parent HostNode, offset int, child HostNode) error
	RemoveChild(parent HostNode, offset int) error
	Destroy(node HostNode) error
}
