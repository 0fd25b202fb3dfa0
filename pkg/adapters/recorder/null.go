package recorder

import (
	"github.com/aretw0/ivy/pkg/domain"
	"github.com/aretw0/ivy/pkg/ports"
)

type nullHost struct{}

type nullNode struct{}

// Null returns a render host that accepts and ignores every call.
// It is the default host of a server that keeps no presentation tree.
func Null() ports.RenderHost {
	return nullHost{}
}

func (nullHost) Create(ports.NodeDescription) (ports.HostNode, error) { return &nullNode{}, nil }

func (nullHost) Update(ports.HostNode, domain.AttributeDelta) error { return nil }

func (nullHost) InsertChild(ports.HostNode, int, ports.HostNode) error { return nil }

func (nullHost) RemoveChild(ports.HostNode, int) error { return nil }

func (nullHost) Destroy(ports.HostNode) error { return nil }
