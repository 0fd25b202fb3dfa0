package tests

import (
	"testing"

	"github.com/aretw0/ivy/pkg/domain"
	"github.com/aretw0/ivy/pkg/ports"
)

// RenderHostContractTest is a reusable test suite that verifies if an adapter complies with
// ports.RenderHost. Hosts are free to ignore calls, so the suite only checks that a full
// create/update/insert/remove/destroy lifecycle succeeds.
func RenderHostContractTest(t *testing.T, host ports.RenderHost) {
	t.Helper()

	var root, leaf ports.HostNode

	t.Run("Create", func(t *testing.T) {
		var err error
		root, err = host.Create(ports.NodeDescription{Tag: "ul"})
		if err != nil {
			t.Fatalf("unexpected error creating element: %v", err)
		}
		leaf, err = host.Create(ports.NodeDescription{Text: "item"})
		if err != nil {
			t.Fatalf("unexpected error creating leaf: %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		if err := host.Update(root, domain.AttributeDelta{"class": "list"}); err != nil {
			t.Errorf("unexpected error updating node: %v", err)
		}
	})

	t.Run("InsertChild", func(t *testing.T) {
		if err := host.InsertChild(root, 0, leaf); err != nil {
			t.Errorf("unexpected error inserting child: %v", err)
		}
	})

	t.Run("RemoveChild", func(t *testing.T) {
		if err := host.RemoveChild(root, 0); err != nil {
			t.Errorf("unexpected error removing child: %v", err)
		}
	})

	t.Run("Destroy", func(t *testing.T) {
		if err := host.Destroy(leaf); err != nil {
			t.Errorf("unexpected error destroying leaf: %v", err)
		}
		if err := host.Destroy(root); err != nil {
			t.Errorf("unexpected error destroying root: %v", err)
		}
	})
}
