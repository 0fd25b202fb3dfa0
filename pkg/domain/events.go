package domain

import "context"

// EventKind tags a positional sequence event.
type EventKind string

const (
	EventChanged  EventKind = "changed"
	EventInserted EventKind = "inserted"
	EventDeleted  EventKind = "deleted"
)

// WriteEvent describes a successful, notifying write to a record key or sequence slot.
type WriteEvent struct {
	Shard  string    `json:"shard"`
	Target string    `json:"target"`
	Kind   EventKind `json:"kind"`
	Key    string    `json:"key,omitempty"`
	Offset int       `json:"offset,omitempty"`
	Value  any       `json:"value,omitempty"`
}

// RenderEvent describes a call made into a render host.
type RenderEvent struct {
	Op     string `json:"op"`
	NodeID string `json:"node_id"`
	Err    error  `json:"-"`
}

// Hooks defines callbacks for engine observability.
// Every field is optional.
type Hooks struct {
	OnWrite          func(context.Context, *WriteEvent)
	OnNotify         func(ctx context.Context, target string, watchers int)
	OnScopeViolation func(ctx context.Context, active, shard string)
	OnRecursionLimit func(ctx context.Context, depth int)
	OnRender         func(context.Context, *RenderEvent)
	OnRenderError    func(context.Context, *RenderEvent)
}
