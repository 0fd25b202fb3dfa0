package ports

import "context"

// Remoting decides where a shard's mutation logic executes.
type Remoting interface {
	// RunsLocally reports whether mutations for shard execute on this host.
	RunsLocally(shard string) bool
}

// LocalRemoting runs every shard locally. It is the default.
type LocalRemoting struct{}

// RunsLocally always returns true.
func (LocalRemoting) RunsLocally(string) bool { return true }

// Authorizer gates mutation scopes by shard and caller identity.
type Authorizer interface {
	// Authorize returns nil when caller may mutate shard.
	Authorize(ctx context.Context, shard, caller string) error
}
