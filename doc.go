/*
Package ivy is a reactive observation engine: mutable records and sequences that
notify watchers synchronously on change, composed into derived views and bound to a
live presentation tree that is patched incrementally as state mutates.

# Concept

State lives in observables. A record maps keys to values; a sequence is an ordered
list whose changes are reported as positional events (changed, inserted, deleted).
Derived views (concatenations, projections, computed values) follow their sources and
are themselves observable. A live node binds a record of attributes and a sequence of
children to a node of a render host, which may be a real UI on a client or a recording
(or null) host on a server.

Every write returns only after its whole cascade ran: derived views recomputed, live
nodes patched. There is no queue and no batching.

# Shards

Observables are declared under a shard. Writes happen inside a mutation scope for one
shard, and a write to another shard fails with domain.ErrScopeViolation. Writes are
not atomic: effects applied before a failure stand.

# Usage

	eng, err := ivy.New(ivy.WithRenderHost(recorder.New()))
	if err != nil {
		log.Fatal(err)
	}

	todo, _ := eng.Sequence(ctx, "lists", "todo")
	list, _ := eng.Bind("ul", live.Static{"class": "todo"}, todo)

	// Patches the bound <ul> with one InsertChild.
	err = eng.Mutate(ctx, "lists", func(ctx context.Context) error {
		return todo.Append("write docs")
	})

The Engine serializes access for concurrent callers. The packages under pkg/ can be
used directly for single-threaded embedding: pkg/reactive (records, sequences, scopes),
pkg/derive (views), pkg/live (binder) and pkg/ports (collaborator interfaces).
*/
package ivy
