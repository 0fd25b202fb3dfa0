/*
Package ports defines the driven ports (interfaces) for the ivy engine.

These interfaces decouple the observation core from its collaborators, so the same
engine runs on a client host and on a server host with different implementations
plugged in.

# Key Interfaces

  - Datastore: supplies and durably persists record fields and sequence elements.
  - RenderHost: turns live-tree patches into an actual presentation tree.
  - Remoting: answers whether a shard's mutations run on this host.
  - Authorizer: gates mutation scopes by shard and caller identity.
  - DistributedLocker: serializes a shard's mutations across replicas.
*/
package ports
