/*
Package domain contains the shared vocabulary of the ivy engine.

It defines the sentinel errors reported by every operation, the event kinds emitted by
observable sequences, the observability hooks, and small helpers such as attribute
deltas and caller identity. The package has no dependencies beyond the standard library
so that adapters and the core can both import it.

# Key Entities

  - EventKind: the tag of a positional sequence event (changed, inserted, deleted).
  - AttributeDelta: the set of attribute changes pushed to a render host.
  - Hooks: optional callbacks for writes, notifications, scope violations and rendering.
*/
package domain
