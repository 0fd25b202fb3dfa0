/*
Package reactive implements the observable core of ivy: records, sequences and the
mutation scope that governs writes to them.

Everything here is synchronous and single-threaded. A write returns only after every
resulting notification (derived views, live-tree patches) has run, and there is no
batching: writing two keys is two separate, individually visible writes. Watchers
observing a relationship between keys can see the record in a transiently
inconsistent state between them.

# Key Types

  - Host: the per-process context shared by observables (scope, depth guard, datastore, hooks).
  - Record: a key to value container with identity/equality change detection.
  - Sequence: an ordered collection emitting positional changed/inserted/deleted events.
  - ArrayWatcher: the optional-callback bundle receiving sequence events.
*/
package reactive
