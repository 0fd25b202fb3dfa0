/*
Package derive builds read-only watchable views computed from other observables.

A derived view owns no mutable state beyond a memoized last-computed value and is
recomputed strictly in response to source notifications. Views are themselves
watchable, so they compose: a Concatenation can be a source of another
Concatenation, a Value can be mirrored into a record with Into.

Every view holds watches on its sources and must be released with Dispose.
*/
package derive
