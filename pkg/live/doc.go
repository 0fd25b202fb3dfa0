// Package live binds records and sequences to a presentation tree owned by a
// ports.RenderHost.
//
// A live node is built once from its current attributes and children, then patched
// incrementally: an attribute write becomes one Update, and a positional child event
// becomes one InsertChild or RemoveChild. Disposing a node releases every watch it
// owns, so no further render-host call is ever made on its behalf.
package live
