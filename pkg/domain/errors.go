package domain

import "errors"

// ErrScopeViolation is returned when a write targets an observable declared under a
// different shard than the active mutation scope.
var ErrScopeViolation = errors.New("scope violation")

// ErrDisposedTarget is returned when writing to, or registering a watch on, a torn-down
// record, sequence, view or live node.
var ErrDisposedTarget = errors.New("target is disposed")

// ErrRecursionLimitExceeded is returned when a notification cascade nests deeper than the
// host's depth guard allows.
var ErrRecursionLimitExceeded = errors.New("notification recursion limit exceeded")

// ErrOffsetOutOfRange is returned when a sequence offset falls outside the valid range.
var ErrOffsetOutOfRange = errors.New("offset out of range")

// ErrRemoteShard is returned by a mutation scope when the remoting collaborator reports that
// the shard does not run on this host.
var ErrRemoteShard = errors.New("shard does not run locally")

// ErrNotFound is returned when a record or sequence id cannot be found in a datastore.
var ErrNotFound = errors.New("not found")

// ErrUnauthorized is returned by an Authorizer that rejects a mutation scope.
var ErrUnauthorized = errors.New("unauthorized")
