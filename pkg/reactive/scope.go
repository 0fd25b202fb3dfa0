package reactive

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/ivy/pkg/domain"
)

// Unsharded is the shard of observables that may be written from any scope.
const Unsharded = ""

type scopeState struct {
	shard  string
	active bool
	ctx    context.Context
	fault  error
}

// ActiveShard returns the shard of the running mutation scope and whether one is running.
func (h *Host) ActiveShard() (string, bool) {
	return h.scope.shard, h.scope.active
}

// Run executes fn synchronously as a mutation scope for shard.
//
// Writes made during fn to an observable declared under another shard fail with
// domain.ErrScopeViolation, and Run reports the first such violation even if fn dropped
// it. Writes already applied are never rolled back. Nested calls with the same shard run
// transparently; nested calls with a different shard fail without running.
//
// Before running fn, Run asks the remoting collaborator whether the shard runs on this
// host and returns domain.ErrRemoteShard if it does not.
func (h *Host) Run(ctx context.Context, shard string, fn func(ctx context.Context) error) error {
	if h.scope.active {
		if h.scope.shard != shard {
			return h.violation(fmt.Sprintf("nested scope %q", shard), shard)
		}
		return fn(ctx)
	}

	if !h.remoting.RunsLocally(shard) {
		return fmt.Errorf("%w: %q", domain.ErrRemoteShard, shard)
	}

	h.scope = scopeState{shard: shard, active: true, ctx: ctx}
	defer func() {
		h.scope = scopeState{}
	}()

	err := fn(ctx)
	if fault := h.scope.fault; fault != nil && !errors.Is(err, domain.ErrScopeViolation) {
		err = errors.Join(err, fault)
	}
	return err
}

// checkWrite validates that target, declared under shard, may be written now.
func (h *Host) checkWrite(target, shard string) error {
	if !h.scope.active {
		if h.strict {
			return h.violation(target, shard)
		}
		return nil
	}
	if shard == Unsharded || shard == h.scope.shard {
		return nil
	}
	return h.violation(target, shard)
}

func (h *Host) violation(target, shard string) error {
	active := h.scope.shard
	var err error
	if h.scope.active {
		err = fmt.Errorf("%w: %s belongs to shard %q, active scope is %q", domain.ErrScopeViolation, target, shard, active)
	} else {
		err = fmt.Errorf("%w: %s written outside of a mutation scope", domain.ErrScopeViolation, target)
	}

	if h.scope.active && h.scope.fault == nil {
		h.scope.fault = err
	}
	h.logger.Warn("scope violation", "target", target, "shard", shard, "active", active)
	if h.hooks.OnScopeViolation != nil {
		h.hooks.OnScopeViolation(h.ctx(), active, shard)
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
