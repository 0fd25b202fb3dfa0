package watch

import (
	"fmt"

	"github.com/aretw0/ivy/pkg/domain"
)

// DefaultDepth is the nesting limit used when a Guard is built with a non-positive limit.
const DefaultDepth = 64

// Guard tracks how deeply notification cascades are nested on one host.
// A trip is latched and reported by the outermost Dispatch of the cascade, so the
// caller of the write that started it sees the error even when inner callbacks drop it.
type Guard struct {
	limit int
	depth int
	fault error

	// OnTrip, if set, is called once per refused dispatch.
	OnTrip func(depth int)
}

// NewGuard creates a guard allowing at most limit nested dispatches.
func NewGuard(limit int) *Guard {
	if limit <= 0 {
		limit = DefaultDepth
	}
	return &Guard{limit: limit}
}

// Depth returns the current nesting depth.
func (g *Guard) Depth() int {
	return g.depth
}

// Dispatch runs fn as one level of a notification cascade.
func (g *Guard) Dispatch(fn func()) error {
	if g.depth >= g.limit {
		err := fmt.Errorf("%w: depth %d", domain.ErrRecursionLimitExceeded, g.depth)
		if g.fault == nil {
			g.fault = err
		}
		if g.OnTrip != nil {
			g.OnTrip(g.depth)
		}
		return err
	}

	g.depth++
	defer func() {
		g.depth--
	}()
	fn()

	if g.depth == 1 && g.fault != nil {
		err := g.fault
		g.fault = nil
		return err
	}
	return nil
}
