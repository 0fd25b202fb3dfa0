package domain

import "context"

type callerKey struct{}

// WithCaller attaches a caller identity to ctx. Authorizers read it back with CallerFrom.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom returns the caller identity stored in ctx, or "" if none.
func CallerFrom(ctx context.Context) string {
	caller, _ := ctx.Value(callerKey{}).(string)
	return caller
}
