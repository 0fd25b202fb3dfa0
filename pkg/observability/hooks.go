package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/ivy/pkg/domain"
)

// LogHooks returns hooks that log every write and render call at debug level.
// Scope violations and recursion trips are already logged by the host.
func LogHooks(logger *slog.Logger) domain.Hooks {
	return domain.Hooks{
		OnWrite: func(ctx context.Context, e *domain.WriteEvent) {
			logger.DebugContext(ctx, "write",
				"shard", e.Shard,
				"target", e.Target,
				"kind", e.Kind,
				"key", e.Key,
				"offset", e.Offset,
			)
		},
		OnRender: func(ctx context.Context, e *domain.RenderEvent) {
			logger.DebugContext(ctx, "render", "op", e.Op, "node", e.NodeID)
		},
	}
}

// Chain combines several hook bundles; each event is passed to every bundle in order.
func Chain(all ...domain.Hooks) domain.Hooks {
	var out domain.Hooks
	for _, h := range all {
		out.OnWrite = chain2(out.OnWrite, h.OnWrite)
		out.OnNotify = chain3(out.OnNotify, h.OnNotify)
		out.OnScopeViolation = chain3(out.OnScopeViolation, h.OnScopeViolation)
		out.OnRecursionLimit = chain2(out.OnRecursionLimit, h.OnRecursionLimit)
		out.OnRender = chain2(out.OnRender, h.OnRender)
		out.OnRenderError = chain2(out.OnRenderError, h.OnRenderError)
	}
	return out
}

func chain2[T any](a, b func(context.Context, T)) func(context.Context, T) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, v T) {
		a(ctx, v)
		b(ctx, v)
	}
}

func chain3[T, U any](a, b func(context.Context, T, U)) func(context.Context, T, U) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, v T, w U) {
		a(ctx, v, w)
		b(ctx, v, w)
	}
}
