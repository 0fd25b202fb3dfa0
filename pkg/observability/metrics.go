package observability

import (
	"context"

	"github.com/aretw0/ivy/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine collectors.
type Metrics struct {
	Writes          *prometheus.CounterVec
	Notifications   *prometheus.HistogramVec
	ScopeViolations *prometheus.CounterVec
	RecursionTrips  prometheus.Counter
	RenderCalls     *prometheus.CounterVec
	RenderErrors    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ivy_writes_total",
				Help: "Total number of notifying writes",
			},
			[]string{"shard", "kind"},
		),
		Notifications: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ivy_notification_watchers",
				Help:    "Number of watchers invoked per notification pass",
				Buckets: prometheus.ExponentialBuckets(1, 2, 8),
			},
			[]string{"target"},
		),
		ScopeViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ivy_scope_violations_total",
				Help: "Writes rejected by the mutation scope",
			},
			[]string{"active", "shard"},
		),
		RecursionTrips: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ivy_recursion_limit_total",
				Help: "Notification cascades aborted by the depth guard",
			},
		),
		RenderCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ivy_render_calls_total",
				Help: "Successful render host calls",
			},
			[]string{"op"},
		),
		RenderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ivy_render_errors_total",
				Help: "Failed render host calls",
			},
			[]string{"op"},
		),
	}
	reg.MustRegister(m.Writes, m.Notifications, m.ScopeViolations, m.RecursionTrips, m.RenderCalls, m.RenderErrors)
	return m
}

// Hooks returns hooks feeding the collectors.
// Notification targets are record and sequence ids; keep them low-cardinality.
func (m *Metrics) Hooks() domain.Hooks {
	return domain.Hooks{
		OnWrite: func(_ context.Context, e *domain.WriteEvent) {
			m.Writes.WithLabelValues(e.Shard, string(e.Kind)).Inc()
		},
		OnNotify: func(_ context.Context, target string, watchers int) {
			m.Notifications.WithLabelValues(target).Observe(float64(watchers))
		},
		OnScopeViolation: func(_ context.Context, active, shard string) {
			m.ScopeViolations.WithLabelValues(active, shard).Inc()
		},
		OnRecursionLimit: func(context.Context, int) {
			m.RecursionTrips.Inc()
		},
		OnRender: func(_ context.Context, e *domain.RenderEvent) {
			m.RenderCalls.WithLabelValues(e.Op).Inc()
		},
		OnRenderError: func(_ context.Context, e *domain.RenderEvent) {
			m.RenderErrors.WithLabelValues(e.Op).Inc()
		},
	}
}
