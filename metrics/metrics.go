// Package metrics exposes auth activity as Prometheus counters.
package metrics

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auth "github.com/axioquan/go-auth"
)

// Metrics holds the auth counters
type Metrics struct {
	Events      *prometheus.CounterVec
	Failures    *prometheus.CounterVec
	Invalidated prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the counters with registry
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axioquan_auth_events_total",
				Help: "Total number of auth activity events",
			},
			[]string{"event", "role"},
		),
		Failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axioquan_auth_failures_total",
				Help: "Total number of failed signups and logins by reason",
			},
			[]string{"event", "reason"},
		),
		Invalidated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "axioquan_auth_sessions_invalidated_total",
				Help: "Total number of server side session rows removed",
			},
		),
		gatherer: registry,
	}
}

// Record implements auth.ActivitySink. Roles outside the seeded set share
// the "unknown" label.
func (m *Metrics) Record(_ context.Context, event auth.ActivityEvent) error {
	m.Events.WithLabelValues(string(event.EventType), auth.RoleLabel(event.Role)).Inc()

	switch event.EventType {
	case auth.ActivityEventSignupFailure, auth.ActivityEventLoginFailure:
		m.Failures.WithLabelValues(string(event.EventType), event.Reason).Inc()
	case auth.ActivityEventSessionsInvalidated:
		if n, ok := event.Metadata["deleted"].(int64); ok && n > 0 {
			m.Invalidated.Add(float64(n))
		}
	}
	return nil
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}

var _ auth.ActivitySink = (*Metrics)(nil)
