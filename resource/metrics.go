package resource

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ourstory/ourstory/model"
)

// Metrics counts store operations per collection. A nil *Metrics records
// nothing.
type Metrics struct {
	ops     *prometheus.CounterVec
	replays *prometheus.CounterVec
}

// NewMetrics registers the counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ops: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ourstory",
				Subsystem: "resource",
				Name:      "operations_total",
				Help:      "Store operations by collection, operation and outcome.",
			},
			[]string{"kind", "op", "outcome"},
		),
		replays: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ourstory",
				Subsystem: "resource",
				Name:      "idempotent_replays_total",
				Help:      "Mutations answered from the idempotency window.",
			},
			[]string{"kind"},
		),
	}
}

func (m *Metrics) observe(kind, op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	m.ops.WithLabelValues(kind, op, outcome).Inc()
}

func (m *Metrics) replayed(kind string) {
	if m == nil {
		return
	}
	m.replays.WithLabelValues(kind).Inc()
}
