package grantkit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the engine. All methods are
// nil-safe so a Service without metrics pays nothing.
type Metrics struct {
	grantsTotal      *prometheus.CounterVec
	revocationsTotal *prometheus.CounterVec
	undosTotal       *prometheus.CounterVec
	denialsTotal     *prometheus.CounterVec
	resolveDuration  prometheus.Histogram
}

// NewMetrics creates the engine collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer to use the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		grantsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grantkit_grants_total",
				Help: "Total number of privilege grants.",
			},
			[]string{"relation", "privilege"},
		),
		revocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grantkit_revocations_total",
				Help: "Total number of privilege revocations.",
			},
			[]string{"relation"},
		),
		undosTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grantkit_undos_total",
				Help: "Total number of undone shares.",
			},
			[]string{"relation"},
		),
		denialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grantkit_denials_total",
				Help: "Total number of permission-denied outcomes.",
			},
			[]string{"operation"},
		),
		resolveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "grantkit_resolve_duration_seconds",
				Help:    "Effective-privilege resolution latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.grantsTotal,
			m.revocationsTotal,
			m.undosTotal,
			m.denialsTotal,
			m.resolveDuration,
		)
	}
	return m
}

func (m *Metrics) recordGrant(rel Relation, p Privilege) {
	if m == nil {
		return
	}
	m.grantsTotal.WithLabelValues(string(rel), p.String()).Inc()
}

func (m *Metrics) recordRevocation(rel Relation) {
	if m == nil {
		return
	}
	m.revocationsTotal.WithLabelValues(string(rel)).Inc()
}

func (m *Metrics) recordUndo(rel Relation) {
	if m == nil {
		return
	}
	m.undosTotal.WithLabelValues(string(rel)).Inc()
}

func (m *Metrics) recordDenial(operation string) {
	if m == nil {
		return
	}
	m.denialsTotal.WithLabelValues(operation).Inc()
}

func (m *Metrics) observeResolve(d time.Duration) {
	if m == nil {
		return
	}
	m.resolveDuration.Observe(d.Seconds())
}
