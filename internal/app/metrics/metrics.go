package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the Prometheus collectors for entitlement activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	transitions   *prometheus.CounterVec
	renewals      *prometheus.CounterVec
	batchItems    *prometheus.CounterVec
	batchDuration *prometheus.HistogramVec
}

// MustNewMetrics registers the collectors with reg. Collectors already
// registered under the same name are reused, anything else panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "portal",
				Name:      "lifecycle_transitions_total",
				Help:      "Service status transitions applied, by source and target status.",
			},
			[]string{"from", "to"},
		),
		renewals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "portal",
				Name:      "renewals_total",
				Help:      "Renewal ledger entries recorded or settled, by resulting status.",
			},
			[]string{"status"},
		),
		batchItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "portal",
				Name:      "batch_items_total",
				Help:      "Items processed by batch operations, by operation and outcome.",
			},
			[]string{"operation", "result"},
		),
		batchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "portal",
				Name:      "batch_duration_seconds",
				Help:      "Wall time of a whole batch operation.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}

	m.transitions = register(reg, m.transitions)
	m.renewals = register(reg, m.renewals)
	m.batchItems = register(reg, m.batchItems)
	m.batchDuration = register(reg, m.batchDuration)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveRenewal(status string) {
	if m == nil {
		return
	}
	m.renewals.WithLabelValues(status).Inc()
}

// ObserveBatchItem counts one processed item; result is "ok" or an error kind.
func (m *Metrics) ObserveBatchItem(operation, result string) {
	if m == nil {
		return
	}
	m.batchItems.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) ObserveBatchDuration(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.WithLabelValues(operation).Observe(d.Seconds())
}
