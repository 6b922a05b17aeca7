package sync

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the engine counters exported on /metrics.
type Metrics struct {
	degradedReads  *prometheus.CounterVec
	fanoutFailures *prometheus.CounterVec
	mergeDecisions *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them on reg.
// A nil reg leaves them unregistered (tests, CLI one-shots).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		degradedReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "shopkeeper",
				Subsystem: "sync",
				Name:      "degraded_reads_total",
				Help:      "Catalog reads served from the local cache because the remote store failed.",
			},
			[]string{"collection"},
		),
		fanoutFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "shopkeeper",
				Subsystem: "sync",
				Name:      "fanout_failures_total",
				Help:      "Writes that did not reach a shared store.",
			},
			[]string{"collection", "store"},
		),
		mergeDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "shopkeeper",
				Subsystem: "sync",
				Name:      "merge_decisions_total",
				Help:      "Per-record merge-on-read decisions by chosen side and reason.",
			},
			[]string{"chosen", "reason"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.degradedReads, m.fanoutFailures, m.mergeDecisions)
	}

	return m
}
