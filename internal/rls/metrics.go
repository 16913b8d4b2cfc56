package rls

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// txOutcomes counts terminal actions on row-scoped transactions by
	// outcome (commit, rollback) and reason (ok, handler_error, panic,
	// client_disconnect, commit_failed).
	txOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rowscope_tx_outcomes_total",
			Help: "Terminal actions on row-scoped transactions",
		},
		[]string{"outcome", "reason"},
	)

	// txDuration observes how long a row-scoped transaction stayed open.
	txDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rowscope_tx_duration_seconds",
			Help:    "Lifetime of row-scoped transactions in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// systemOpsTotal counts system transaction runs by operation and result.
	systemOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "system_tx_operations_total",
			Help: "System transaction runs by operation and result",
		},
		[]string{"operation", "result"},
	)
)
