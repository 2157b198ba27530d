package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PassTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poolwatch",
		Subsystem: "pass",
		Name:      "total",
		Help:      "Total reconciliation passes per job and outcome.",
	}, []string{"job", "status"})

	PassDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "poolwatch",
		Subsystem: "pass",
		Name:      "duration_seconds",
		Help:      "Duration of one reconciliation pass in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"job"})

	FetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poolwatch",
		Subsystem: "fetch",
		Name:      "total",
		Help:      "Total upstream fetches per source and outcome.",
	}, []string{"source", "status"})

	NewPoolsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "poolwatch",
		Subsystem: "pools",
		Name:      "new_total",
		Help:      "Total pools observed for the first time.",
	})

	PoolsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "poolwatch",
		Subsystem: "pools",
		Name:      "tracked",
		Help:      "Number of pool records in the store, buckets included.",
	})

	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poolwatch",
		Subsystem: "alerts",
		Name:      "sent_total",
		Help:      "Total alerts successfully delivered.",
	}, []string{"kind"})

	AlertsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poolwatch",
		Subsystem: "alerts",
		Name:      "failed_total",
		Help:      "Total alert delivery failures.",
	}, []string{"kind"})
)
