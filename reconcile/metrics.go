package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "differ",
		Subsystem: "reconcile",
		Name:      "queries_total",
		Help:      "Queries executed by the reconciliation engine.",
	}, []string{"kind", "status"})
	runsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "differ",
		Subsystem: "reconcile",
		Name:      "runs_total",
		Help:      "Outcome of reconciliation runs.",
	}, []string{"outcome"})
	divergentRowsMetric = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "differ",
		Subsystem: "reconcile",
		Name:      "divergent_rows",
		Help:      "Number of divergent rows found by the last run.",
	})
	runDurationMetric = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "differ",
		Subsystem: "reconcile",
		Name:      "run_duration_seconds",
		Help:      "Duration of reconciliation runs.",
		Buckets:   prometheus.DefBuckets,
	})
)

const (
	outcomeMatch      = "match"
	outcomeDifferent  = "different"
	outcomeInvalid    = "invalid"
	outcomeMismatch   = "schema_mismatch"
	outcomeFailed     = "failed"
	queryKindProbe    = "probe"
	queryKindSchema   = "schema"
	queryKindCompare  = "comparison"
	queryKindSummary  = "summary"
	queryStatusOK     = "ok"
	queryStatusFailed = "failed"
)

func init() {
	for _, o := range []string{outcomeMatch, outcomeDifferent, outcomeInvalid, outcomeMismatch, outcomeFailed} {
		runsMetric.WithLabelValues(o)
	}
}

func observeQuery(kind string, err error) {
	status := queryStatusOK
	if err != nil {
		status = queryStatusFailed
	}
	queriesMetric.WithLabelValues(kind, status).Inc()
}
