package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initIngestMetrics() {
	r.IngestRowsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "insider_ingest_rows_total",
			Help: "Activity rows read per log source",
		},
		[]string{"source"},
	)

	r.IngestTruncatedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "insider_ingest_truncated_total",
			Help: "Loads where the row cap truncated a log source",
		},
		[]string{"source"},
	)

	r.GroundTruthRowsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "insider_ground_truth_rows_total",
			Help: "Ground-truth rows by outcome (accepted, skipped)",
		},
		[]string{"result"},
	)

	r.SyntheticFallbacks = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "insider_synthetic_fallbacks_total",
			Help: "Runs that substituted the synthetic dataset for missing logs",
		},
	)
}
