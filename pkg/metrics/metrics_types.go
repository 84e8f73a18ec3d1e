package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics of the analysis pipeline. A nil *Registry is
// valid and records nothing, so stages can run unobserved in tests.
type Registry struct {
	// Run Metrics
	AnalysisRunsTotal  *prometheus.CounterVec
	StageDuration      *prometheus.HistogramVec
	StageFailuresTotal *prometheus.CounterVec

	// Ingest Metrics
	IngestRowsTotal      *prometheus.CounterVec
	IngestTruncatedTotal *prometheus.CounterVec
	GroundTruthRowsTotal *prometheus.CounterVec
	SyntheticFallbacks   prometheus.Counter

	// Graph Metrics
	DaySelectionsTotal *prometheus.CounterVec
	SelectedDay        prometheus.Gauge
	GraphNodes         *prometheus.GaugeVec
	GraphEdges         *prometheus.GaugeVec

	// Training Metrics
	TrainingEpochsTotal   prometheus.Counter
	TrainingLoss          prometheus.Gauge
	PositiveFallbackTotal prometheus.Counter

	// Ranking Metrics
	BoostedUsersTotal    prometheus.Counter
	RankedUsers          prometheus.Gauge
	KnownMaliciousRanked prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.Mutex
}
