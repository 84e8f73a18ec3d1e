package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initRunMetrics()
	r.initIngestMetrics()
	r.initGraphMetrics()
	r.initTrainingMetrics()
	r.initRankingMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordRun counts a finished analysis run by terminal status
func (r *Registry) RecordRun(status string) {
	if r == nil {
		return
	}
	r.AnalysisRunsTotal.WithLabelValues(status).Inc()
}

// RecordStage records a pipeline stage duration and, on failure, the failure
func (r *Registry) RecordStage(stage string, duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if err != nil {
		r.StageFailuresTotal.WithLabelValues(stage).Inc()
	}
}

// RecordIngest records rows read from an activity source and whether the
// row cap cut the source short
func (r *Registry) RecordIngest(source string, rows int, truncated bool) {
	if r == nil {
		return
	}
	r.IngestRowsTotal.WithLabelValues(source).Add(float64(rows))
	if truncated {
		r.IngestTruncatedTotal.WithLabelValues(source).Inc()
	}
}

// RecordGroundTruthRows records accepted and skipped answer rows
func (r *Registry) RecordGroundTruthRows(accepted, skipped int) {
	if r == nil {
		return
	}
	r.GroundTruthRowsTotal.WithLabelValues("accepted").Add(float64(accepted))
	r.GroundTruthRowsTotal.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordSyntheticFallback counts runs that substituted the synthetic dataset
func (r *Registry) RecordSyntheticFallback() {
	if r == nil {
		return
	}
	r.SyntheticFallbacks.Inc()
}

// RecordDaySelection records which selection strategy picked the day
func (r *Registry) RecordDaySelection(strategy string, day time.Time) {
	if r == nil {
		return
	}
	r.DaySelectionsTotal.WithLabelValues(strategy).Inc()
	r.SelectedDay.Set(float64(day.Unix()))
}

// SetGraphSize publishes per-type node counts and per-kind edge counts
func (r *Registry) SetGraphSize(nodesByType, edgesByKind map[string]int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.GraphNodes.Reset()
	for typ, n := range nodesByType {
		r.GraphNodes.WithLabelValues(typ).Set(float64(n))
	}
	r.GraphEdges.Reset()
	for kind, n := range edgesByKind {
		r.GraphEdges.WithLabelValues(kind).Set(float64(n))
	}
}

// RecordEpoch records one finished training epoch
func (r *Registry) RecordEpoch(loss float64) {
	if r == nil {
		return
	}
	r.TrainingEpochsTotal.Inc()
	r.TrainingLoss.Set(loss)
}

// RecordPositiveFallback counts labels injected by the positive-sample fallback
func (r *Registry) RecordPositiveFallback(injected int) {
	if r == nil || injected == 0 {
		return
	}
	r.PositiveFallbackTotal.Add(float64(injected))
}

// RecordRanking records the boost count and the shape of the ranked list
func (r *Registry) RecordRanking(boosted, ranked, knownMalicious int) {
	if r == nil {
		return
	}
	r.BoostedUsersTotal.Add(float64(boosted))
	r.RankedUsers.Set(float64(ranked))
	r.KnownMaliciousRanked.Set(float64(knownMalicious))
}
