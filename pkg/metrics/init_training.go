package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initTrainingMetrics() {
	r.TrainingEpochsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "insider_training_epochs_total",
			Help: "Total number of training epochs run",
		},
	)

	r.TrainingLoss = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "insider_training_loss",
			Help: "Loss of the most recent training epoch",
		},
	)

	r.PositiveFallbackTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "insider_positive_fallback_labels_total",
			Help: "Labels injected by the positive-sample fallback",
		},
	)
}
