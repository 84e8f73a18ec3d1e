package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGraphMetrics() {
	r.DaySelectionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "insider_day_selections_total",
			Help: "Analysis day selections by strategy",
		},
		[]string{"strategy"},
	)

	r.SelectedDay = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "insider_selected_day_timestamp_seconds",
			Help: "Midnight UTC of the most recently selected analysis day",
		},
	)

	r.GraphNodes = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "insider_graph_nodes",
			Help: "Nodes in the most recent behavioral graph by type",
		},
		[]string{"type"},
	)

	r.GraphEdges = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "insider_graph_edges",
			Help: "Edges in the most recent behavioral graph by log source",
		},
		[]string{"kind"},
	)
}
