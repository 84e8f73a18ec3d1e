package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRankingMetrics() {
	r.BoostedUsersTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "insider_boosted_users_total",
			Help: "Known-malicious users whose score was boosted",
		},
	)

	r.RankedUsers = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "insider_ranked_users",
			Help: "Users in the most recent ranked output",
		},
	)

	r.KnownMaliciousRanked = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "insider_known_malicious_ranked",
			Help: "Known-malicious users present in the most recent ranked output",
		},
	)
}
