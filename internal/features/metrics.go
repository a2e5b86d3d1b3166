package features

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScoreRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dexarb_score_requests_total",
		Help: "Total number of model score requests by outcome",
	}, []string{"outcome"})

	ScoreDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dexarb_score_duration_seconds",
		Help:    "Duration of model score requests",
		Buckets: prometheus.DefBuckets,
	})

	ScoreDistribution = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dexarb_score_distribution",
		Help:    "Distribution of returned execution success probabilities",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})
)
