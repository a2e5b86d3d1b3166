package sequencer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExecutionsTotal tracks execution attempts by mode and outcome.
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dexarb_executions_total",
			Help: "Total number of execution attempts",
		},
		[]string{"mode", "outcome"},
	)

	// SubmitDurationSeconds tracks end-to-end submission latency.
	SubmitDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dexarb_submit_duration_seconds",
		Help:    "Duration of one execution attempt",
		Buckets: prometheus.DefBuckets,
	})

	// NonceGauge reports the next usable nonce.
	NonceGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dexarb_next_nonce",
		Help: "Next usable account nonce",
	})

	// PaperProfitUSD reports cumulative paper-mode profit.
	PaperProfitUSD = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dexarb_paper_profit_usd",
		Help: "Cumulative paper-trading profit in USD",
	})

	// NonceResyncsTotal counts nonce resynchronizations.
	NonceResyncsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dexarb_nonce_resyncs_total",
		Help: "Total number of nonce resynchronizations",
	})
)
