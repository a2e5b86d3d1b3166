package simulation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SimulationDurationSeconds tracks valuation latency per opportunity.
	SimulationDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dexarb_simulation_duration_seconds",
		Help:    "Duration of one opportunity valuation",
		Buckets: prometheus.DefBuckets,
	})

	// RejectedTotal tracks gate rejections by reason.
	RejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dexarb_simulation_rejected_total",
			Help: "Total number of opportunities rejected, by gate",
		},
		[]string{"reason"},
	)

	// SimulationErrorsTotal tracks hard valuation errors.
	SimulationErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dexarb_simulation_errors_total",
		Help: "Total number of simulations ending in a hard error",
	})

	// ProfitableTotal tracks opportunities passing every gate.
	ProfitableTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dexarb_simulation_profitable_total",
		Help: "Total number of opportunities judged profitable",
	})

	// NetProfitUSD tracks display-grade net profit of profitable results.
	NetProfitUSD = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dexarb_simulation_net_profit_usd",
		Help:    "Net profit in USD for profitable opportunities",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})
)
