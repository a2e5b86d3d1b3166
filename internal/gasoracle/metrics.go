package gasoracle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeeFallbacksTotal counts uses of configured default fees.
	FeeFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dexarb_gas_fee_fallbacks_total",
		Help: "Total number of fee computations using configured defaults",
	})

	// ConfidenceBumpsTotal counts high-confidence priority fee bumps.
	ConfidenceBumpsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dexarb_gas_confidence_bumps_total",
		Help: "Total number of priority fee bumps from high confidence",
	})

	// CeilingClampsTotal counts max-fee ceiling clamps.
	CeilingClampsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dexarb_gas_ceiling_clamps_total",
		Help: "Total number of fee computations clamped at the ceiling",
	})

	// MaxFeeGwei reports the most recently computed max fee.
	MaxFeeGwei = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dexarb_gas_max_fee_gwei",
		Help: "Most recently computed max fee per gas in gwei",
	})
)
