package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BundlesTotal tracks bundle submissions by outcome.
var BundlesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dexarb_relay_bundles_total",
		Help: "Total number of bundle submissions",
	},
	[]string{"outcome"},
)
