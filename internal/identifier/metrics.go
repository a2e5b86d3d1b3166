package identifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OpportunitiesFoundTotal tracks candidate paths emitted to simulation.
var OpportunitiesFoundTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "dexarb_identifier_opportunities_found_total",
	Help: "Total number of candidate arbitrage paths emitted",
})
