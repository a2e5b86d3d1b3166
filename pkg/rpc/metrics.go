package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CallsTotal tracks RPC calls by method and outcome.
	CallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dexarb_rpc_calls_total",
			Help: "Total number of RPC calls",
		},
		[]string{"method", "outcome"},
	)

	// CallDurationSeconds tracks RPC call latency by method.
	CallDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dexarb_rpc_call_duration_seconds",
			Help:    "Duration of RPC calls including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// RetriesTotal tracks retry attempts by method.
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dexarb_rpc_retries_total",
			Help: "Total number of RPC retry attempts",
		},
		[]string{"method"},
	)

	// BreakerState reports breaker state per endpoint (0 closed, 1 open).
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dexarb_rpc_breaker_state",
			Help: "Circuit breaker state per endpoint (0=closed, 1=open)",
		},
		[]string{"endpoint"},
	)

	// BreakerOpensTotal counts breaker open transitions per endpoint.
	BreakerOpensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dexarb_rpc_breaker_opens_total",
			Help: "Total number of circuit breaker open transitions",
		},
		[]string{"endpoint"},
	)
)
