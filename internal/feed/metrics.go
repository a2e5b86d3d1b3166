package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesTotal tracks feed messages received.
	MessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dexarb_feed_messages_total",
		Help: "Total number of feed messages received",
	})

	// MessagesDroppedTotal tracks messages dropped at the boundary.
	MessagesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dexarb_feed_messages_dropped_total",
		Help: "Total number of feed messages dropped before the pipeline",
	})

	// ReconnectsTotal tracks feed reconnection attempts.
	ReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dexarb_feed_reconnects_total",
		Help: "Total number of feed reconnect attempts",
	})
)
