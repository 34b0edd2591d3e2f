package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesTotal tracks received CLOB messages by event type.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "range_arb_feed_messages_total",
			Help: "Total number of CLOB websocket messages received",
		},
		[]string{"event_type"},
	)

	// UpdatesDroppedTotal tracks updates lost to a full output buffer.
	UpdatesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "range_arb_feed_updates_dropped_total",
		Help: "Total number of normalised updates dropped on a full buffer",
	})

	// ReconnectAttemptsTotal tracks reconnection attempts.
	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "range_arb_feed_reconnect_attempts_total",
		Help: "Total number of websocket reconnection attempts",
	})

	// ConnectedGauge is 1 while the websocket is connected.
	ConnectedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "range_arb_feed_connected",
		Help: "Whether the CLOB websocket is currently connected",
	})

	// SubscriptionCount tracks subscribed asset ids.
	SubscriptionCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "range_arb_feed_subscriptions",
		Help: "Number of asset ids currently subscribed",
	})
)
