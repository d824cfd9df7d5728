// Package metrics holds the Prometheus collectors shared by the server and
// the watcher.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Server side
var (
	StopsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stopclock_stops_total",
		Help: "Total stops recorded by this instance",
	})

	LastStopTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stopclock_last_stop_timestamp_seconds",
		Help: "Unix timestamp of the most recent stop",
	})

	SSEClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stopclock_sse_clients",
		Help: "Connected /stop_events clients",
	})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stopclock_sse_events_dropped_total",
		Help: "Stop events dropped because a client buffer was full",
	})

	StopsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stopclock_stops_rejected_total",
		Help: "Stop requests rejected, by reason",
	}, []string{"reason"}) // "invalid", "rate_limited"
)

// Watcher side
var (
	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stopclock_subscriber_reconnects_total",
		Help: "Reconnect attempts scheduled by the event subscriber",
	})

	RetryDelay = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stopclock_subscriber_retry_delay_seconds",
		Help: "Delay before the next reconnect attempt",
	})

	Messages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stopclock_subscriber_messages_total",
		Help: "Stop events received by the subscriber, by result",
	}, []string{"result"}) // "applied", "ignored", "malformed"
)
