package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsPublishedTotal tracks published events by type.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_events_published_total",
			Help: "Total number of engine events published",
		},
		[]string{"type"},
	)

	// SubscribersGauge tracks connected websocket subscribers.
	SubscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "settlement_events_subscribers",
		Help: "Currently connected websocket subscribers",
	})
)
