package market

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarketsCreatedTotal tracks markets registered.
	MarketsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_markets_created_total",
		Help: "Total number of markets registered",
	})

	// MarketsCancelledTotal tracks emergency cancellations.
	MarketsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_markets_cancelled_total",
		Help: "Total number of markets cancelled by governance",
	})
)
