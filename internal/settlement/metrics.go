package settlement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClaimsTotal tracks successful reward claims.
	ClaimsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_claims_total",
		Help: "Total number of rewards claimed",
	})

	// PayoutAmount tracks payout sizes in base units.
	PayoutAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "settlement_payout_amount",
		Help:    "Payout amount in base units",
		Buckets: prometheus.ExponentialBuckets(1000, 10, 7),
	})
)
