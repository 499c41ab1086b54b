package stakepool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StakesPlacedTotal tracks stakes recorded by position.
	StakesPlacedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_stakes_placed_total",
			Help: "Total number of stakes recorded",
		},
		[]string{"position"},
	)

	// StakeAmount tracks stake sizes in base units.
	StakeAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "settlement_stake_amount",
		Help:    "Stake amount in base units",
		Buckets: prometheus.ExponentialBuckets(1000, 10, 7), // 1e3 .. 1e9
	})

	// RefundsTotal tracks refunds paid on cancelled markets.
	RefundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_refunds_total",
		Help: "Total number of refunds on cancelled markets",
	})
)
