package amm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SwapsTotal tracks executed swaps by input token.
	SwapsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_amm_swaps_total",
			Help: "Total number of AMM swaps executed",
		},
		[]string{"token_in"},
	)

	// SwapVolume tracks swap input sizes in base units.
	SwapVolume = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "settlement_amm_swap_volume",
		Help:    "AMM swap input amount in base units",
		Buckets: prometheus.ExponentialBuckets(1000, 10, 7),
	})

	// LiquidityAddsTotal tracks liquidity deposits.
	LiquidityAddsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_amm_liquidity_adds_total",
		Help: "Total number of liquidity deposits",
	})

	// LiquidityRemovesTotal tracks liquidity withdrawals.
	LiquidityRemovesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_amm_liquidity_removes_total",
		Help: "Total number of liquidity withdrawals",
	})
)
