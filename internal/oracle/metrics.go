package oracle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SourcesRegisteredTotal tracks data sources registered.
	SourcesRegisteredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_oracle_sources_registered_total",
		Help: "Total number of oracle sources registered",
	})

	// ReportsSubmittedTotal tracks accepted reports by outcome.
	ReportsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_oracle_reports_submitted_total",
			Help: "Total number of oracle reports accepted",
		},
		[]string{"outcome"},
	)

	// FinalizationsTotal tracks markets finalized by outcome.
	FinalizationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_oracle_finalizations_total",
			Help: "Total number of markets finalized by consensus",
		},
		[]string{"outcome"},
	)

	// FinalizationConfidenceBps tracks recomputed confidence at finalization.
	FinalizationConfidenceBps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "settlement_oracle_finalization_confidence_bps",
		Help:    "Consensus confidence at finalization in basis points",
		Buckets: []float64{5000, 6000, 6667, 7500, 8000, 9000, 10000},
	})

	// DisputesRaisedTotal tracks disputes raised inside the window.
	DisputesRaisedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_oracle_disputes_raised_total",
		Help: "Total number of disputes raised",
	})

	// DisputesResolvedTotal tracks governance dispute rulings.
	DisputesResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_oracle_disputes_resolved_total",
			Help: "Total number of disputes resolved by governance",
		},
		[]string{"ruling"},
	)
)
