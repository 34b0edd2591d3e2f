package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpdatesAcceptedTotal tracks price events admitted by the dirty filter.
	UpdatesAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "range_arb_updates_accepted_total",
		Help: "Total number of top-of-book updates accepted",
	})

	// UpdatesDroppedTotal tracks dropped price events by reason.
	UpdatesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "range_arb_updates_dropped_total",
			Help: "Total number of top-of-book updates dropped",
		},
		[]string{"reason"},
	)

	// EvaluationsTotal tracks evaluator invocations by kind.
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "range_arb_evaluations_total",
			Help: "Total number of targeted evaluator runs",
		},
		[]string{"kind"},
	)

	// OpportunitiesDetectedTotal tracks emitted opportunities by strategy.
	OpportunitiesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "range_arb_opportunities_detected_total",
			Help: "Total number of arbitrage opportunities emitted",
		},
		[]string{"strategy"},
	)

	// OpportunitiesRejectedTotal tracks discarded candidates by reason.
	OpportunitiesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "range_arb_opportunities_rejected_total",
			Help: "Total number of arbitrage candidates rejected",
		},
		[]string{"reason"},
	)

	// OpportunityProfitBps tracks emitted profit margins in basis points.
	OpportunityProfitBps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "range_arb_opportunity_profit_bps",
		Help:    "Emitted opportunity profit margin in basis points",
		Buckets: []float64{5, 10, 25, 50, 100, 200, 500, 1000, 2000, 5000},
	})

	// DetectionDurationSeconds tracks the per-update processing latency.
	DetectionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "range_arb_detection_duration_seconds",
		Help:    "Duration of processing one top-of-book update",
		Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005},
	})

	// PrefixRecomputeDepth tracks how many child slots each recompute touched.
	PrefixRecomputeDepth = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "range_arb_prefix_recompute_depth",
		Help:    "Number of child slots touched per prefix recompute",
		Buckets: prometheus.LinearBuckets(1, 5, 10),
	})

	// GroupsTracked tracks live range groups.
	GroupsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "range_arb_groups_tracked",
		Help: "Number of live range groups",
	})

	// TrianglesTracked tracks live triangles across all groups.
	TrianglesTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "range_arb_triangles_tracked",
		Help: "Number of live triangles across all groups",
	})

	// OpportunitiesDroppedTotal tracks emissions lost to a full consumer.
	OpportunitiesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "range_arb_opportunities_dropped_total",
		Help: "Total number of opportunities dropped because the stream was full",
	})
)
