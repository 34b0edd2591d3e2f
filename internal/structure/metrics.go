package structure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GroupsBuilt tracks the number of range groups in the last build.
	GroupsBuilt = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "range_arb_structure_groups",
		Help: "Number of range groups produced by the last structure build",
	})

	// ParseFailuresTotal tracks markets the interval parser could not classify.
	ParseFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "range_arb_structure_parse_failures_total",
		Help: "Total number of markets classified as unknown",
	})

	// OverridesAppliedTotal tracks override rule applications.
	OverridesAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "range_arb_structure_overrides_applied_total",
		Help: "Total number of override rules applied during structure builds",
	})
)
