package metadata

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsFetched tracks the size of the last structure snapshot.
	RecordsFetched = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "range_arb_metadata_records_fetched",
		Help: "Number of market records in the last structure snapshot",
	})

	// RecordsSkippedTotal tracks markets rejected during conversion.
	RecordsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "range_arb_metadata_records_skipped_total",
		Help: "Total number of Gamma markets skipped (missing token pair)",
	})

	// CacheHitsTotal tracks record cache hits.
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "range_arb_metadata_cache_hits_total",
		Help: "Total number of record cache hits",
	})

	// CacheMissesTotal tracks record cache misses.
	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "range_arb_metadata_cache_misses_total",
		Help: "Total number of record cache misses",
	})
)
