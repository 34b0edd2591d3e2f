package metadata

import (
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/mselser95/range-arb/pkg/types"
	"go.uber.org/zap"
)

// RecordCache keeps the latest structure snapshot addressable by slug, so
// the debug API can answer lookups without touching the Gamma API.
type RecordCache struct {
	cache  *ristretto.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewRecordCache creates a ristretto-backed record cache.
func NewRecordCache(logger *zap.Logger) (*RecordCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100000, // 10x expected max items
		MaxCost:     10000,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	return &RecordCache{
		cache:  cache,
		ttl:    2 * time.Hour,
		logger: logger,
	}, nil
}

// Put stores a batch of records keyed by slug.
func (r *RecordCache) Put(records []types.MarketRecord) {
	for i := range records {
		r.cache.SetWithTTL(records[i].Slug, records[i], 1, r.ttl)
	}
	r.logger.Debug("record-cache-filled", zap.Int("count", len(records)))
}

// GetBySlug returns the cached record for a market slug.
func (r *RecordCache) GetBySlug(slug string) (types.MarketRecord, bool) {
	value, found := r.cache.Get(slug)
	if !found {
		CacheMissesTotal.Inc()
		return types.MarketRecord{}, false
	}
	CacheHitsTotal.Inc()

	rec, ok := value.(types.MarketRecord)
	return rec, ok
}

// Close releases cache resources.
func (r *RecordCache) Close() {
	r.cache.Close()
}
