package storage

import (
	"context"

	"github.com/mselser95/range-arb/internal/engine"
)

// Storage is the consumer-side sink for the opportunity stream.
type Storage interface {
	// StoreOpportunity persists one detected opportunity.
	StoreOpportunity(ctx context.Context, opp *engine.Opportunity) error

	// Close closes the storage connection.
	Close() error
}
