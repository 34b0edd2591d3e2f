package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Strategy tags the arbitrage shape of an opportunity.
type Strategy string

const (
	// StrategySellParentBuyChildren is range unbundling: collect the lower
	// parent's bid, pay for the covering children plus the upper parent.
	StrategySellParentBuyChildren Strategy = "SELL_PARENT_BUY_CHILDREN"
	// StrategyBuyParentSellChildren is range bundling, the mirror.
	StrategyBuyParentSellChildren Strategy = "BUY_PARENT_SELL_CHILDREN"
	// StrategyTriangleBuy buys lower-YES + upper-NO + every chain child NO.
	StrategyTriangleBuy Strategy = "POLYMARKET_TRIANGLE_BUY"
	// StrategyTriangleSell is the mirror of StrategyTriangleBuy.
	StrategyTriangleSell Strategy = "POLYMARKET_TRIANGLE_SELL"
	// StrategyPairBuyBoth buys YES on both legs of an exhaustive complement pair.
	StrategyPairBuyBoth Strategy = "BINARY_PAIR_BUY_BOTH"
	// StrategyPairSellBoth sells YES on both legs of a complement pair.
	StrategyPairSellBoth Strategy = "BINARY_PAIR_SELL_BOTH"
	// StrategyPairBuyANoB buys leg A YES against leg B NO on a same-direction pair.
	StrategyPairBuyANoB Strategy = "BINARY_PAIR_BUY_A_NO_B"
	// StrategyPairBuyBNoA buys leg B YES against leg A NO on a same-direction pair.
	StrategyPairBuyBNoA Strategy = "BINARY_PAIR_BUY_B_NO_A"
)

// LegSnapshot is the top-of-book state of one leg at detection time.
type LegSnapshot struct {
	MarketID    string
	Slug        string
	Label       string
	AssetID     string
	BestBid     float64
	BestAsk     float64
	BestBidSize float64
	BestAskSize float64
	TimestampMs int64
}

// Context carries strategy-specific detail for an opportunity.
type Context struct {
	WindowStart  int     `json:"window_start,omitempty"`
	WindowEnd    int     `json:"window_end,omitempty"`
	TotalCost    float64 `json:"total_cost,omitempty"`
	TotalRevenue float64 `json:"total_revenue,omitempty"`
	ChainLength  int     `json:"chain_length,omitempty"`
	Payout       float64 `json:"payout,omitempty"`
}

// Opportunity is one riskless combination that cleared the profit threshold.
// The core does not persist these; consumers decide what to store.
type Opportunity struct {
	ID          string
	Strategy    Strategy
	GroupKey    string
	Parent      *LegSnapshot
	ParentUpper *LegSnapshot
	Children    []LegSnapshot
	ProfitAbs   float64
	ProfitBps   float64
	TimestampMs int64
	DetectedAt  time.Time
	Context     Context
}

func newOpportunity(strategy Strategy, groupKey string, timestampMs int64) *Opportunity {
	return &Opportunity{
		ID:          uuid.New().String(),
		Strategy:    strategy,
		GroupKey:    groupKey,
		TimestampMs: timestampMs,
		DetectedAt:  time.Now(),
	}
}

// String returns a compact human-readable summary.
func (o *Opportunity) String() string {
	return fmt.Sprintf("Opportunity[%s] %s group=%s profit=%.4f (%.0f bps) legs=%d",
		o.ID[:8], o.Strategy, o.GroupKey, o.ProfitAbs, o.ProfitBps, len(o.Children))
}
