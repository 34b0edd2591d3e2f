package engine

import (
	"testing"
	"time"

	"github.com/mselser95/range-arb/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testEngine wraps an engine with a controllable millisecond clock.
// Tests drive OnUpdate directly, which matches the single-executor model.
type testEngine struct {
	*Engine
	clock int64
}

func newTestEngine(t *testing.T, cfg Config) *testEngine {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = time.Second
	}
	if cfg.MinProfitBps == 0 {
		cfg.MinProfitBps = 5
	}

	te := &testEngine{Engine: New(cfg), clock: 1_000_000}
	te.Engine.nowMs = func() int64 { return te.clock }
	return te
}

func (te *testEngine) advance(d time.Duration) {
	te.clock += d.Milliseconds()
}

func push(e *testEngine, assetID string, bid, ask float64, ts int64) {
	e.OnUpdate(&types.TopOfBookUpdate{
		AssetID:     assetID,
		BestBid:     bid,
		BestAsk:     ask,
		BestBidSize: 100,
		BestAskSize: 100,
		TimestampMs: ts,
	})
}

func drain(e *testEngine) []*Opportunity {
	var opps []*Opportunity
	for {
		select {
		case opp := <-e.out:
			opps = append(opps, opp)
		default:
			return opps
		}
	}
}

func TestDirtyFilter(t *testing.T) {
	f := newDirtyFilter()

	u := &types.TopOfBookUpdate{AssetID: "a", BestBid: 0.4, BestAsk: 0.6, TimestampMs: 10}
	ok, _ := f.admit(u)
	assert.True(t, ok, "first update must pass")

	// Non-monotonic timestamp.
	ok, reason := f.admit(&types.TopOfBookUpdate{AssetID: "a", BestBid: 0.5, BestAsk: 0.6, TimestampMs: 10})
	assert.False(t, ok)
	assert.Equal(t, "stale", reason)

	// Unchanged prices: dropped, timestamp refreshed.
	ok, reason = f.admit(&types.TopOfBookUpdate{AssetID: "a", BestBid: 0.4, BestAsk: 0.6, TimestampMs: 20})
	assert.False(t, ok)
	assert.Equal(t, "unchanged", reason)
	assert.Equal(t, int64(20), f.last["a"].ts, "timestamp must be refreshed")

	// The refreshed timestamp now gates older updates.
	ok, _ = f.admit(&types.TopOfBookUpdate{AssetID: "a", BestBid: 0.5, BestAsk: 0.6, TimestampMs: 15})
	assert.False(t, ok)

	// Changed price with newer timestamp passes and the stored timestamp
	// strictly increases.
	before := f.last["a"].ts
	ok, _ = f.admit(&types.TopOfBookUpdate{AssetID: "a", BestBid: 0.5, BestAsk: 0.6, TimestampMs: 30})
	assert.True(t, ok)
	assert.Greater(t, f.last["a"].ts, before)

	// Independent per asset.
	ok, _ = f.admit(&types.TopOfBookUpdate{AssetID: "b", BestBid: 0.4, BestAsk: 0.6, TimestampMs: 5})
	assert.True(t, ok)
}

func TestDirtyFilterKeyFallback(t *testing.T) {
	f := newDirtyFilter()

	u := &types.TopOfBookUpdate{MarketSlug: "slug-only", BestBid: 0.4, BestAsk: 0.6, TimestampMs: 10}
	ok, _ := f.admit(u)
	assert.True(t, ok)

	ok, _ = f.admit(&types.TopOfBookUpdate{MarketSlug: "slug-only", BestBid: 0.4, BestAsk: 0.6, TimestampMs: 11})
	assert.False(t, ok, "same slug must deduplicate")
}

// Scenario S1: unbundling a ladder between two parents.
func TestSimpleUnbundling(t *testing.T) {
	e := newTestEngine(t, Config{})
	e.ApplyStructure(buildGroups(t,
		rangeRecord("btc", 80, 82),
		rangeRecord("btc", 82, 84),
		rangeRecord("btc", 84, 86),
		aboveRecord("btc", 80),
		aboveRecord("btc", 86),
	))

	ts := int64(100)
	for _, slug := range []string{"btc-between-80-and-82", "btc-between-82-and-84", "btc-between-84-and-86"} {
		push(e, slug+"-yes", 0, 0.30, ts)
		ts++
	}
	push(e, "btc-above-86-yes", 0, 0.20, ts)
	ts++

	// Parent-lower bid below the replica cost: no emission.
	push(e, "btc-above-80-yes", 0.95, 0, ts)
	ts++
	assert.Empty(t, drain(e))

	// Bid above the replica cost: exactly one unbundling opportunity.
	push(e, "btc-above-80-yes", 1.15, 0, ts)
	ts++

	opps := drain(e)
	require.Len(t, opps, 1)
	opp := opps[0]

	assert.Equal(t, StrategySellParentBuyChildren, opp.Strategy)
	assert.InDelta(t, 0.05, opp.ProfitAbs, 1e-9)
	assert.InDelta(t, 10000*0.05/1.10, opp.ProfitBps, 0.5)
	require.NotNil(t, opp.Parent)
	require.NotNil(t, opp.ParentUpper)
	assert.Equal(t, "btc-above-80", opp.Parent.Slug)
	assert.Equal(t, "btc-above-86", opp.ParentUpper.Slug)
	assert.Len(t, opp.Children, 3)
	assert.InDelta(t, 1.10, opp.Context.TotalCost, 1e-9)
}

// Scenario S2: repeated profitable updates inside the cooldown window emit
// exactly once; after the window expires they emit again.
func TestCooldownSuppression(t *testing.T) {
	e := newTestEngine(t, Config{})
	e.ApplyStructure(buildGroups(t,
		rangeRecord("btc", 80, 82),
		rangeRecord("btc", 82, 84),
		rangeRecord("btc", 84, 86),
		aboveRecord("btc", 80),
		aboveRecord("btc", 86),
	))

	ts := int64(100)
	for _, slug := range []string{"btc-between-80-and-82", "btc-between-82-and-84", "btc-between-84-and-86"} {
		push(e, slug+"-yes", 0, 0.30, ts)
		ts++
	}
	push(e, "btc-above-86-yes", 0, 0.20, ts)
	ts++

	// Five profitable ticks in quick succession; the bid has to wiggle so
	// the dirty filter admits each one.
	bids := []float64{1.15, 1.16, 1.15, 1.16, 1.15}
	for _, bid := range bids {
		push(e, "btc-above-80-yes", bid, 0, ts)
		ts++
	}
	assert.Len(t, drain(e), 1, "cooldown must suppress repeats")

	// After the cooldown expires the same key emits again.
	e.advance(2 * time.Second)
	push(e, "btc-above-80-yes", 1.16, 0, ts)
	assert.Len(t, drain(e), 1)
}

// Scenario S3: a zero ask makes the combination non-executable.
func TestMissingPriceBlocksEmission(t *testing.T) {
	e := newTestEngine(t, Config{})
	e.ApplyStructure(buildGroups(t,
		rangeRecord("btc", 80, 82),
		rangeRecord("btc", 82, 84),
		rangeRecord("btc", 84, 86),
		aboveRecord("btc", 80),
		aboveRecord("btc", 86),
	))

	ts := int64(100)
	for _, slug := range []string{"btc-between-80-and-82", "btc-between-82-and-84", "btc-between-84-and-86"} {
		push(e, slug+"-yes", 0, 0.30, ts)
		ts++
	}
	push(e, "btc-above-86-yes", 0, 0.20, ts)
	ts++
	push(e, "btc-above-80-yes", 1.15, 0, ts)
	ts++
	require.Len(t, drain(e), 1, "sanity: profitable state emits")

	// Drop the parent-upper ask to zero (no quote).
	push(e, "btc-above-86-yes", 0, 0, ts)
	ts++

	// Re-trigger the lower parent outside the cooldown window.
	e.advance(2 * time.Second)
	push(e, "btc-above-80-yes", 1.16, 0, ts)
	ts++

	assert.Empty(t, drain(e), "missing upper ask must block emission")
}

// Scenario S5: a child outside every parent's anchored coverage never
// triggers the range evaluator.
func TestTargetedScanSkipsUncoveredChild(t *testing.T) {
	e := newTestEngine(t, Config{})
	e.ApplyStructure(buildGroups(t,
		rangeRecord("btc", 80, 82),
		rangeRecord("btc", 82, 84),
		rangeRecord("btc", 90, 92), // disconnected from the ladder
		aboveRecord("btc", 80),
		aboveRecord("btc", 84),
	))

	ts := int64(100)
	push(e, "btc-between-80-and-82-yes", 0.28, 0.30, ts)
	ts++
	evalsBefore := e.RangeEvaluations()
	require.Greater(t, evalsBefore, int64(0), "covered child must trigger evaluation")

	push(e, "btc-between-90-and-92-yes", 0.10, 0.12, ts)
	assert.Equal(t, evalsBefore, e.RangeEvaluations(),
		"uncovered child must not trigger range evaluation")
}

// Scenario S6: after a structure swap removes a group, no opportunity with
// its key is emitted.
func TestStructureSwapDropsRemovedGroup(t *testing.T) {
	e := newTestEngine(t, Config{})

	btc := []types.MarketRecord{
		rangeRecord("btc", 80, 82),
		rangeRecord("btc", 82, 84),
		aboveRecord("btc", 80),
		aboveRecord("btc", 84),
	}
	eth := []types.MarketRecord{
		rangeRecord("eth", 3200, 3400),
		rangeRecord("eth", 3400, 3600),
		aboveRecord("eth", 3200),
		aboveRecord("eth", 3600),
	}

	e.ApplyStructure(buildGroups(t, append(append([]types.MarketRecord{}, btc...), eth...)...))
	require.Equal(t, 2, e.GroupCount())

	// Make the eth group profitable: it emits before the swap.
	ts := int64(100)
	push(e, "eth-between-3200-and-3400-yes", 0, 0.30, ts)
	ts++
	push(e, "eth-between-3400-and-3600-yes", 0, 0.30, ts)
	ts++
	push(e, "eth-above-3600-yes", 0, 0.10, ts)
	ts++
	push(e, "eth-above-3200-yes", 1.20, 0, ts)
	ts++
	require.Len(t, drain(e), 1)

	// Swap to a structure without the eth group.
	e.ApplyStructure(buildGroups(t, btc...))
	require.Equal(t, 1, e.GroupCount())

	e.advance(5 * time.Second)
	push(e, "eth-above-3200-yes", 1.25, 0, ts)
	ts++
	push(e, "eth-between-3200-and-3400-yes", 0, 0.29, ts)

	for _, opp := range drain(e) {
		assert.NotContains(t, opp.GroupKey, "eth", "removed group must not emit")
	}
}

func TestExpireGroupsPurgesLocators(t *testing.T) {
	e := newTestEngine(t, Config{})
	groups := buildGroups(t,
		rangeRecord("btc", 80, 82),
		rangeRecord("btc", 82, 84),
		aboveRecord("btc", 80),
		aboveRecord("btc", 84),
	)
	e.ApplyStructure(groups)
	groupKey := groups[0].Key

	require.NotEmpty(t, e.tokenIndex)
	require.NotEmpty(t, e.triangleTokens)

	e.ExpireGroups([]string{groupKey})

	assert.Empty(t, e.groups)
	assert.Empty(t, e.tokenIndex)
	assert.Empty(t, e.slugIndex)
	assert.Empty(t, e.marketIDIndex)
	assert.Empty(t, e.triangleTokens)

	// Updates for the purged group are routed nowhere and emit nothing.
	push(e, "btc-above-80-yes", 1.20, 0, 500)
	assert.Empty(t, drain(e))
}

func TestBelowThresholdRejected(t *testing.T) {
	e := newTestEngine(t, Config{MinProfitBps: 500})
	e.ApplyStructure(buildGroups(t,
		rangeRecord("btc", 80, 82),
		rangeRecord("btc", 82, 84),
		aboveRecord("btc", 80),
		aboveRecord("btc", 84),
	))

	ts := int64(100)
	push(e, "btc-between-80-and-82-yes", 0, 0.30, ts)
	ts++
	push(e, "btc-between-82-and-84-yes", 0, 0.30, ts)
	ts++
	push(e, "btc-above-84-yes", 0, 0.20, ts)
	ts++
	// 125 bps profit, below the 500 bps floor.
	push(e, "btc-above-80-yes", 0.81, 0, ts)

	assert.Empty(t, drain(e))
}

func TestMinProfitAbsRejected(t *testing.T) {
	e := newTestEngine(t, Config{MinProfitAbs: 0.10})
	e.ApplyStructure(buildGroups(t,
		rangeRecord("btc", 80, 82),
		rangeRecord("btc", 82, 84),
		aboveRecord("btc", 80),
		aboveRecord("btc", 84),
	))

	ts := int64(100)
	push(e, "btc-between-80-and-82-yes", 0, 0.30, ts)
	ts++
	push(e, "btc-between-82-and-84-yes", 0, 0.30, ts)
	ts++
	push(e, "btc-above-84-yes", 0, 0.20, ts)
	ts++
	// 0.05 absolute profit, below the 0.10 floor.
	push(e, "btc-above-80-yes", 0.85, 0, ts)

	assert.Empty(t, drain(e))
}

func TestBundlingDirection(t *testing.T) {
	e := newTestEngine(t, Config{})
	e.ApplyStructure(buildGroups(t,
		rangeRecord("btc", 80, 82),
		rangeRecord("btc", 82, 84),
		aboveRecord("btc", 80),
		aboveRecord("btc", 84),
	))

	ts := int64(100)
	// Children and upper parent rich on the bid side; lower parent cheap to
	// buy: buy the parent, sell the replica.
	push(e, "btc-between-80-and-82-yes", 0.40, 0.42, ts)
	ts++
	push(e, "btc-between-82-and-84-yes", 0.40, 0.42, ts)
	ts++
	push(e, "btc-above-84-yes", 0.30, 0.32, ts)
	ts++
	push(e, "btc-above-80-yes", 0.98, 1.00, ts)

	opps := drain(e)
	require.Len(t, opps, 1)
	opp := opps[0]

	assert.Equal(t, StrategyBuyParentSellChildren, opp.Strategy)
	// Revenue 0.40+0.40+0.30 = 1.10 against a 1.00 ask.
	assert.InDelta(t, 0.10, opp.ProfitAbs, 1e-9)
	assert.InDelta(t, 10000*0.10/1.00, opp.ProfitBps, 0.5)
}
