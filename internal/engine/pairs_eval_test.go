package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplementPairBuyBoth(t *testing.T) {
	e := newTestEngine(t, Config{BinaryPairsEnabled: true})
	e.ApplyStructure(buildGroups(t,
		belowRecord("btc", 80),
		aboveRecord("btc", 80),
	))

	ts := int64(100)
	push(e, "btc-below-80-yes", 0.35, 0.40, ts)
	ts++
	push(e, "btc-above-80-yes", 0.50, 0.55, ts)

	opps := drain(e)
	require.Len(t, opps, 1)
	opp := opps[0]

	// The two YES outcomes partition the settlement space: buying both
	// costs 0.95 against a sure payout of 1.
	assert.Equal(t, StrategyPairBuyBoth, opp.Strategy)
	assert.InDelta(t, 0.05, opp.ProfitAbs, 1e-9)
	assert.InDelta(t, 10000*0.05/0.95, opp.ProfitBps, 0.5)
	assert.Len(t, opp.Children, 2)
	assert.Equal(t, 1.0, opp.Context.Payout)
}

func TestComplementPairSellBoth(t *testing.T) {
	e := newTestEngine(t, Config{BinaryPairsEnabled: true})
	e.ApplyStructure(buildGroups(t,
		belowRecord("btc", 80),
		aboveRecord("btc", 80),
	))

	ts := int64(100)
	push(e, "btc-below-80-yes", 0.55, 0.60, ts)
	ts++
	push(e, "btc-above-80-yes", 0.52, 0.57, ts)

	opps := drain(e)
	require.Len(t, opps, 1)
	opp := opps[0]

	// Bids sum to 1.07: selling both collects 0.07 over the single unit
	// that settles. SellBoth (0.07) beats BuyBoth (1 - 1.17 < 0).
	assert.Equal(t, StrategyPairSellBoth, opp.Strategy)
	assert.InDelta(t, 0.07, opp.ProfitAbs, 1e-9)
}

func TestSameDirectionPair(t *testing.T) {
	e := newTestEngine(t, Config{BinaryPairsEnabled: true})

	// Two above markets on the same anchor from different events, plus a
	// child ladder so the anchor filter keeps them.
	second := aboveRecord("btc", 80)
	second.Slug = "btc-over-80"
	second.MarketID = "btc-over-80-id"
	second.ClobTokenIDs = [2]string{"btc-over-80-yes", "btc-over-80-no"}
	second.EventSlug = "btc-over-80-event"

	e.ApplyStructure(buildGroups(t,
		rangeRecord("btc", 78, 80),
		aboveRecord("btc", 80),
		second,
	))

	ts := int64(100)
	push(e, "btc-above-80-yes", 0.48, 0.50, ts)
	ts++
	push(e, "btc-over-80-no", 0.42, 0.45, ts)

	opps := drain(e)
	require.Len(t, opps, 1)
	opp := opps[0]

	// Same outcome on both markets: YES of one against NO of the other
	// pays exactly one unit; 0.50 + 0.45 = 0.95 in costs.
	assert.Equal(t, StrategyPairBuyANoB, opp.Strategy)
	assert.InDelta(t, 0.05, opp.ProfitAbs, 1e-9)
}

func TestPairsDisabledDoesNotAffectCore(t *testing.T) {
	e := newTestEngine(t, Config{BinaryPairsEnabled: false})
	e.ApplyStructure(buildGroups(t,
		belowRecord("btc", 80),
		rangeRecord("btc", 80, 82),
		rangeRecord("btc", 82, 84),
		aboveRecord("btc", 80),
		aboveRecord("btc", 84),
	))

	ts := int64(100)
	// A pair-profitable book emits nothing with pairs disabled.
	push(e, "btc-below-80-yes", 0.35, 0.40, ts)
	ts++
	push(e, "btc-above-80-yes", 0.50, 0.55, ts)
	ts++
	assert.Empty(t, drain(e))

	// The range path is untouched by the flag.
	push(e, "btc-between-80-and-82-yes", 0, 0.30, ts)
	ts++
	push(e, "btc-between-82-and-84-yes", 0, 0.30, ts)
	ts++
	push(e, "btc-above-84-yes", 0, 0.20, ts)
	ts++
	push(e, "btc-above-80-yes", 0.95, 0.99, ts)

	opps := drain(e)
	require.Len(t, opps, 1)
	assert.Equal(t, StrategySellParentBuyChildren, opps[0].Strategy)
	assert.InDelta(t, 0.15, opps[0].ProfitAbs, 1e-9)
}

func TestPairCooldown(t *testing.T) {
	e := newTestEngine(t, Config{BinaryPairsEnabled: true})
	e.ApplyStructure(buildGroups(t,
		belowRecord("btc", 80),
		aboveRecord("btc", 80),
	))

	ts := int64(100)
	push(e, "btc-below-80-yes", 0.35, 0.40, ts)
	ts++
	push(e, "btc-above-80-yes", 0.50, 0.55, ts)
	ts++
	require.Len(t, drain(e), 1)

	push(e, "btc-above-80-yes", 0.50, 0.54, ts)
	ts++
	assert.Empty(t, drain(e), "same key inside the cooldown window")
}
