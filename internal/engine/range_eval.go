package engine

import (
	"github.com/mselser95/range-arb/internal/structure"
)

// rangeCandidate is the scalar-only first phase of a range evaluation; the
// Opportunity record is materialised only after every gate passes.
type rangeCandidate struct {
	strategy  Strategy
	upper     int
	windowEnd int
	profitAbs float64
	profitBps float64
	base      float64 // cost for unbundling, parent-lower ask for bundling
}

// evaluateRangeParent assesses every (parent-lower, parent-upper, children)
// combination rooted at the given lower parent and emits at most the best
// candidate across all upper parents and both directions.
func (e *Engine) evaluateRangeParent(gs *groupState, iL int, tsMs int64) {
	e.rangeEvaluations++
	EvaluationsTotal.WithLabelValues("range").Inc()

	group := gs.group
	cov := group.Coverage[iL]
	if !cov.Anchored || cov.Empty() {
		return
	}

	pLow := &gs.parentStates[iL]
	s := cov.Start
	var best rangeCandidate
	found := false

	for iU := iL + 1; iU < len(group.Parents); iU++ {
		ew := group.Coverage[iU].Start - 1
		if ew < s || ew > cov.End {
			continue
		}
		// The window must decompose exactly: the last child's upper bound is
		// the upper parent's anchor, otherwise the replica has a hole.
		if !structure.BoundsEqual(group.Children[ew].Bounds.Upper, group.Parents[iU].Bounds.Lower) {
			continue
		}

		pUp := &gs.parentStates[iU]

		// Unbundling: sell the lower parent, buy the children and the upper
		// parent. Every leg used must carry a live quote on its side.
		if sumAsk, ok := gs.askSum(s, ew); ok && pLow.BestBid > 0 && pUp.BestAsk > 0 {
			totalCost := sumAsk + pUp.BestAsk
			profit := pLow.BestBid - totalCost
			if !found || profit > best.profitAbs {
				best = rangeCandidate{
					strategy:  StrategySellParentBuyChildren,
					upper:     iU,
					windowEnd: ew,
					profitAbs: profit,
					profitBps: 10000 * profit / totalCost,
					base:      totalCost,
				}
				found = true
			}
		}

		// Bundling: buy the lower parent, sell the children and the upper
		// parent.
		if sumBid, ok := gs.bidSum(s, ew); ok && pLow.BestAsk > 0 && pUp.BestBid > 0 {
			totalRevenue := sumBid + pUp.BestBid
			profit := totalRevenue - pLow.BestAsk
			if !found || profit > best.profitAbs {
				best = rangeCandidate{
					strategy:  StrategyBuyParentSellChildren,
					upper:     iU,
					windowEnd: ew,
					profitAbs: profit,
					profitBps: 10000 * profit / pLow.BestAsk,
					base:      pLow.BestAsk,
				}
				found = true
			}
		}
	}

	if !found {
		return
	}
	if best.profitAbs <= 0 {
		return
	}
	if best.profitBps < float64(e.cfg.MinProfitBps) || best.profitAbs < e.cfg.MinProfitAbs {
		OpportunitiesRejectedTotal.WithLabelValues("below_threshold").Inc()
		return
	}

	key := group.Parents[iL].MarketID + "|" + group.Parents[best.upper].MarketID + "|" + string(best.strategy)
	if e.onCooldown(gs, key) {
		return
	}

	opp := newOpportunity(best.strategy, group.Key, tsMs)
	parent := legSnapshot(&group.Parents[iL], pLow)
	parentUpper := legSnapshot(&group.Parents[best.upper], &gs.parentStates[best.upper])
	opp.Parent = &parent
	opp.ParentUpper = &parentUpper
	opp.Children = make([]LegSnapshot, 0, best.windowEnd-s+1)
	for ci := s; ci <= best.windowEnd; ci++ {
		opp.Children = append(opp.Children, legSnapshot(&group.Children[ci], &gs.childStates[ci]))
	}
	opp.ProfitAbs = best.profitAbs
	opp.ProfitBps = best.profitBps
	opp.Context = Context{WindowStart: s, WindowEnd: best.windowEnd}
	if best.strategy == StrategySellParentBuyChildren {
		opp.Context.TotalCost = best.base
	} else {
		opp.Context.TotalRevenue = best.base + best.profitAbs
	}

	e.emit(opp)
}
