package engine

import (
	"strconv"
	"strings"
)

// triangleCandidate is the scalar-only first phase of a triangle evaluation.
type triangleCandidate struct {
	index     int
	strategy  Strategy
	profitAbs float64
	profitBps float64
	total     float64 // ask total for BUY, bid total for SELL
	payout    float64
}

// evaluateTriangles runs the affected triangles of one group and emits at
// most the single best candidate for the cycle.
func (e *Engine) evaluateTriangles(gs *groupState, indices []int, tsMs int64) {
	var best triangleCandidate
	found := false

	for _, ti := range indices {
		e.triangleEvaluations++
		EvaluationsTotal.WithLabelValues("triangle").Inc()

		t := &gs.triangles[ti]
		payout := float64(len(t.chain) + 1)

		totalAsk, totalBid := 0.0, 0.0
		asksLive, bidsLive := true, true
		for li := range t.legs {
			leg := &t.legs[li]
			if leg.BestAsk > 0 {
				totalAsk += leg.BestAsk
			} else {
				asksLive = false
			}
			if leg.BestBid > 0 {
				totalBid += leg.BestBid
			} else {
				bidsLive = false
			}
		}

		if asksLive {
			profit := payout - totalAsk
			if !found || profit > best.profitAbs {
				best = triangleCandidate{
					index:     ti,
					strategy:  StrategyTriangleBuy,
					profitAbs: profit,
					profitBps: 10000 * profit / totalAsk,
					total:     totalAsk,
					payout:    payout,
				}
				found = true
			}
		}

		if e.cfg.TriangleSellEnabled && bidsLive {
			profit := totalBid - payout
			if !found || profit > best.profitAbs {
				best = triangleCandidate{
					index:     ti,
					strategy:  StrategyTriangleSell,
					profitAbs: profit,
					profitBps: 10000 * profit / payout,
					total:     totalBid,
					payout:    payout,
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

	t := &gs.triangles[best.index]
	if e.onCooldown(gs, triangleKey(gs.group.Key, t, best.strategy)) {
		return
	}

	group := gs.group
	opp := newOpportunity(best.strategy, group.Key, tsMs)
	parent := legSnapshot(&group.Parents[t.lowerParent], &t.legs[0])
	parentUpper := legSnapshot(&group.Parents[t.upperParent], &t.legs[1])
	opp.Parent = &parent
	opp.ParentUpper = &parentUpper
	opp.Children = make([]LegSnapshot, 0, len(t.chain))
	for k, ci := range t.chain {
		opp.Children = append(opp.Children, legSnapshot(&group.Children[ci], &t.legs[2+k]))
	}
	opp.ProfitAbs = best.profitAbs
	opp.ProfitBps = best.profitBps
	opp.Context = Context{ChainLength: len(t.chain), Payout: best.payout}
	if best.strategy == StrategyTriangleBuy {
		opp.Context.TotalCost = best.total
	} else {
		opp.Context.TotalRevenue = best.total
	}

	e.emit(opp)
}

func triangleKey(groupKey string, t *triangle, strategy Strategy) string {
	var sb strings.Builder
	sb.WriteString(groupKey)
	sb.WriteByte(':')
	sb.WriteString(strconv.Itoa(t.lowerParent))
	sb.WriteByte(':')
	sb.WriteString(strconv.Itoa(t.upperParent))
	sb.WriteByte(':')
	for k, ci := range t.chain {
		if k > 0 {
			sb.WriteByte('-')
		}
		sb.WriteString(strconv.Itoa(ci))
	}
	sb.WriteByte(':')
	sb.WriteString(string(strategy))
	return sb.String()
}
