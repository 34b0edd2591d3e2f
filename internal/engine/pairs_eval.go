package engine

// pairCandidate is the scalar-only first phase of a binary pair evaluation.
type pairCandidate struct {
	strategy  Strategy
	profitAbs float64
	profitBps float64
	total     float64
}

// evaluatePair checks the directional strategies legal for one same-anchor
// pair. Complement pairs are mutually exclusive, so selling YES on both legs
// collects more than the single unit at risk; only an exhaustive complement
// (below against above) also supports buying both sides. Same-direction
// pairs settle identically, so YES of one against NO of the other replicates
// a sure unit in either ordering.
func (e *Engine) evaluatePair(gs *groupState, pi int, tsMs int64) {
	EvaluationsTotal.WithLabelValues("pair").Inc()

	p := &gs.pairs[pi]
	var best pairCandidate
	found := false

	consider := func(strategy Strategy, profit, total float64) {
		if !found || profit > best.profitAbs {
			base := total
			if strategy == StrategyPairSellBoth {
				base = 1.0
			}
			best = pairCandidate{
				strategy:  strategy,
				profitAbs: profit,
				profitBps: 10000 * profit / base,
				total:     total,
			}
			found = true
		}
	}

	switch p.kind {
	case pairComplement:
		if p.exhaustive && p.a.yes.BestAsk > 0 && p.b.yes.BestAsk > 0 {
			total := p.a.yes.BestAsk + p.b.yes.BestAsk
			consider(StrategyPairBuyBoth, 1.0-total, total)
		}
		if p.a.yes.BestBid > 0 && p.b.yes.BestBid > 0 {
			total := p.a.yes.BestBid + p.b.yes.BestBid
			consider(StrategyPairSellBoth, total-1.0, total)
		}
	case pairSameDirection:
		if p.a.yes.BestAsk > 0 && p.b.no.BestAsk > 0 {
			total := p.a.yes.BestAsk + p.b.no.BestAsk
			consider(StrategyPairBuyANoB, 1.0-total, total)
		}
		if p.b.yes.BestAsk > 0 && p.a.no.BestAsk > 0 {
			total := p.b.yes.BestAsk + p.a.no.BestAsk
			consider(StrategyPairBuyBNoA, 1.0-total, total)
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

	key := p.a.marketID + "|" + p.b.marketID + "|" + string(best.strategy)
	if e.onCooldown(gs, key) {
		return
	}

	opp := newOpportunity(best.strategy, gs.group.Key, tsMs)
	opp.Children = []LegSnapshot{
		pairLegSnapshot(&p.a, &p.a.yes, &p.a.no),
		pairLegSnapshot(&p.b, &p.b.yes, &p.b.no),
	}
	opp.ProfitAbs = best.profitAbs
	opp.ProfitBps = best.profitBps
	opp.Context = Context{Payout: 1.0}
	switch best.strategy {
	case StrategyPairSellBoth:
		opp.Context.TotalRevenue = best.total
	default:
		opp.Context.TotalCost = best.total
	}

	e.emit(opp)
}

// pairLegSnapshot flattens a pair leg into the emitted shape, reporting the
// YES token's book, or the NO token's book (asset id, prices, sizes and
// timestamp) when the YES side has never been quoted.
func pairLegSnapshot(l *pairLeg, yes, no *Snapshot) LegSnapshot {
	snap := LegSnapshot{
		MarketID:    l.marketID,
		Slug:        l.slug,
		Label:       l.label,
		AssetID:     yes.AssetID,
		BestBid:     yes.BestBid,
		BestAsk:     yes.BestAsk,
		BestBidSize: yes.BestBidSize,
		BestAskSize: yes.BestAskSize,
		TimestampMs: yes.TimestampMs,
	}
	if snap.TimestampMs == 0 && no.TimestampMs != 0 {
		snap.AssetID = no.AssetID
		snap.BestBid = no.BestBid
		snap.BestAsk = no.BestAsk
		snap.BestBidSize = no.BestBidSize
		snap.BestAskSize = no.BestAskSize
		snap.TimestampMs = no.TimestampMs
	}
	return snap
}
