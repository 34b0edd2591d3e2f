package engine

import "github.com/mselser95/range-arb/pkg/types"

// lastQuote is the per-asset last-seen state used for deduplication.
type lastQuote struct {
	bid float64
	ask float64
	ts  int64
}

// dirtyFilter drops non-monotonic timestamps and unchanged (bid, ask) pairs
// per asset so the evaluators only run on real deltas.
type dirtyFilter struct {
	last map[string]lastQuote
}

func newDirtyFilter() *dirtyFilter {
	return &dirtyFilter{last: make(map[string]lastQuote)}
}

// admit decides whether an update carries new information. Returns the drop
// reason when it does not. Timestamps must be strictly increasing per asset;
// an unchanged (bid, ask) pair still refreshes the stored timestamp.
func (f *dirtyFilter) admit(u *types.TopOfBookUpdate) (bool, string) {
	key := u.Key()
	prev, seen := f.last[key]

	if seen && u.TimestampMs <= prev.ts {
		return false, "stale"
	}

	if seen && u.BestBid == prev.bid && u.BestAsk == prev.ask {
		prev.ts = u.TimestampMs
		f.last[key] = prev
		return false, "unchanged"
	}

	f.last[key] = lastQuote{bid: u.BestBid, ask: u.BestAsk, ts: u.TimestampMs}
	return true, ""
}

// reset drops all per-asset state, e.g. across a structure swap.
func (f *dirtyFilter) reset() {
	f.last = make(map[string]lastQuote)
}
