package engine

import (
	"github.com/mselser95/range-arb/internal/structure"
	"github.com/mselser95/range-arb/pkg/types"
)

// Snapshot is the mutable top-of-book state of one token, updated in place.
// A zero bid or ask means "no quote on that side"; such a leg is stored but
// fails the validity check during evaluation.
type Snapshot struct {
	AssetID     string
	BestBid     float64
	BestAsk     float64
	BestBidSize float64
	BestAskSize float64
	TimestampMs int64
}

func (s *Snapshot) apply(u *types.TopOfBookUpdate) {
	if u.AssetID != "" {
		s.AssetID = u.AssetID
	}
	s.BestBid = u.BestBid
	s.BestAsk = u.BestAsk
	s.BestBidSize = u.BestBidSize
	s.BestAskSize = u.BestAskSize
	s.TimestampMs = u.TimestampMs
}

// twoSided reports whether the leg is executable on both sides.
func (s *Snapshot) twoSided() bool {
	return s.BestBid > 0 && s.BestAsk > 0
}

// triangle is a three-leg synthetic with constant payout: the lower parent's
// YES token, the upper parent's NO token, and the NO token of every child in
// the chain between the two anchors. Legs carry their own snapshots.
type triangle struct {
	lowerParent int
	upperParent int
	chain       []int
	// legs[0] = lower parent YES, legs[1] = upper parent NO,
	// legs[2+k] = chain[k] child NO.
	legs []Snapshot
}

type pairKind int

const (
	pairComplement pairKind = iota
	pairSameDirection
)

// pairLeg tracks both token snapshots of one market in a binary pair.
type pairLeg struct {
	marketID string
	slug     string
	label    string
	yes      Snapshot
	no       Snapshot
}

// binaryPair is a two-market combination anchored on the same value.
// exhaustive means the two YES outcomes partition the settlement space
// (a below market against an above market on the same anchor).
type binaryPair struct {
	kind       pairKind
	exhaustive bool
	a          pairLeg
	b          pairLeg
}

// groupState is the dense per-group hot-path state: snapshot arrays, the
// four prefix arrays, dependency maps, triangles, pairs and cooldowns.
type groupState struct {
	group *structure.RangeGroup

	childStates  []Snapshot
	parentStates []Snapshot

	askPrefix        []float64
	bidPrefix        []float64
	missingAskPrefix []int
	missingBidPrefix []int

	// childParents[i] lists the parents whose coverage contains child i.
	childParents [][]int

	triangles []triangle
	pairs     []binaryPair

	// cooldowns maps emit key to the last emission in engine-clock ms.
	cooldowns map[string]int64
}

// locator points into a group's dense arrays; cross-references are integer
// indices, never pointers, so group removal cannot dangle.
type locator struct {
	groupKey string
	role     structure.Role
	index    int
}

// triangleRef addresses one leg of one triangle.
type triangleRef struct {
	groupKey string
	triangle int
	leg      int
}

// pairRef addresses one of the four token snapshots of a binary pair.
// Legs are numbered aYes, aNo, bYes, bNo.
type pairRef struct {
	groupKey string
	pair     int
	leg      int
}

const (
	pairLegAYes = iota
	pairLegANo
	pairLegBYes
	pairLegBNo
)

func newGroupState(group *structure.RangeGroup) *groupState {
	n := len(group.Children)
	gs := &groupState{
		group:            group,
		childStates:      make([]Snapshot, n),
		parentStates:     make([]Snapshot, len(group.Parents)),
		askPrefix:        make([]float64, n+1),
		bidPrefix:        make([]float64, n+1),
		missingAskPrefix: make([]int, n+1),
		missingBidPrefix: make([]int, n+1),
		childParents:     make([][]int, n),
		cooldowns:        make(map[string]int64),
	}

	for i := range group.Children {
		gs.childStates[i].AssetID = group.Children[i].YesTokenID
	}
	for i := range group.Parents {
		gs.parentStates[i].AssetID = group.Parents[i].YesTokenID
	}

	// Unpriced children count as missing until their first quote.
	gs.recomputePrefixes(0)

	for pi, cov := range group.Coverage {
		if !cov.Anchored || cov.Empty() {
			continue
		}
		for ci := cov.Start; ci <= cov.End; ci++ {
			gs.childParents[ci] = append(gs.childParents[ci], pi)
		}
	}

	gs.buildTriangles()
	gs.buildPairs()

	return gs
}

// recomputePrefixes rescans childStates from the given index. The prefix
// arrays satisfy prefix[i+1] = prefix[i] + value_i, with the missing
// counters accumulating one per absent side.
func (gs *groupState) recomputePrefixes(from int) {
	for i := from; i < len(gs.childStates); i++ {
		s := &gs.childStates[i]

		gs.askPrefix[i+1] = gs.askPrefix[i]
		gs.missingAskPrefix[i+1] = gs.missingAskPrefix[i]
		if s.BestAsk > 0 {
			gs.askPrefix[i+1] += s.BestAsk
		} else {
			gs.missingAskPrefix[i+1]++
		}

		gs.bidPrefix[i+1] = gs.bidPrefix[i]
		gs.missingBidPrefix[i+1] = gs.missingBidPrefix[i]
		if s.BestBid > 0 {
			gs.bidPrefix[i+1] += s.BestBid
		} else {
			gs.missingBidPrefix[i+1]++
		}
	}
	if depth := len(gs.childStates) - from; depth > 0 {
		PrefixRecomputeDepth.Observe(float64(depth))
	}
}

// askSum returns the children ask total over the window [s, e]; false when
// any leg in the window has no ask.
func (gs *groupState) askSum(s, e int) (float64, bool) {
	if gs.missingAskPrefix[e+1]-gs.missingAskPrefix[s] != 0 {
		return 0, false
	}
	return gs.askPrefix[e+1] - gs.askPrefix[s], true
}

// bidSum is the bid-side counterpart of askSum.
func (gs *groupState) bidSum(s, e int) (float64, bool) {
	if gs.missingBidPrefix[e+1]-gs.missingBidPrefix[s] != 0 {
		return 0, false
	}
	return gs.bidPrefix[e+1] - gs.bidPrefix[s], true
}

// buildTriangles enumerates parent pairs and records every pair bridged by a
// contiguous child chain whose legs all carry both token ids.
func (gs *groupState) buildTriangles() {
	group := gs.group
	for lower := 0; lower < len(group.Parents); lower++ {
		for upper := lower + 1; upper < len(group.Parents); upper++ {
			chain, ok := gs.childChain(group.Parents[lower].Bounds.Lower, group.Parents[upper].Bounds.Lower)
			if !ok {
				continue
			}
			if group.Parents[lower].YesTokenID == "" || group.Parents[upper].NoTokenID == "" {
				continue
			}

			t := triangle{
				lowerParent: lower,
				upperParent: upper,
				chain:       chain,
				legs:        make([]Snapshot, 2+len(chain)),
			}
			t.legs[0].AssetID = group.Parents[lower].YesTokenID
			t.legs[1].AssetID = group.Parents[upper].NoTokenID
			for k, ci := range chain {
				t.legs[2+k].AssetID = group.Children[ci].NoTokenID
			}
			gs.triangles = append(gs.triangles, t)
		}
	}
}

// childChain returns the contiguous child indices starting at lowerBound and
// ending exactly at upperBound, requiring YES and NO token ids on every leg.
func (gs *groupState) childChain(lowerBound, upperBound float64) ([]int, bool) {
	children := gs.group.Children

	start := -1
	for i := range children {
		if structure.BoundsEqual(children[i].Bounds.Lower, lowerBound) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, false
	}

	var chain []int
	expect := lowerBound
	for i := start; i < len(children); i++ {
		if !structure.BoundsEqual(children[i].Bounds.Lower, expect) {
			return nil, false
		}
		if children[i].YesTokenID == "" || children[i].NoTokenID == "" {
			return nil, false
		}
		chain = append(chain, i)
		expect = children[i].Bounds.Upper
		if structure.BoundsEqual(expect, upperBound) {
			return chain, true
		}
		if expect > upperBound {
			return nil, false
		}
	}
	return nil, false
}

// buildPairs records same-anchor two-market combinations: a below market
// complementing a parent, a range child butting against a parent, and two
// parents sharing a lower bound.
func (gs *groupState) buildPairs() {
	group := gs.group

	newLeg := func(d *structure.Descriptor) pairLeg {
		leg := pairLeg{marketID: d.MarketID, slug: d.Slug, label: d.Label}
		leg.yes.AssetID = d.YesTokenID
		leg.no.AssetID = d.NoTokenID
		return leg
	}

	for pi := range group.Parents {
		parent := &group.Parents[pi]
		if parent.YesTokenID == "" || parent.NoTokenID == "" {
			continue
		}

		for bi := range group.Belows {
			below := &group.Belows[bi]
			if !structure.BoundsEqual(below.Bounds.Upper, parent.Bounds.Lower) || below.YesTokenID == "" || below.NoTokenID == "" {
				continue
			}
			gs.pairs = append(gs.pairs, binaryPair{
				kind:       pairComplement,
				exhaustive: true,
				a:          newLeg(parent),
				b:          newLeg(below),
			})
		}

		for ci := range group.Children {
			child := &group.Children[ci]
			if !structure.BoundsEqual(child.Bounds.Upper, parent.Bounds.Lower) || child.YesTokenID == "" || child.NoTokenID == "" {
				continue
			}
			gs.pairs = append(gs.pairs, binaryPair{
				kind: pairComplement,
				a:    newLeg(parent),
				b:    newLeg(child),
			})
		}

		for pj := pi + 1; pj < len(group.Parents); pj++ {
			other := &group.Parents[pj]
			if !structure.BoundsEqual(other.Bounds.Lower, parent.Bounds.Lower) || other.YesTokenID == "" || other.NoTokenID == "" {
				continue
			}
			gs.pairs = append(gs.pairs, binaryPair{
				kind: pairSameDirection,
				a:    newLeg(parent),
				b:    newLeg(other),
			})
		}
	}
}

func (gs *groupState) pairSnapshot(ref pairRef) *Snapshot {
	p := &gs.pairs[ref.pair]
	switch ref.leg {
	case pairLegAYes:
		return &p.a.yes
	case pairLegANo:
		return &p.a.no
	case pairLegBYes:
		return &p.b.yes
	default:
		return &p.b.no
	}
}

// legSnapshot renders a descriptor plus its live snapshot into the shape
// emitted on the opportunity stream.
func legSnapshot(d *structure.Descriptor, s *Snapshot) LegSnapshot {
	return LegSnapshot{
		MarketID:    d.MarketID,
		Slug:        d.Slug,
		Label:       d.Label,
		AssetID:     s.AssetID,
		BestBid:     s.BestBid,
		BestAsk:     s.BestAsk,
		BestBidSize: s.BestBidSize,
		BestAskSize: s.BestAskSize,
		TimestampMs: s.TimestampMs,
	}
}
