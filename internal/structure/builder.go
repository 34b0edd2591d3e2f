package structure

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mselser95/range-arb/internal/interval"
	"github.com/mselser95/range-arb/pkg/types"
	"go.uber.org/zap"
)

const settlementSentinel = "unscheduled"

// Builder turns a structure snapshot into range groups.
type Builder struct {
	overrides interval.Overrides
	logger    *zap.Logger
}

// NewBuilder creates a structure builder with an optional override table.
func NewBuilder(overrides interval.Overrides, logger *zap.Logger) *Builder {
	return &Builder{overrides: overrides, logger: logger}
}

// Build groups the given market records by (symbol, settlement time),
// classifies each as parent or child, and derives step and coverage.
// Records with an end date in the past are skipped.
func (b *Builder) Build(records []types.MarketRecord, now time.Time) []*RangeGroup {
	groups := make(map[string]*RangeGroup)

	for i := range records {
		rec := &records[i]
		if !rec.EndDate.IsZero() && !rec.EndDate.After(now) {
			continue
		}

		desc, groupKey, settlement, settlementKey, symbol := b.classify(rec)

		group, ok := groups[groupKey]
		if !ok {
			group = &RangeGroup{
				Key:            groupKey,
				Symbol:         symbol,
				SettlementKey:  settlementKey,
				SettlementTime: settlement,
			}
			groups[groupKey] = group
		}

		if desc.Kind == interval.KindUnknown {
			group.Unmatched = append(group.Unmatched, desc)
			ParseFailuresTotal.Inc()
			continue
		}

		// Staged on Unmatched until roles are resolved below.
		group.Unmatched = append(group.Unmatched, desc)
	}

	out := make([]*RangeGroup, 0, len(groups))
	for _, group := range groups {
		b.assemble(group)
		out = append(out, group)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	GroupsBuilt.Set(float64(len(out)))
	return out
}

// classify parses one record into a descriptor and derives its group key.
func (b *Builder) classify(rec *types.MarketRecord) (Descriptor, string, time.Time, string, string) {
	symbol := firstNonEmpty(rec.SymbolHint, rec.EventTicker, rec.EventSlug, rec.Slug)
	symbol = strings.ToLower(symbol)

	settlement := rec.EndDate
	if settlement.IsZero() {
		settlement = rec.EventEndDate
	}
	settlementKey := settlementSentinel
	if !settlement.IsZero() {
		settlementKey = settlement.UTC().Format("2006-01-02T15:04:05.000Z")
	}
	groupKey := symbol + "-" + settlementKey

	parsed, _ := interval.Parse(rec.Question, rec.Slug)

	rule, matched := b.matchOverride(rec, groupKey)
	if matched {
		if rule.Symbol != "" {
			symbol = strings.ToLower(rule.Symbol)
			groupKey = symbol + "-" + settlementKey
		}
		rule.Apply(&parsed)
		if inconsistent(parsed) {
			serr := &StructureError{GroupKey: groupKey, Market: rec.Slug, Reason: "override yields inconsistent bounds"}
			b.logger.Warn("override-inconsistent", zap.String("rule", rule.Name), zap.Error(serr))
			parsed.Kind = interval.KindUnknown
		} else {
			b.logger.Debug("override-applied",
				zap.String("rule", rule.Name),
				zap.String("market-slug", rec.Slug),
				zap.String("kind", parsed.Kind.String()))
			OverridesAppliedTotal.Inc()
		}
	}

	desc := Descriptor{
		MarketID:   rec.MarketID,
		Slug:       rec.Slug,
		Question:   rec.Question,
		YesTokenID: rec.YesTokenID(),
		NoTokenID:  rec.NoTokenID(),
		Kind:       parsed.Kind,
		Bounds:     parsed.Bounds,
		Label:      parsed.Label,
		EventSlug:  rec.EventSlug,
		Symbol:     symbol,
		NegRisk:    rec.NegRisk,
	}
	if matched && rule.Role == "parent" {
		desc.Role = RoleParent
	}

	return desc, groupKey, settlement, settlementKey, symbol
}

func (b *Builder) matchOverride(rec *types.MarketRecord, groupKey string) (*interval.Override, bool) {
	if rule, ok := b.overrides.Match(rec.Question, rec.Slug); ok {
		return rule, true
	}
	if rec.EventSlug != "" {
		if rule, ok := b.overrides.Match("", rec.EventSlug); ok {
			return rule, true
		}
	}
	if rule, ok := b.overrides.Match("", groupKey); ok {
		return rule, true
	}
	return nil, false
}

// assemble resolves roles, applies the common-anchor filter, sorts the
// sequences and computes step and coverage for one group.
func (b *Builder) assemble(group *RangeGroup) {
	staged := group.Unmatched
	group.Unmatched = nil

	// Bucket by event and decide a uniform role per bucket: an event whose
	// markets are all open-ended above markets contributes parents,
	// everything else contributes the ladder.
	buckets := make(map[string][]int)
	for i := range staged {
		key := staged[i].EventSlug
		if key == "" {
			key = staged[i].MarketID
		}
		buckets[key] = append(buckets[key], i)
	}

	for _, indices := range buckets {
		allAbove := true
		for _, i := range indices {
			d := &staged[i]
			if d.Kind != interval.KindAbove || !d.Bounds.HasLower || d.Bounds.HasUpper {
				allAbove = false
				break
			}
		}
		for _, i := range indices {
			if allAbove || staged[i].Role == RoleParent {
				staged[i].Role = RoleParent
			} else {
				staged[i].Role = RoleChild
			}
		}
	}

	var parents, children, belows, unmatched []Descriptor
	for i := range staged {
		d := staged[i]
		switch {
		case d.Kind == interval.KindUnknown:
			unmatched = append(unmatched, d)
		case d.Role == RoleParent && d.Kind == interval.KindAbove:
			parents = append(parents, d)
		case d.Kind == interval.KindRange:
			children = append(children, d)
		case d.Kind == interval.KindBelow:
			belows = append(belows, d)
		default:
			// An above market inside a mixed event cannot join the ladder.
			unmatched = append(unmatched, d)
		}
	}

	parents, children, belows, dropped := applyAnchorFilter(parents, children, belows)
	unmatched = append(unmatched, dropped...)

	sort.SliceStable(children, func(i, j int) bool { return children[i].Bounds.Lower < children[j].Bounds.Lower })
	sort.SliceStable(parents, func(i, j int) bool { return parents[i].Bounds.Lower < parents[j].Bounds.Lower })

	// Overlapping children break the interval model; keep the first and
	// drop the rest of each overlap.
	kept := children[:0]
	for i := range children {
		if len(kept) > 0 && children[i].Bounds.Lower < kept[len(kept)-1].Bounds.Upper-boundEps {
			b.logger.Debug("child-overlap-dropped",
				zap.String("group", group.Key),
				zap.String("market-slug", children[i].Slug))
			unmatched = append(unmatched, children[i])
			continue
		}
		kept = append(kept, children[i])
	}
	children = kept

	group.Parents = parents
	group.Children = children
	group.Belows = belows
	group.Unmatched = unmatched
	if group.Step == 0 {
		group.Step = deriveStep(children)
	}
	if rule, ok := b.overrides.Match("", group.Key); ok && rule.Step > 0 {
		group.Step = rule.Step
	}

	group.Coverage = make([]Coverage, len(parents))
	for i := range parents {
		group.Coverage[i] = computeCoverage(children, parents[i].Bounds.Lower)
	}
}

// applyAnchorFilter drops parents whose boundary no child shares: they
// cannot form legal combinations and must not enter the hot path. Belows are
// only useful paired against a surviving parent anchor. The ladder itself is
// kept whole.
func applyAnchorFilter(parents, children, belows []Descriptor) (p, c, bl, dropped []Descriptor) {
	if len(parents)+len(belows) == 0 {
		return parents, children, belows, nil
	}

	childAnchors := anchorSet(append(append([]Descriptor{}, children...), belows...))

	keptParents := parents[:0]
	for _, d := range parents {
		if touchesAny(d, childAnchors) {
			keptParents = append(keptParents, d)
		} else {
			dropped = append(dropped, d)
		}
	}

	parentAnchors := anchorSet(keptParents)
	keptBelows := belows[:0]
	for _, d := range belows {
		if touchesAny(d, parentAnchors) {
			keptBelows = append(keptBelows, d)
		} else {
			dropped = append(dropped, d)
		}
	}

	return keptParents, children, keptBelows, dropped
}

// inconsistent reports bounds that contradict the claimed kind.
func inconsistent(p interval.Parsed) bool {
	b := p.Bounds
	switch p.Kind {
	case interval.KindRange:
		return !b.HasLower || !b.HasUpper || b.Lower >= b.Upper
	case interval.KindAbove:
		return !b.HasLower
	case interval.KindBelow:
		return !b.HasUpper
	default:
		return false
	}
}

func anchorSet(descs []Descriptor) map[float64]struct{} {
	set := make(map[float64]struct{})
	for _, d := range descs {
		for _, a := range anchors(d) {
			set[a] = struct{}{}
		}
	}
	return set
}

func anchors(d Descriptor) []float64 {
	switch d.Kind {
	case interval.KindAbove:
		return []float64{d.Bounds.Lower}
	case interval.KindBelow:
		return []float64{d.Bounds.Upper}
	case interval.KindRange:
		return []float64{d.Bounds.Lower, d.Bounds.Upper}
	default:
		return nil
	}
}

func touchesAny(d Descriptor, set map[float64]struct{}) bool {
	for _, a := range anchors(d) {
		if _, ok := set[a]; ok {
			return true
		}
	}
	return false
}

// deriveStep returns the smallest positive gap between consecutive child
// lower bounds.
func deriveStep(children []Descriptor) float64 {
	step := 0.0
	for i := 1; i < len(children); i++ {
		gap := children[i].Bounds.Lower - children[i-1].Bounds.Lower
		if gap > 0 && (step == 0 || gap < step) {
			step = gap
		}
	}
	return step
}

const boundEps = 1e-9

func BoundsEqual(a, b float64) bool {
	return math.Abs(a-b) <= boundEps*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// computeCoverage finds the maximal contiguous child window for a parent
// anchored at the given lower bound. A parent anchored past the last child
// gets the empty window {N, N-1} so it can still close evaluation windows.
func computeCoverage(children []Descriptor, lower float64) Coverage {
	n := len(children)
	if n == 0 {
		return Coverage{Start: 0, End: -1}
	}

	start := n
	for i := range children {
		if children[i].Bounds.Upper > lower+boundEps {
			start = i
			break
		}
	}

	if start == n {
		return Coverage{Start: n, End: n - 1, Anchored: BoundsEqual(children[n-1].Bounds.Upper, lower)}
	}

	anchored := BoundsEqual(children[start].Bounds.Lower, lower)
	end := start
	for end+1 < n && BoundsEqual(children[end+1].Bounds.Lower, children[end].Bounds.Upper) {
		end++
	}

	return Coverage{Start: start, End: end, Anchored: anchored}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
