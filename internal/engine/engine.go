package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mselser95/range-arb/internal/structure"
	"github.com/mselser95/range-arb/pkg/types"
	"go.uber.org/zap"
)

// Config holds engine configuration. Values are read once at start.
type Config struct {
	MinProfitBps int
	MinProfitAbs float64
	Cooldown     time.Duration
	// SizeChangeThreshold is reserved for price-unchanged / size-changed
	// update variants; the dirty filter does not consult it yet.
	SizeChangeThreshold float64
	TriangleSellEnabled bool
	BinaryPairsEnabled  bool
	OpportunityBuffer   int
	UpdateChannel       <-chan *types.TopOfBookUpdate
	Logger              *zap.Logger
}

// Engine is the arbitrage detection core. All state mutation runs on a
// single logical executor: Start drains the update mailbox on one goroutine,
// and the synchronous entry points (OnUpdate, ApplyStructure, ExpireGroups)
// must only be called from that executor.
type Engine struct {
	cfg    Config
	logger *zap.Logger

	groups         map[string]*groupState
	tokenIndex     map[string]locator
	slugIndex      map[string]locator
	marketIDIndex  map[string]locator
	triangleTokens map[string][]triangleRef
	pairTokens     map[string][]pairRef

	filter *dirtyFilter

	structureCh chan []*structure.RangeGroup
	expiryCh    chan []string
	out         chan *Opportunity

	// nowMs is the cooldown clock; injectable for tests.
	nowMs func() int64

	// rangeEvaluations counts range evaluator runs; observable for tests.
	rangeEvaluations    int64
	triangleEvaluations int64

	// summaries is a read-only snapshot for the HTTP API, republished on
	// every structure change so handlers never touch executor state.
	summaries atomic.Value // []GroupSummary

	ctx context.Context
	wg  sync.WaitGroup
}

// GroupSummary is the read-only view of one group exposed over HTTP.
type GroupSummary struct {
	Key            string    `json:"key"`
	Symbol         string    `json:"symbol"`
	SettlementTime time.Time `json:"settlement_time"`
	Step           float64   `json:"step"`
	Children       int       `json:"children"`
	Parents        int       `json:"parents"`
	Triangles      int       `json:"triangles"`
	Pairs          int       `json:"pairs"`
	Unmatched      int       `json:"unmatched"`
}

// New creates an engine. Groups are empty until the first structure snapshot
// is applied.
func New(cfg Config) *Engine {
	if cfg.OpportunityBuffer <= 0 {
		cfg.OpportunityBuffer = 1024
	}
	return &Engine{
		cfg:            cfg,
		logger:         cfg.Logger,
		groups:         make(map[string]*groupState),
		tokenIndex:     make(map[string]locator),
		slugIndex:      make(map[string]locator),
		marketIDIndex:  make(map[string]locator),
		triangleTokens: make(map[string][]triangleRef),
		pairTokens:     make(map[string][]pairRef),
		filter:         newDirtyFilter(),
		structureCh:    make(chan []*structure.RangeGroup, 1),
		expiryCh:       make(chan []string, 8),
		out:            make(chan *Opportunity, cfg.OpportunityBuffer),
		nowMs:          func() int64 { return time.Now().UnixMilli() },
	}
}

// Start runs the executor loop until the context is cancelled.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx = ctx
	e.logger.Info("engine-starting",
		zap.Int("min-profit-bps", e.cfg.MinProfitBps),
		zap.Float64("min-profit-abs", e.cfg.MinProfitAbs),
		zap.Duration("cooldown", e.cfg.Cooldown),
		zap.Bool("triangle-sell-enabled", e.cfg.TriangleSellEnabled),
		zap.Bool("binary-pairs-enabled", e.cfg.BinaryPairsEnabled))

	e.wg.Add(1)
	go e.run()
	return nil
}

func (e *Engine) run() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Info("engine-stopping")
			close(e.out)
			return
		case groups := <-e.structureCh:
			e.ApplyStructure(groups)
		case keys := <-e.expiryCh:
			e.ExpireGroups(keys)
		case update, ok := <-e.cfg.UpdateChannel:
			if !ok {
				e.logger.Info("update-channel-closed")
				close(e.out)
				return
			}
			start := time.Now()
			e.OnUpdate(update)
			DetectionDurationSeconds.Observe(time.Since(start).Seconds())
		}
	}
}

// SubmitStructure hands a rebuilt group set to the executor. The swap itself
// happens between updates; a running evaluation never sees a half-built
// group.
func (e *Engine) SubmitStructure(groups []*structure.RangeGroup) {
	select {
	case e.structureCh <- groups:
	case <-e.structureCh:
		// A pending snapshot is superseded before it was applied.
		e.structureCh <- groups
	}
}

// SubmitExpiry hands a list of expired group keys to the executor.
func (e *Engine) SubmitExpiry(keys []string) {
	e.expiryCh <- keys
}

// Opportunities returns the outbound opportunity stream.
func (e *Engine) Opportunities() <-chan *Opportunity {
	return e.out
}

// Close waits for the executor to drain.
func (e *Engine) Close() error {
	e.wg.Wait()
	e.logger.Info("engine-closed")
	return nil
}

// ApplyStructure atomically swaps all groups and locator tables. Snapshots
// start zero-valued and are repopulated by the stream.
func (e *Engine) ApplyStructure(groups []*structure.RangeGroup) {
	groupStates := make(map[string]*groupState, len(groups))
	tokenIndex := make(map[string]locator)
	slugIndex := make(map[string]locator)
	marketIDIndex := make(map[string]locator)
	triangleTokens := make(map[string][]triangleRef)
	pairTokens := make(map[string][]pairRef)

	triangles := 0
	for _, group := range groups {
		gs := newGroupState(group)
		groupStates[group.Key] = gs
		triangles += len(gs.triangles)

		register := func(d *structure.Descriptor, role structure.Role, index int) {
			loc := locator{groupKey: group.Key, role: role, index: index}
			if d.YesTokenID != "" {
				tokenIndex[d.YesTokenID] = loc
			}
			if d.Slug != "" {
				slugIndex[d.Slug] = loc
			}
			if d.MarketID != "" {
				marketIDIndex[d.MarketID] = loc
			}
		}
		for i := range group.Children {
			register(&group.Children[i], structure.RoleChild, i)
		}
		for i := range group.Parents {
			register(&group.Parents[i], structure.RoleParent, i)
		}

		for ti := range gs.triangles {
			for li := range gs.triangles[ti].legs {
				assetID := gs.triangles[ti].legs[li].AssetID
				triangleTokens[assetID] = append(triangleTokens[assetID], triangleRef{
					groupKey: group.Key,
					triangle: ti,
					leg:      li,
				})
			}
		}

		for pi := range gs.pairs {
			p := &gs.pairs[pi]
			for leg, assetID := range []string{p.a.yes.AssetID, p.a.no.AssetID, p.b.yes.AssetID, p.b.no.AssetID} {
				if assetID == "" {
					continue
				}
				pairTokens[assetID] = append(pairTokens[assetID], pairRef{
					groupKey: group.Key,
					pair:     pi,
					leg:      leg,
				})
			}
		}
	}

	e.groups = groupStates
	e.tokenIndex = tokenIndex
	e.slugIndex = slugIndex
	e.marketIDIndex = marketIDIndex
	e.triangleTokens = triangleTokens
	e.pairTokens = pairTokens
	e.filter.reset()

	GroupsTracked.Set(float64(len(groupStates)))
	TrianglesTracked.Set(float64(triangles))

	e.publishSummaries()

	e.logger.Info("structure-applied",
		zap.Int("groups", len(groupStates)),
		zap.Int("triangles", triangles),
		zap.Int("tokens", len(tokenIndex)))
}

// publishSummaries refreshes the read-only view handed to HTTP handlers.
func (e *Engine) publishSummaries() {
	summaries := make([]GroupSummary, 0, len(e.groups))
	for _, gs := range e.groups {
		summaries = append(summaries, GroupSummary{
			Key:            gs.group.Key,
			Symbol:         gs.group.Symbol,
			SettlementTime: gs.group.SettlementTime,
			Step:           gs.group.Step,
			Children:       len(gs.group.Children),
			Parents:        len(gs.group.Parents),
			Triangles:      len(gs.triangles),
			Pairs:          len(gs.pairs),
			Unmatched:      len(gs.group.Unmatched),
		})
	}
	e.summaries.Store(summaries)
}

// GroupSummaries returns the latest published group view. Safe to call from
// any goroutine.
func (e *Engine) GroupSummaries() []GroupSummary {
	if v := e.summaries.Load(); v != nil {
		return v.([]GroupSummary)
	}
	return nil
}

// ExpireGroups removes the named groups and purges their locator entries,
// cooldowns and triangles.
func (e *Engine) ExpireGroups(keys []string) {
	expired := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := e.groups[key]; ok {
			expired[key] = struct{}{}
			delete(e.groups, key)
		}
	}
	if len(expired) == 0 {
		return
	}

	purgeLocators := func(index map[string]locator) {
		for key, loc := range index {
			if _, gone := expired[loc.groupKey]; gone {
				delete(index, key)
			}
		}
	}
	purgeLocators(e.tokenIndex)
	purgeLocators(e.slugIndex)
	purgeLocators(e.marketIDIndex)

	for assetID, refs := range e.triangleTokens {
		kept := refs[:0]
		for _, ref := range refs {
			if _, gone := expired[ref.groupKey]; !gone {
				kept = append(kept, ref)
			}
		}
		if len(kept) == 0 {
			delete(e.triangleTokens, assetID)
		} else {
			e.triangleTokens[assetID] = kept
		}
	}
	for assetID, refs := range e.pairTokens {
		kept := refs[:0]
		for _, ref := range refs {
			if _, gone := expired[ref.groupKey]; !gone {
				kept = append(kept, ref)
			}
		}
		if len(kept) == 0 {
			delete(e.pairTokens, assetID)
		} else {
			e.pairTokens[assetID] = kept
		}
	}

	triangles := 0
	for _, gs := range e.groups {
		triangles += len(gs.triangles)
	}
	GroupsTracked.Set(float64(len(e.groups)))
	TrianglesTracked.Set(float64(triangles))
	e.publishSummaries()

	e.logger.Info("groups-expired", zap.Int("count", len(expired)))
}

// OnUpdate is the synchronous hot-path entry. All combinations affected by
// the update are evaluated before it returns.
func (e *Engine) OnUpdate(u *types.TopOfBookUpdate) {
	ok, reason := e.filter.admit(u)
	if !ok {
		UpdatesDroppedTotal.WithLabelValues(reason).Inc()
		return
	}
	UpdatesAcceptedTotal.Inc()

	if refs, found := e.triangleTokens[u.AssetID]; found {
		e.routeTriangles(refs, u)
	}
	if e.cfg.BinaryPairsEnabled {
		if refs, found := e.pairTokens[u.AssetID]; found {
			e.routePairs(refs, u)
		}
	}

	loc, found := e.locate(u)
	if !found {
		return
	}
	gs := e.groups[loc.groupKey]

	if loc.role == structure.RoleChild {
		gs.childStates[loc.index].apply(u)
		gs.recomputePrefixes(loc.index)
		for _, pi := range gs.childParents[loc.index] {
			e.evaluateRangeParent(gs, pi, u.TimestampMs)
		}
	} else {
		gs.parentStates[loc.index].apply(u)
		e.evaluateRangeParent(gs, loc.index, u.TimestampMs)
	}
}

// locate resolves an update to its owning group via the token, slug and
// market-id indexes, in that order.
func (e *Engine) locate(u *types.TopOfBookUpdate) (locator, bool) {
	if u.AssetID != "" {
		if loc, ok := e.tokenIndex[u.AssetID]; ok {
			return loc, true
		}
	}
	if u.MarketSlug != "" {
		if loc, ok := e.slugIndex[u.MarketSlug]; ok {
			return loc, true
		}
	}
	if u.MarketID != "" {
		if loc, ok := e.marketIDIndex[u.MarketID]; ok {
			return loc, true
		}
	}
	return locator{}, false
}

// routeTriangles writes the update into every participating leg and
// re-evaluates only the affected triangles, best-per-group.
func (e *Engine) routeTriangles(refs []triangleRef, u *types.TopOfBookUpdate) {
	affected := make(map[string][]int)
	for _, ref := range refs {
		gs, ok := e.groups[ref.groupKey]
		if !ok {
			continue
		}
		gs.triangles[ref.triangle].legs[ref.leg].apply(u)

		indices := affected[ref.groupKey]
		if len(indices) == 0 || indices[len(indices)-1] != ref.triangle {
			affected[ref.groupKey] = append(indices, ref.triangle)
		}
	}
	for groupKey, indices := range affected {
		e.evaluateTriangles(e.groups[groupKey], indices, u.TimestampMs)
	}
}

func (e *Engine) routePairs(refs []pairRef, u *types.TopOfBookUpdate) {
	for _, ref := range refs {
		gs, ok := e.groups[ref.groupKey]
		if !ok {
			continue
		}
		gs.pairSnapshot(ref).apply(u)
		e.evaluatePair(gs, ref.pair, u.TimestampMs)
	}
}

// RangeEvaluations returns the number of range evaluator runs.
// Executor-owned; read it from the executor or after it has stopped.
func (e *Engine) RangeEvaluations() int64 { return e.rangeEvaluations }

// TriangleEvaluations returns the number of triangle evaluator runs.
func (e *Engine) TriangleEvaluations() int64 { return e.triangleEvaluations }

// GroupCount returns the number of live groups.
func (e *Engine) GroupCount() int { return len(e.groups) }

// onCooldown checks and stamps the per-key cooldown using the engine clock.
func (e *Engine) onCooldown(gs *groupState, key string) bool {
	now := e.nowMs()
	if last, ok := gs.cooldowns[key]; ok && now-last < e.cfg.Cooldown.Milliseconds() {
		OpportunitiesRejectedTotal.WithLabelValues("cooldown").Inc()
		return true
	}
	gs.cooldowns[key] = now
	return false
}

// emit delivers an opportunity without blocking; a full consumer drops it.
func (e *Engine) emit(opp *Opportunity) {
	select {
	case e.out <- opp:
		OpportunitiesDetectedTotal.WithLabelValues(string(opp.Strategy)).Inc()
		OpportunityProfitBps.Observe(opp.ProfitBps)
		e.logger.Info("opportunity-detected",
			zap.String("opportunity-id", opp.ID),
			zap.String("strategy", string(opp.Strategy)),
			zap.String("group-key", opp.GroupKey),
			zap.Float64("profit-abs", opp.ProfitAbs),
			zap.Float64("profit-bps", opp.ProfitBps))
	default:
		OpportunitiesDroppedTotal.Inc()
		e.logger.Warn("opportunity-stream-full",
			zap.String("group-key", opp.GroupKey),
			zap.String("strategy", string(opp.Strategy)))
	}
}
