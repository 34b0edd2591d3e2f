package structure

import (
	"fmt"
	"time"

	"github.com/mselser95/range-arb/internal/interval"
)

// Role says how a descriptor participates in its group.
type Role int

const (
	RoleChild Role = iota
	RoleParent
)

// String returns the lowercase role name.
func (r Role) String() string {
	if r == RoleParent {
		return "parent"
	}
	return "child"
}

// Descriptor is a classified market inside a range group.
type Descriptor struct {
	MarketID   string
	Slug       string
	Question   string
	YesTokenID string
	NoTokenID  string
	Kind       interval.Kind
	Bounds     interval.Bounds
	Role       Role
	Label      string
	EventSlug  string
	Symbol     string
	NegRisk    bool
}

// Coverage is a parent's window over the sorted child slice. Start may equal
// End+1: an upper parent anchored just past the last child spans no children
// but still bounds evaluation windows.
type Coverage struct {
	Start    int
	End      int
	Anchored bool
}

// Empty reports whether the coverage spans no children.
func (c Coverage) Empty() bool { return c.Start > c.End }

// RangeGroup is the set of markets sharing (symbol, settlement time).
// Children are range markets sorted by lower bound; Parents are above
// markets sorted by lower bound; Belows are below markets kept for the
// binary pair evaluator. Coverage is indexed by parent.
type RangeGroup struct {
	Key            string
	Symbol         string
	SettlementKey  string
	SettlementTime time.Time
	Children       []Descriptor
	Parents        []Descriptor
	Belows         []Descriptor
	Coverage       []Coverage
	Step           float64
	Unmatched      []Descriptor
}

// StructureError reports an inconsistency found while building a group.
// It is diagnostic only; building continues.
type StructureError struct {
	GroupKey string
	Market   string
	Reason   string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("structure: group %s market %s: %s", e.GroupKey, e.Market, e.Reason)
}
