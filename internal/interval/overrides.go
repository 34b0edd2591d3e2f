package interval

import "strings"

// Override is a manual correction for markets the parser cannot classify,
// or classifies wrong. Matching is by exact slug, slug substring or question
// substring, in that order of precedence. Overrides are authoritative.
type Override struct {
	Name string // recorded on application for diagnostics

	MatchSlug             string
	MatchSlugContains     string
	MatchQuestionContains string

	Kind   Kind
	Bounds Bounds
	Role   string // "parent" forces the parent role; any other value leaves the builder's per-event role resolution in place
	Label  string
	Symbol string
	Step   float64
}

// Overrides is an ordered override table. Earlier rules win.
type Overrides []Override

// Match returns the first rule matching the given market.
func (os Overrides) Match(question, slug string) (*Override, bool) {
	for i := range os {
		if os[i].matches(question, slug) {
			return &os[i], true
		}
	}
	return nil, false
}

func (o *Override) matches(question, slug string) bool {
	switch {
	case o.MatchSlug != "":
		return o.MatchSlug == slug
	case o.MatchSlugContains != "":
		return strings.Contains(slug, o.MatchSlugContains)
	case o.MatchQuestionContains != "":
		return strings.Contains(strings.ToLower(question), strings.ToLower(o.MatchQuestionContains))
	default:
		return false
	}
}

// Apply overwrites the parsed result with the rule's fields. Zero-valued
// rule fields leave the parsed value in place.
func (o *Override) Apply(p *Parsed) {
	if o.Kind != KindUnknown {
		p.Kind = o.Kind
	}
	if o.Bounds.HasLower {
		p.Bounds.Lower = o.Bounds.Lower
		p.Bounds.HasLower = true
	}
	if o.Bounds.HasUpper {
		p.Bounds.Upper = o.Bounds.Upper
		p.Bounds.HasUpper = true
	}
	if o.Label != "" {
		p.Label = o.Label
	} else if p.Label == "" {
		p.Label = p.Bounds.Label()
	}
	p.Source = "override"
}
