package app

import (
	"testing"

	"github.com/mselser95/range-arb/internal/structure"
)

func TestCollectTokens(t *testing.T) {
	groups := []*structure.RangeGroup{
		{
			Children: []structure.Descriptor{
				{YesTokenID: "c1-yes", NoTokenID: "c1-no"},
				{YesTokenID: "c2-yes", NoTokenID: "c2-no"},
			},
			Parents: []structure.Descriptor{
				{YesTokenID: "p1-yes", NoTokenID: "p1-no"},
			},
			Belows: []structure.Descriptor{
				{YesTokenID: "b1-yes", NoTokenID: ""},
			},
		},
		{
			Children: []structure.Descriptor{
				{YesTokenID: "c1-yes", NoTokenID: "c1-no"}, // duplicate across groups
			},
		},
	}

	tokens := collectTokens(groups)

	want := map[string]bool{
		"c1-yes": true, "c1-no": true,
		"c2-yes": true, "c2-no": true,
		"p1-yes": true, "p1-no": true,
		"b1-yes": true,
	}

	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(tokens), tokens)
	}
	for _, tok := range tokens {
		if !want[tok] {
			t.Errorf("unexpected token %q", tok)
		}
	}
}
