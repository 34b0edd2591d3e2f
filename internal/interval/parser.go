package interval

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies a market's payout interval.
type Kind int

const (
	KindUnknown Kind = iota
	KindRange
	KindAbove
	KindBelow
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindRange:
		return "range"
	case KindAbove:
		return "above"
	case KindBelow:
		return "below"
	default:
		return "unknown"
	}
}

// Bounds holds the numeric interval bounds. A missing side is marked by the
// corresponding Has flag.
type Bounds struct {
	Lower    float64
	Upper    float64
	HasLower bool
	HasUpper bool
}

// Parsed is the result of interval extraction for one market.
type Parsed struct {
	Kind   Kind
	Bounds Bounds
	Label  string
	Source string // "question", "slug" or "override"
}

var (
	numberPattern    = regexp.MustCompile(`([0-9][0-9,]*(?:\.[0-9]+)?)\s*([kmb])?`)
	dashRangePattern = regexp.MustCompile(`[0-9][0-9,.]*[kmb]?\s*[-–—]\s*[0-9]`)
)

var aboveHints = []string{"above", "over", "greater", "at least", "or higher", "or more", "≥", ">="}

var belowHints = []string{"below", "under", "less than", "at most", "or lower", "or less", "≤", "<="}

// Parse derives the interval classification for a market. The question text
// is authoritative; the slug is only consulted when the question yields
// nothing.
func Parse(question, slug string) (Parsed, bool) {
	if p, ok := parseText(question, "question"); ok {
		return p, true
	}
	return parseText(strings.ReplaceAll(slug, "-", " "), "slug")
}

func parseText(text, source string) (Parsed, bool) {
	normalized := normalize(text)
	numbers := extractNumbers(normalized)
	if len(numbers) == 0 {
		return Parsed{Kind: KindUnknown}, false
	}

	switch {
	case hasRangeHint(normalized) && len(numbers) >= 2:
		lower, upper := numbers[0], numbers[1]
		if upper < lower {
			lower, upper = upper, lower
		}
		b := Bounds{Lower: lower, Upper: upper, HasLower: true, HasUpper: true}
		return Parsed{Kind: KindRange, Bounds: b, Label: b.Label(), Source: source}, true
	case containsAny(normalized, aboveHints):
		b := Bounds{Lower: numbers[0], HasLower: true}
		return Parsed{Kind: KindAbove, Bounds: b, Label: b.Label(), Source: source}, true
	case containsAny(normalized, belowHints):
		b := Bounds{Upper: numbers[0], HasUpper: true}
		return Parsed{Kind: KindBelow, Bounds: b, Label: b.Label(), Source: source}, true
	default:
		return Parsed{Kind: KindUnknown}, false
	}
}

// normalize strips currency markers and underscores and lowercases the text.
func normalize(text string) string {
	replacer := strings.NewReplacer("$", "", "_", " ")
	return strings.ToLower(replacer.Replace(text))
}

func hasRangeHint(text string) bool {
	if strings.Contains(text, "between") || strings.Contains(text, " to ") {
		return true
	}
	return dashRangePattern.MatchString(text)
}

func containsAny(text string, hints []string) bool {
	for _, hint := range hints {
		if strings.Contains(text, hint) {
			return true
		}
	}
	return false
}

// extractNumbers pulls numeric tokens in order of appearance, applying
// grouping separators and k/m/b suffix multipliers.
func extractNumbers(text string) []float64 {
	matches := numberPattern.FindAllStringSubmatch(text, -1)
	numbers := make([]float64, 0, len(matches))
	for _, match := range matches {
		raw := strings.ReplaceAll(match[1], ",", "")
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		switch match[2] {
		case "k":
			value *= 1e3
		case "m":
			value *= 1e6
		case "b":
			value *= 1e9
		}
		numbers = append(numbers, value)
	}
	return numbers
}

// Label renders a compact human label for the bounds, e.g. "96000-98000",
// "≥96000" or "<98000".
func (b Bounds) Label() string {
	switch {
	case b.HasLower && b.HasUpper:
		return formatBound(b.Lower) + "-" + formatBound(b.Upper)
	case b.HasLower:
		return "≥" + formatBound(b.Lower)
	case b.HasUpper:
		return "<" + formatBound(b.Upper)
	default:
		return ""
	}
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
