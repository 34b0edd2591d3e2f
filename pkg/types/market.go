package types

import (
	"time"

	json "github.com/goccy/go-json"
)

// MarketRecord is one entry of the structure snapshot handed to the builder.
// ClobTokenIDs is the ordered [YES, NO] pair.
type MarketRecord struct {
	MarketID     string
	Slug         string
	Question     string
	ClobTokenIDs [2]string
	EndDate      time.Time
	EventSlug    string
	EventTicker  string
	EventEndDate time.Time
	SymbolHint   string
	NegRisk      bool
}

// YesTokenID returns the YES side token id.
func (r *MarketRecord) YesTokenID() string { return r.ClobTokenIDs[0] }

// NoTokenID returns the NO side token id.
func (r *MarketRecord) NoTokenID() string { return r.ClobTokenIDs[1] }

// GammaEvent is the event block embedded in a Gamma API market.
type GammaEvent struct {
	Slug    string    `json:"slug"`
	Ticker  string    `json:"ticker"`
	EndDate time.Time `json:"endDate"`
}

// GammaMarket represents a market as served by the Gamma API.
type GammaMarket struct {
	ID         string       `json:"id"`
	Question   string       `json:"question"`
	Slug       string       `json:"slug"`
	Closed     bool         `json:"closed"`
	Active     bool         `json:"active"`
	EndDate    time.Time    `json:"endDate"`
	ClobTokens string       `json:"clobTokenIds"` // JSON string: "[\"token1\", \"token2\"]"
	NegRisk    bool         `json:"negRisk"`
	Events     []GammaEvent `json:"events,omitempty"`
}

// ToRecord converts a Gamma market into a structure-snapshot record.
// Returns false when the market does not carry the YES/NO token pair.
func (m *GammaMarket) ToRecord() (MarketRecord, bool) {
	var tokenIDs []string
	if err := json.Unmarshal([]byte(m.ClobTokens), &tokenIDs); err != nil || len(tokenIDs) < 2 {
		return MarketRecord{}, false
	}

	rec := MarketRecord{
		MarketID:     m.ID,
		Slug:         m.Slug,
		Question:     m.Question,
		ClobTokenIDs: [2]string{tokenIDs[0], tokenIDs[1]},
		EndDate:      m.EndDate,
		NegRisk:      m.NegRisk,
	}

	if len(m.Events) > 0 {
		rec.EventSlug = m.Events[0].Slug
		rec.EventTicker = m.Events[0].Ticker
		rec.EventEndDate = m.Events[0].EndDate
	}

	return rec, true
}
