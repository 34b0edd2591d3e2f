package types

import (
	"strconv"

	json "github.com/goccy/go-json"
)

// TopOfBookUpdate is the normalised price event consumed by the engine.
// A zero BestBid or BestAsk means "no liquidity on that side".
type TopOfBookUpdate struct {
	AssetID     string
	MarketID    string
	MarketSlug  string
	BestBid     float64
	BestAsk     float64
	BestBidSize float64
	BestAskSize float64
	TimestampMs int64
}

// Key returns the identity used by the dirty filter: asset id when present,
// falling back to slug then market id for feeds that omit it.
func (u *TopOfBookUpdate) Key() string {
	if u.AssetID != "" {
		return u.AssetID
	}
	if u.MarketSlug != "" {
		return u.MarketSlug
	}
	return u.MarketID
}

// ClobMessage represents a message from the Polymarket CLOB market channel.
type ClobMessage struct {
	EventType string       `json:"event_type"` // "book", "price_change", "last_trade_price"
	AssetID   string       `json:"asset_id"`
	Market    string       `json:"market"`
	Timestamp int64        `json:"-"` // Parsed from string via UnmarshalJSON
	Hash      string       `json:"hash,omitempty"`
	Bids      []PriceLevel `json:"bids,omitempty"`
	Asks      []PriceLevel `json:"asks,omitempty"`
}

// UnmarshalJSON custom unmarshaler to handle the string timestamp.
func (m *ClobMessage) UnmarshalJSON(data []byte) error {
	type Alias ClobMessage
	aux := &struct {
		TimestampStr string `json:"timestamp"`
		*Alias
	}{
		Alias: (*Alias)(m),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.TimestampStr != "" {
		timestamp, err := strconv.ParseInt(aux.TimestampStr, 10, 64)
		if err != nil {
			return err
		}
		m.Timestamp = timestamp
	}

	return nil
}

// PriceLevel represents a single price level in a CLOB book message.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}
