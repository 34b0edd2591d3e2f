package feed

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/mselser95/range-arb/pkg/types"
	"go.uber.org/zap"
)

func newTestManager() *Manager {
	return New(Config{BufferSize: 16, Logger: zap.NewNop()})
}

func TestNormalizeBookMessage(t *testing.T) {
	m := newTestManager()

	raw := `{
		"event_type": "book",
		"asset_id": "token-1",
		"market": "market-1",
		"timestamp": "1700000000123",
		"bids": [{"price": "0.52", "size": "100"}, {"price": "0.51", "size": "50"}],
		"asks": [{"price": "0.53", "size": "80"}]
	}`

	var msg types.ClobMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	update := m.normalize(&msg)
	if update == nil {
		t.Fatal("expected update")
	}

	if update.AssetID != "token-1" || update.MarketID != "market-1" {
		t.Errorf("identity wrong: %+v", update)
	}
	if update.BestBid != 0.52 || update.BestBidSize != 100 {
		t.Errorf("bid = %f/%f, want 0.52/100", update.BestBid, update.BestBidSize)
	}
	if update.BestAsk != 0.53 || update.BestAskSize != 80 {
		t.Errorf("ask = %f/%f, want 0.53/80", update.BestAsk, update.BestAskSize)
	}
	if update.TimestampMs != 1700000000123 {
		t.Errorf("timestamp = %d", update.TimestampMs)
	}
}

func TestNormalizeEmptySideMeansNoQuote(t *testing.T) {
	m := newTestManager()

	msg := &types.ClobMessage{
		EventType: "book",
		AssetID:   "token-1",
		Timestamp: 1,
		Asks:      []types.PriceLevel{{Price: "0.40", Size: "10"}},
	}

	update := m.normalize(msg)
	if update.BestBid != 0 {
		t.Errorf("missing bid side must normalise to zero, got %f", update.BestBid)
	}
	if update.BestAsk != 0.40 {
		t.Errorf("ask = %f", update.BestAsk)
	}
}

func TestNormalizePriceChangeMergesBook(t *testing.T) {
	m := newTestManager()

	book := &types.ClobMessage{
		EventType: "book",
		AssetID:   "token-1",
		Timestamp: 1,
		Bids:      []types.PriceLevel{{Price: "0.50", Size: "100"}},
		Asks:      []types.PriceLevel{{Price: "0.55", Size: "60"}},
	}
	m.normalize(book)

	// price_change carries only the changed side, with size "0".
	change := &types.ClobMessage{
		EventType: "price_change",
		AssetID:   "token-1",
		Timestamp: 2,
		Bids:      []types.PriceLevel{{Price: "0.51", Size: "0"}},
	}

	update := m.normalize(change)
	if update.BestBid != 0.51 {
		t.Errorf("bid = %f, want 0.51", update.BestBid)
	}
	if update.BestBidSize != 100 {
		t.Errorf("bid size must be preserved, got %f", update.BestBidSize)
	}
	if update.BestAsk != 0.55 || update.BestAskSize != 60 {
		t.Errorf("ask side must be carried over, got %f/%f", update.BestAsk, update.BestAskSize)
	}
}

func TestNormalizeIgnoresOtherEvents(t *testing.T) {
	m := newTestManager()

	msg := &types.ClobMessage{EventType: "last_trade_price", AssetID: "token-1"}
	if update := m.normalize(msg); update != nil {
		t.Errorf("expected nil, got %+v", update)
	}
}

func TestHandleRawBatch(t *testing.T) {
	m := newTestManager()

	raw := `[
		{"event_type": "book", "asset_id": "a", "timestamp": "1",
		 "bids": [{"price": "0.4", "size": "1"}], "asks": [{"price": "0.6", "size": "1"}]},
		{"event_type": "book", "asset_id": "b", "timestamp": "1",
		 "bids": [{"price": "0.3", "size": "1"}], "asks": [{"price": "0.7", "size": "1"}]}
	]`

	m.handleRaw([]byte(raw))

	if len(m.updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(m.updates))
	}
	first := <-m.updates
	if first.AssetID != "a" || first.BestBid != 0.4 {
		t.Errorf("unexpected first update: %+v", first)
	}
}
