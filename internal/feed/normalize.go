package feed

import (
	"strconv"
	"time"

	"github.com/mselser95/range-arb/pkg/types"
)

// normalize turns a CLOB message into a full top-of-book update, merging
// partial price_change frames with the last known book per asset.
func (m *Manager) normalize(msg *types.ClobMessage) *types.TopOfBookUpdate {
	switch msg.EventType {
	case "book", "price_change":
	default:
		// Ignore last_trade_price, tick_size_change and friends.
		return nil
	}

	bidPrice, bidSize, hasBid := bestLevel(msg.Bids)
	askPrice, askSize, hasAsk := bestLevel(msg.Asks)

	m.booksMu.Lock()
	book, ok := m.books[msg.AssetID]
	if !ok {
		book = &bookState{}
		m.books[msg.AssetID] = book
	}

	if msg.EventType == "book" {
		// Full snapshot: both sides reset, a missing side means no quote.
		book.bid, book.bidSize = 0, 0
		book.ask, book.askSize = 0, 0
	}
	if hasBid {
		book.bid = bidPrice
		// price_change frames carry size "0"; keep the last known size.
		if bidSize > 0 || msg.EventType == "book" {
			book.bidSize = bidSize
		}
	}
	if hasAsk {
		book.ask = askPrice
		if askSize > 0 || msg.EventType == "book" {
			book.askSize = askSize
		}
	}

	update := &types.TopOfBookUpdate{
		AssetID:     msg.AssetID,
		MarketID:    msg.Market,
		BestBid:     book.bid,
		BestAsk:     book.ask,
		BestBidSize: book.bidSize,
		BestAskSize: book.askSize,
		TimestampMs: msg.Timestamp,
	}
	m.booksMu.Unlock()

	if update.TimestampMs == 0 {
		update.TimestampMs = time.Now().UnixMilli()
	}

	return update
}

// bestLevel extracts the first (best) price level.
func bestLevel(levels []types.PriceLevel) (price, size float64, ok bool) {
	if len(levels) == 0 {
		return 0, 0, false
	}

	price, err := strconv.ParseFloat(levels[0].Price, 64)
	if err != nil {
		return 0, 0, false
	}

	size, err = strconv.ParseFloat(levels[0].Size, 64)
	if err != nil {
		return price, 0, true
	}

	return price, size, true
}
