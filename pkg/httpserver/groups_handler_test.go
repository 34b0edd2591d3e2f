package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mselser95/range-arb/internal/engine"
	"github.com/mselser95/range-arb/internal/structure"
	"github.com/mselser95/range-arb/pkg/types"
	"go.uber.org/zap"
)

func testEngineWithGroup(t *testing.T) *engine.Engine {
	t.Helper()

	settlement := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	records := []types.MarketRecord{
		{
			MarketID:     "m1",
			Slug:         "btc-between-80-and-82",
			Question:     "Will Bitcoin be between $80 and $82?",
			ClobTokenIDs: [2]string{"c1-yes", "c1-no"},
			EndDate:      settlement,
			SymbolHint:   "btc",
		},
		{
			MarketID:     "m2",
			Slug:         "btc-above-80",
			Question:     "Will Bitcoin be above $80?",
			ClobTokenIDs: [2]string{"p1-yes", "p1-no"},
			EndDate:      settlement,
			EventSlug:    "btc-above-80-event",
			SymbolHint:   "btc",
		},
	}

	builder := structure.NewBuilder(nil, zap.NewNop())
	groups := builder.Build(records, settlement.Add(-time.Hour))

	eng := engine.New(engine.Config{Cooldown: time.Second, Logger: zap.NewNop()})
	eng.ApplyStructure(groups)
	return eng
}

func TestHandleGroups(t *testing.T) {
	handler := NewGroupsHandler(testEngineWithGroup(t), nil, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.HandleGroups(rec, httptest.NewRequest(http.MethodGet, "/api/groups", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Count  int                   `json:"count"`
		Groups []engine.GroupSummary `json:"groups"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp.Count != 1 || len(resp.Groups) != 1 {
		t.Fatalf("expected one group, got %+v", resp)
	}
	group := resp.Groups[0]
	if group.Symbol != "btc" || group.Children != 1 || group.Parents != 1 {
		t.Errorf("unexpected summary: %+v", group)
	}
}

func TestHandleMarketRequiresSlug(t *testing.T) {
	handler := NewGroupsHandler(testEngineWithGroup(t), nil, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.HandleMarket(rec, httptest.NewRequest(http.MethodGet, "/api/market", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
