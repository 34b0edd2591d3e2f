package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mselser95/range-arb/internal/engine"
	"go.uber.org/zap"
)

func testOpportunity() *engine.Opportunity {
	parent := engine.LegSnapshot{
		MarketID: "parent-80", Slug: "btc-above-80", Label: "≥80",
		BestBid: 1.05, BestAsk: 1.10,
	}
	upper := engine.LegSnapshot{
		MarketID: "parent-86", Slug: "btc-above-86", Label: "≥86",
		BestBid: 0.18, BestAsk: 0.20,
	}

	return &engine.Opportunity{
		ID:          "test-opp-123",
		Strategy:    engine.StrategySellParentBuyChildren,
		GroupKey:    "btc-2026-03-07T12:00:00.000Z",
		Parent:      &parent,
		ParentUpper: &upper,
		Children: []engine.LegSnapshot{
			{MarketID: "c1", Slug: "btc-80-82", Label: "80-82", BestAsk: 0.30, BestBid: 0.28},
			{MarketID: "c2", Slug: "btc-82-84", Label: "82-84", BestAsk: 0.30, BestBid: 0.28},
		},
		ProfitAbs:   0.05,
		ProfitBps:   454,
		TimestampMs: 1700000000123,
		DetectedAt:  time.Now(),
		Context:     engine.Context{WindowStart: 0, WindowEnd: 1, TotalCost: 1.10},
	}
}

func TestConsoleStorage_StoreOpportunity(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	s := NewConsoleStorage(logger)

	err := s.StoreOpportunity(context.Background(), testOpportunity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err = s.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestPostgresStorage_StoreOpportunity(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	logger, _ := zap.NewDevelopment()
	s := &PostgresStorage{db: db, logger: logger}

	opp := testOpportunity()

	mock.ExpectExec("INSERT INTO range_opportunities").
		WithArgs(
			opp.ID,
			string(opp.Strategy),
			opp.GroupKey,
			opp.DetectedAt,
			opp.TimestampMs,
			"parent-80",
			"parent-86",
			sqlmock.AnyArg(), // legs JSON
			opp.ProfitAbs,
			opp.ProfitBps,
			opp.Context.TotalCost,
			opp.Context.TotalRevenue,
			opp.Context.Payout,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = s.StoreOpportunity(context.Background(), opp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err = mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStorage_StoreOpportunityError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	logger, _ := zap.NewDevelopment()
	s := &PostgresStorage{db: db, logger: logger}

	mock.ExpectExec("INSERT INTO range_opportunities").
		WillReturnError(context.DeadlineExceeded)

	err = s.StoreOpportunity(context.Background(), testOpportunity())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestPostgresStorage_Close(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}

	logger, _ := zap.NewDevelopment()
	s := &PostgresStorage{db: db, logger: logger}

	mock.ExpectClose()
	if err = s.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}
