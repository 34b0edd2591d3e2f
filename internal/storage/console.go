package storage

import (
	"context"
	"fmt"

	"github.com/mselser95/range-arb/internal/engine"
	"go.uber.org/zap"
)

// ConsoleStorage implements Storage by pretty-printing to console.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{logger: logger}
}

// StoreOpportunity pretty-prints an opportunity to console.
func (c *ConsoleStorage) StoreOpportunity(ctx context.Context, opp *engine.Opportunity) error {
	fmt.Println("\n" + "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("ARBITRAGE OPPORTUNITY: %s\n", opp.Strategy)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("ID:       %s\n", opp.ID[:8])
	fmt.Printf("Group:    %s\n", opp.GroupKey)
	fmt.Printf("Time:     %s\n", opp.DetectedAt.Format("2006-01-02 15:04:05"))

	if opp.Parent != nil {
		fmt.Printf("Parent:   %-28s bid %.4f / ask %.4f\n",
			opp.Parent.Label, opp.Parent.BestBid, opp.Parent.BestAsk)
	}
	if opp.ParentUpper != nil {
		fmt.Printf("Upper:    %-28s bid %.4f / ask %.4f\n",
			opp.ParentUpper.Label, opp.ParentUpper.BestBid, opp.ParentUpper.BestAsk)
	}
	if len(opp.Children) > 0 {
		fmt.Printf("LEGS (%d)\n", len(opp.Children))
		for _, leg := range opp.Children {
			fmt.Printf("  %-30s bid %.4f / ask %.4f\n", leg.Label, leg.BestBid, leg.BestAsk)
		}
	}

	fmt.Printf("  ───────────────────────────────\n")
	if opp.Context.TotalCost > 0 {
		fmt.Printf("  Total Cost:   %.4f\n", opp.Context.TotalCost)
	}
	if opp.Context.TotalRevenue > 0 {
		fmt.Printf("  Total Revenue: %.4f\n", opp.Context.TotalRevenue)
	}
	if opp.Context.Payout > 0 {
		fmt.Printf("  Payout:       %.2f\n", opp.Context.Payout)
	}
	fmt.Printf("  Profit:       %.4f (%.0f bps)\n", opp.ProfitAbs, opp.ProfitBps)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
