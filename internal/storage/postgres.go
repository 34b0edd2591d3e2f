package storage

import (
	"context"
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"github.com/mselser95/range-arb/internal/engine"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// StoreOpportunity stores one opportunity; legs go into a JSONB column.
func (p *PostgresStorage) StoreOpportunity(ctx context.Context, opp *engine.Opportunity) error {
	legs, err := json.Marshal(opp.Children)
	if err != nil {
		return fmt.Errorf("marshal legs: %w", err)
	}

	var parentMarketID, parentUpperMarketID string
	if opp.Parent != nil {
		parentMarketID = opp.Parent.MarketID
	}
	if opp.ParentUpper != nil {
		parentUpperMarketID = opp.ParentUpper.MarketID
	}

	query := `
		INSERT INTO range_opportunities (
			id, strategy, group_key, detected_at, timestamp_ms,
			parent_market_id, parent_upper_market_id, legs,
			profit_abs, profit_bps, total_cost, total_revenue, payout
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`

	_, err = p.db.ExecContext(ctx, query,
		opp.ID,
		string(opp.Strategy),
		opp.GroupKey,
		opp.DetectedAt,
		opp.TimestampMs,
		parentMarketID,
		parentUpperMarketID,
		legs,
		opp.ProfitAbs,
		opp.ProfitBps,
		opp.Context.TotalCost,
		opp.Context.TotalRevenue,
		opp.Context.Payout,
	)

	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}

	p.logger.Debug("opportunity-stored",
		zap.String("opportunity-id", opp.ID),
		zap.String("strategy", string(opp.Strategy)),
		zap.String("group-key", opp.GroupKey))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
