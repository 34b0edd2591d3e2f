package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/mselser95/range-arb/internal/engine"
	"github.com/mselser95/range-arb/internal/feed"
	"github.com/mselser95/range-arb/internal/interval"
	"github.com/mselser95/range-arb/internal/metadata"
	"github.com/mselser95/range-arb/internal/storage"
	"github.com/mselser95/range-arb/internal/structure"
	"github.com/mselser95/range-arb/pkg/config"
	"github.com/mselser95/range-arb/pkg/healthprobe"
	"github.com/mselser95/range-arb/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	healthChecker  *healthprobe.HealthChecker
	httpServer     *httpserver.Server
	feed           *feed.Manager
	engine         *engine.Engine
	builder        *structure.Builder
	metadataClient *metadata.Client
	recordCache    *metadata.RecordCache
	storage        storage.Storage

	// lastGroups backs the expiry sweep.
	lastGroups   []*structure.RangeGroup
	lastGroupsMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options holds application options.
type Options struct {
	// Overrides is the manual interval override table.
	Overrides interval.Overrides
}

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	recordCache, err := metadata.NewRecordCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup record cache: %w", err)
	}

	metadataClient := metadata.NewClient(cfg.PolymarketGammaURL, logger)
	builder := structure.NewBuilder(opts.Overrides, logger)

	feedManager := feed.New(feed.Config{
		URL:                   cfg.PolymarketWSURL,
		DialTimeout:           cfg.WSDialTimeout,
		PongTimeout:           cfg.WSPongTimeout,
		PingInterval:          cfg.WSPingInterval,
		ReconnectInitialDelay: cfg.WSReconnectInitialDelay,
		ReconnectMaxDelay:     cfg.WSReconnectMaxDelay,
		ReconnectBackoffMult:  cfg.WSReconnectBackoffMult,
		BufferSize:            cfg.WSMessageBufferSize,
		Logger:                logger,
	})

	detectionEngine := engine.New(engine.Config{
		MinProfitBps:        cfg.MinProfitBps,
		MinProfitAbs:        cfg.MinProfitAbs,
		Cooldown:            cfg.Cooldown,
		SizeChangeThreshold: cfg.SizeChangeThreshold,
		TriangleSellEnabled: cfg.TriangleSellEnabled,
		BinaryPairsEnabled:  cfg.BinaryPairsEnabled,
		UpdateChannel:       feedManager.Updates(),
		Logger:              logger,
	})

	healthChecker.SetStats(func() map[string]int {
		summaries := detectionEngine.GroupSummaries()
		triangles := 0
		for _, s := range summaries {
			triangles += s.Triangles
		}
		return map[string]int{"groups": len(summaries), "triangles": triangles}
	})

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Engine:        detectionEngine,
		RecordCache:   recordCache,
	})

	opportunityStorage, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		healthChecker:  healthChecker,
		httpServer:     httpServer,
		feed:           feedManager,
		engine:         detectionEngine,
		builder:        builder,
		metadataClient: metadataClient,
		recordCache:    recordCache,
		storage:        opportunityStorage,
		ctx:            ctx,
		cancel:         cancel,
	}, nil
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		return storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
	}
	return storage.NewConsoleStorage(logger), nil
}
