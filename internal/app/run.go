package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mselser95/range-arb/internal/structure"
	"go.uber.org/zap"
)

const expirySweepInterval = time.Minute

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.Int("min-profit-bps", a.cfg.MinProfitBps),
		zap.Duration("cooldown", a.cfg.Cooldown),
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.String("log-level", a.cfg.LogLevel))

	a.wg.Add(1)
	go a.runHTTPServer()

	err := a.engine.Start(a.ctx)
	if err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	a.wg.Add(1)
	go a.consumeOpportunities()

	err = a.loadStructure()
	if err != nil {
		return fmt.Errorf("initial structure load: %w", err)
	}

	err = a.feed.Start()
	if err != nil {
		return fmt.Errorf("start feed: %w", err)
	}

	err = a.subscribeCurrentTokens()
	if err != nil {
		return fmt.Errorf("initial subscription: %w", err)
	}

	a.wg.Add(2)
	go a.runRebuildLoop()
	go a.runExpirySweep()

	a.healthChecker.SetReady(true)
	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("ws-url", a.cfg.PolymarketWSURL))

	return a.waitForShutdown()
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

// loadStructure fetches the structure snapshot, rebuilds the groups and
// hands them to the engine. Runs off the hot path; failures leave the
// previous snapshot in effect.
func (a *App) loadStructure() error {
	ctx, cancel := context.WithTimeout(a.ctx, 2*time.Minute)
	defer cancel()

	records, err := a.metadataClient.FetchRecords(ctx, a.cfg.MarketLimit)
	if err != nil {
		return fmt.Errorf("fetch records: %w", err)
	}

	a.recordCache.Put(records)

	groups := a.builder.Build(records, time.Now())
	a.engine.SubmitStructure(groups)

	a.lastGroupsMu.Lock()
	a.lastGroups = groups
	a.lastGroupsMu.Unlock()

	a.logger.Info("structure-loaded",
		zap.Int("records", len(records)),
		zap.Int("groups", len(groups)))

	return nil
}

// subscribeCurrentTokens subscribes both token sides of every descriptor in
// the last built group set.
func (a *App) subscribeCurrentTokens() error {
	a.lastGroupsMu.Lock()
	tokens := collectTokens(a.lastGroups)
	a.lastGroupsMu.Unlock()

	return a.feed.Subscribe(tokens)
}

func collectTokens(groups []*structure.RangeGroup) []string {
	seen := make(map[string]struct{})
	var tokens []string

	add := func(descs []structure.Descriptor) {
		for i := range descs {
			for _, tokenID := range []string{descs[i].YesTokenID, descs[i].NoTokenID} {
				if tokenID == "" {
					continue
				}
				if _, ok := seen[tokenID]; ok {
					continue
				}
				seen[tokenID] = struct{}{}
				tokens = append(tokens, tokenID)
			}
		}
	}

	for _, group := range groups {
		add(group.Children)
		add(group.Parents)
		add(group.Belows)
	}

	return tokens
}

func (a *App) runRebuildLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.cfg.RebuildInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			err := a.loadStructure()
			if err != nil {
				a.logger.Error("structure-rebuild-failed", zap.Error(err))
				continue
			}
			err = a.subscribeCurrentTokens()
			if err != nil {
				a.logger.Error("resubscribe-failed", zap.Error(err))
			}
		}
	}
}

// runExpirySweep purges groups whose settlement time has passed.
func (a *App) runExpirySweep() {
	defer a.wg.Done()

	ticker := time.NewTicker(expirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case now := <-ticker.C:
			var expired []string

			a.lastGroupsMu.Lock()
			kept := a.lastGroups[:0]
			for _, group := range a.lastGroups {
				if !group.SettlementTime.IsZero() && group.SettlementTime.Before(now) {
					expired = append(expired, group.Key)
					continue
				}
				kept = append(kept, group)
			}
			a.lastGroups = kept
			a.lastGroupsMu.Unlock()

			if len(expired) > 0 {
				a.logger.Info("expiring-groups", zap.Strings("group-keys", expired))
				a.engine.SubmitExpiry(expired)
			}
		}
	}
}

// consumeOpportunities drains the opportunity stream into storage.
func (a *App) consumeOpportunities() {
	defer a.wg.Done()

	for opp := range a.engine.Opportunities() {
		err := a.storage.StoreOpportunity(a.ctx, opp)
		if err != nil {
			a.logger.Error("store-opportunity-failed",
				zap.String("opportunity-id", opp.ID),
				zap.Error(err))
		}
	}
}

func (a *App) waitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))

	return a.Shutdown()
}

// Shutdown stops all components gracefully.
func (a *App) Shutdown() error {
	a.healthChecker.SetReady(false)
	a.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-shutdown-error", zap.Error(err))
	}

	err = a.feed.Close()
	if err != nil {
		a.logger.Error("feed-close-error", zap.Error(err))
	}

	err = a.engine.Close()
	if err != nil {
		a.logger.Error("engine-close-error", zap.Error(err))
	}

	err = a.storage.Close()
	if err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	a.recordCache.Close()

	a.wg.Wait()
	a.logger.Info("application-stopped")
	return nil
}
