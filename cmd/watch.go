package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mselser95/range-arb/internal/feed"
	"github.com/mselser95/range-arb/internal/metadata"
	"github.com/mselser95/range-arb/pkg/config"
	"github.com/mselser95/range-arb/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var watchCmd = &cobra.Command{
	Use:   "watch <market-slug>",
	Short: "Watch top-of-book updates for a specific market",
	Long: `Connects to the CLOB WebSocket and displays the normalised top-of-book
stream for both tokens of one market, exactly as the engine would consume
it. Useful for debugging the dirty filter and evaluator inputs.

Example:
  range-arb watch bitcoin-above-96000-march-7`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolP("json", "j", false, "Output updates as JSON")
}

func runWatch(cmd *cobra.Command, args []string) error {
	marketSlug := args[0]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	jsonOutput, _ := cmd.Flags().GetBool("json")

	client := metadata.NewClient(cfg.PolymarketGammaURL, logger)
	rec, err := client.FetchRecordBySlug(ctx, marketSlug)
	if err != nil {
		return fmt.Errorf("fetch market: %w", err)
	}

	fmt.Printf("Market: %s\n", rec.Question)
	fmt.Printf("Slug: %s\n", rec.Slug)
	fmt.Printf("YES Token ID: %s\n", rec.YesTokenID())
	fmt.Printf("NO Token ID: %s\n\n", rec.NoTokenID())

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

	err = feedManager.Start()
	if err != nil {
		return fmt.Errorf("start feed: %w", err)
	}
	defer func() {
		_ = feedManager.Close()
	}()

	err = feedManager.Subscribe([]string{rec.YesTokenID(), rec.NoTokenID()})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	fmt.Println("Subscribed! Watching for top-of-book updates...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	updates := feedManager.Updates()

	for {
		select {
		case <-sigChan:
			fmt.Println("\nShutting down...")
			return nil
		case update, ok := <-updates:
			if !ok {
				return fmt.Errorf("update channel closed")
			}

			if jsonOutput {
				jsonBytes, _ := json.MarshalIndent(update, "", "  ")
				fmt.Println(string(jsonBytes))
			} else {
				printUpdate(w, update, rec.YesTokenID())
			}
		}
	}
}

func printUpdate(w *tabwriter.Writer, update *types.TopOfBookUpdate, yesTokenID string) {
	outcome := "NO"
	if update.AssetID == yesTokenID {
		outcome = "YES"
	}

	timestamp := time.UnixMilli(update.TimestampMs).Format("15:04:05")

	bid := "N/A"
	if update.BestBid > 0 {
		bid = fmt.Sprintf("%.4f@%.2f", update.BestBid, update.BestBidSize)
	}
	ask := "N/A"
	if update.BestAsk > 0 {
		ask = fmt.Sprintf("%.4f@%.2f", update.BestAsk, update.BestAskSize)
	}

	fmt.Fprintf(w, "[%s] %s\tBid: %s\tAsk: %s\n", timestamp, outcome, bid, ask)
	w.Flush()
}
