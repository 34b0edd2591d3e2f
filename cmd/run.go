package cmd

import (
	"fmt"

	"github.com/mselser95/range-arb/internal/app"
	"github.com/mselser95/range-arb/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the range arbitrage engine",
	Long: `Starts the range arbitrage engine, which will:
1. Load the market structure snapshot from the Gamma API
2. Group markets into range ladders by (symbol, settlement time)
3. Subscribe to their top of book via WebSocket
4. Emit range, triangle and binary-pair arbitrage opportunities`,
	RunE: runEngine,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runEngine(cmd *cobra.Command, args []string) error {
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

	application, err := app.New(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
