package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "range-arb",
	Short: "Polymarket range arbitrage engine",
	Long: `Range arbitrage engine for Polymarket price-bucket markets.

The engine groups markets that partition a continuous quantity (e.g. the
Bitcoin price at a fixed settlement time) into range ladders and open-ended
thresholds, streams their top of book over WebSocket, and continuously
searches for riskless combinations: range unbundling/bundling, three-leg
triangles, and same-anchor binary pairs. Detected opportunities are emitted
to storage; no orders are placed.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Optional .env file; real environments set variables directly.
		_ = godotenv.Load()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
