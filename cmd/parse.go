package cmd

import (
	"fmt"

	"github.com/mselser95/range-arb/internal/interval"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var parseCmd = &cobra.Command{
	Use:   "parse [question]",
	Short: "Run the interval parser on a market question",
	Long: `Feeds a market question (and optionally a slug via --slug) through the
interval parser and prints the derived kind, bounds and label. Useful for
checking how a market will be classified before adding an override.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().StringP("slug", "s", "", "Market slug used as a fallback source")
}

func runParse(cmd *cobra.Command, args []string) error {
	question := args[0]
	slug, _ := cmd.Flags().GetString("slug")

	parsed, ok := interval.Parse(question, slug)
	if !ok {
		fmt.Println("kind:   unknown (no interval found)")
		return nil
	}

	fmt.Printf("kind:   %s\n", parsed.Kind)
	fmt.Printf("label:  %s\n", parsed.Label)
	fmt.Printf("source: %s\n", parsed.Source)
	if parsed.Bounds.HasLower {
		fmt.Printf("lower:  %g\n", parsed.Bounds.Lower)
	}
	if parsed.Bounds.HasUpper {
		fmt.Printf("upper:  %g\n", parsed.Bounds.Upper)
	}

	return nil
}
