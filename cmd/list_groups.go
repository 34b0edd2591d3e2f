package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mselser95/range-arb/internal/metadata"
	"github.com/mselser95/range-arb/internal/structure"
	"github.com/mselser95/range-arb/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var listGroupsCmd = &cobra.Command{
	Use:   "list-groups",
	Short: "List the range groups built from active markets",
	Long: `Fetches active markets from the Gamma API, runs the structure builder and
displays the resulting range groups for debugging purposes.`,
	RunE: runListGroups,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(listGroupsCmd)
	listGroupsCmd.Flags().IntP("limit", "l", 200, "Maximum number of markets to fetch (0 = unlimited)")
	listGroupsCmd.Flags().BoolP("verbose", "v", false, "Show the descriptors inside each group")
}

func runListGroups(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
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

	limit, _ := cmd.Flags().GetInt("limit")
	verbose, _ := cmd.Flags().GetBool("verbose")

	client := metadata.NewClient(cfg.PolymarketGammaURL, logger)

	fmt.Printf("Fetching up to %d active markets...\n\n", limit)

	records, err := client.FetchRecords(ctx, limit)
	if err != nil {
		return fmt.Errorf("fetch records: %w", err)
	}

	builder := structure.NewBuilder(nil, logger)
	groups := builder.Build(records, time.Now())

	if len(groups) == 0 {
		fmt.Println("No range groups found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "GROUP\tCHILDREN\tPARENTS\tBELOWS\tSTEP\tUNMATCHED\n")
	fmt.Fprintf(w, "-----\t--------\t-------\t------\t----\t---------\n")

	for _, group := range groups {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%g\t%d\n",
			group.Key,
			len(group.Children),
			len(group.Parents),
			len(group.Belows),
			group.Step,
			len(group.Unmatched))

		if verbose {
			printDescriptors(w, "child", group.Children)
			printDescriptors(w, "parent", group.Parents)
			printDescriptors(w, "below", group.Belows)
			printDescriptors(w, "unmatched", group.Unmatched)
			fmt.Fprintf(w, "\n")
		}
	}

	w.Flush()

	fmt.Printf("\nTotal: %d markets in %d groups\n", len(records), len(groups))

	return nil
}

func printDescriptors(w *tabwriter.Writer, role string, descs []structure.Descriptor) {
	for i := range descs {
		label := descs[i].Label
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(w, "\t[%s] %s\t%s\n", role, descs[i].Slug, label)
	}
}
