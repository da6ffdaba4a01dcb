package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Blanqui04/capstat/errors"
)

// ListCmd groups the discovery commands operators use before running a
// study.
var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List elements and lots for a client reference",
	Long: `list — Discover what the sources hold

Examples:
  capstat list elements --client acme --reference REF-100
  capstat list lots --client acme --reference REF-100`,
}

var listElementsCmd = &cobra.Command{
	Use:   "elements",
	Short: "List distinct element names",
	RunE:  runListElements,
}

var listLotsCmd = &cobra.Command{
	Use:   "lots",
	Short: "List distinct lot identifiers",
	RunE:  runListLots,
}

var (
	listClientFlag    string
	listReferenceFlag string
	listSourcesFlag   []string
)

func init() {
	ListCmd.AddCommand(listElementsCmd)
	ListCmd.AddCommand(listLotsCmd)

	ListCmd.PersistentFlags().StringVar(&listClientFlag, "client", "", "Client identifier (required)")
	ListCmd.PersistentFlags().StringVar(&listReferenceFlag, "reference", "", "Part reference, substring match (required)")
	ListCmd.PersistentFlags().StringSliceVar(&listSourcesFlag, "source", nil, "Source IDs to query (default: all)")
	_ = ListCmd.MarkPersistentFlagRequired("client")
	_ = ListCmd.MarkPersistentFlagRequired("reference")
}

func runListElements(cmd *cobra.Command, args []string) error {
	return runList(cmd.Context(), "elements")
}

func runListLots(cmd *cobra.Command, args []string) error {
	return runList(cmd.Context(), "lots")
}

func runList(ctx context.Context, what string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	conn, agg, err := openAggregator(cfg, cliLogger())
	if err != nil {
		return err
	}
	defer conn.Close()

	if ctx == nil {
		ctx = context.Background()
	}

	switch what {
	case "elements":
		elements, err := agg.ListElements(ctx, listClientFlag, listReferenceFlag, listSourcesFlag)
		if err != nil {
			return err
		}
		if len(elements) == 0 {
			fmt.Println("No results.")
			return nil
		}
		fmt.Printf("%-24s %-12s %-12s %8s\n", "ELEMENT", "DATUM", "PROPERTY", "COUNT")
		for _, info := range elements {
			fmt.Printf("%-24s %-12s %-12s %8d\n", info.Element, info.Datum, info.Property, info.Count)
		}
	case "lots":
		lots, err := agg.ListLots(ctx, listClientFlag, listReferenceFlag, listSourcesFlag)
		if err != nil {
			return err
		}
		if len(lots) == 0 {
			fmt.Println("No results.")
			return nil
		}
		fmt.Printf("%-16s %8s %-20s %-20s\n", "LOT", "COUNT", "FIRST", "LAST")
		for _, info := range lots {
			fmt.Printf("%-16s %8d %-20s %-20s\n", info.Lot, info.Count,
				info.First.Format("2006-01-02 15:04:05"), info.Last.Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}
