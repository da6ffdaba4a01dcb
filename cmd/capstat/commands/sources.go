package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Blanqui04/capstat/errors"
)

// SourcesCmd shows the configured measurement sources.
var SourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Show configured measurement sources",
	RunE:  runSources,
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	if len(cfg.Sources) == 0 {
		fmt.Println("No sources configured.")
		return nil
	}

	fmt.Printf("%-16s %-24s %8s %8s %8s\n", "ID", "TABLE", "TIMEOUT", "QPS", "MAPPED")
	for _, sc := range cfg.Sources {
		fmt.Printf("%-16s %-24s %7ds %8.0f %8d\n",
			sc.ID, sc.Table, sc.QueryTimeoutSeconds, sc.MaxQueriesPerSec, len(sc.Columns))
	}
	return nil
}
