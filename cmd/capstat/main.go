package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Blanqui04/capstat/cmd/capstat/commands"
	"github.com/Blanqui04/capstat/logger"
)

var rootCmd = &cobra.Command{
	Use:   "capstat",
	Short: "capstat - process capability studies over multi-machine measurement data",
	Long: `capstat - statistical process capability engine.

capstat aggregates dimensional measurements from heterogeneous measuring
machines, computes Cp/Cpk and Pp/Ppk per element, tests normality, and
extends short samples with clearly flagged synthetic values.

Available commands:
  study    - Run a capability study
  list     - List elements and lots for a client reference
  sources  - Show configured measurement sources

Examples:
  capstat study --client acme --reference REF-100 --lot L1
  capstat study --client acme --reference REF-100 --extrapolate --csv out.csv
  capstat list elements --client acme --reference REF-100
  capstat sources`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := commands.LoadConfig()
		if err != nil {
			return err
		}
		if err := logger.Initialize(cfg.Logging.JSON); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if verbose, _ := cmd.Flags().GetCount("verbose"); verbose > 0 {
			logger.SetVerbose()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity")
	rootCmd.PersistentFlags().StringVar(&commands.ConfigPath, "config", "", "Path to configuration file (default: capstat.toml)")

	rootCmd.AddCommand(commands.StudyCmd)
	rootCmd.AddCommand(commands.ListCmd)
	rootCmd.AddCommand(commands.SourcesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
