package commands

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Blanqui04/capstat/aggregate"
	"github.com/Blanqui04/capstat/capability"
	"github.com/Blanqui04/capstat/errors"
	"github.com/Blanqui04/capstat/extrapolate"
	"github.com/Blanqui04/capstat/study"
)

// StudyCmd runs a capability study.
var StudyCmd = &cobra.Command{
	Use:   "study",
	Short: "Run a capability study",
	Long: `study — Run a process capability study

Aggregates measurements for a client reference across the configured
sources, analyzes every element found, and prints one line per element
with its capability indices and verdict.

Examples:
  capstat study --client acme --reference REF-100
  capstat study --client acme --reference REF-100 --lot L1 --extrapolate
  capstat study --client acme --reference REF-100 --source zeiss --csv study.csv`,
	RunE: runStudy,
}

var (
	studyClientFlag      string
	studyReferenceFlag   string
	studyLotFlag         string
	studyElementFlag     string
	studySourcesFlag     []string
	studyExtrapolateFlag bool
	studyCSVFlag         string
)

func init() {
	StudyCmd.Flags().StringVar(&studyClientFlag, "client", "", "Client identifier (required)")
	StudyCmd.Flags().StringVar(&studyReferenceFlag, "reference", "", "Part reference, substring match (required)")
	StudyCmd.Flags().StringVar(&studyLotFlag, "lot", "", "Lot identifier, substring match")
	StudyCmd.Flags().StringVar(&studyElementFlag, "element", "", "Restrict the study to one element")
	StudyCmd.Flags().StringSliceVar(&studySourcesFlag, "source", nil, "Source IDs to query (default: all)")
	StudyCmd.Flags().BoolVar(&studyExtrapolateFlag, "extrapolate", false, "Extend short samples with synthetic draws")
	StudyCmd.Flags().StringVar(&studyCSVFlag, "csv", "", "Write the study to a CSV file")
	_ = StudyCmd.MarkFlagRequired("client")
	_ = StudyCmd.MarkFlagRequired("reference")
}

func runStudy(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	log := cliLogger()
	conn, agg, err := openAggregator(cfg, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	ext := extrapolate.NewManager(extrapolate.Config{
		TargetPValue:     cfg.Extrapolation.TargetPValue,
		MaxAttempts:      cfg.Extrapolation.MaxAttempts,
		TargetSampleSize: cfg.Extrapolation.TargetSampleSize,
	}, extrapolate.WithLogger(log))

	mgr := study.NewManager(agg, ext, cfg.Study, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := mgr.Run(ctx, study.Request{
		Filter: aggregate.Filter{
			Client:    studyClientFlag,
			Reference: studyReferenceFlag,
			Lot:       studyLotFlag,
			Element:   studyElementFlag,
			SourceIDs: studySourcesFlag,
		},
		Extrapolate: studyExtrapolateFlag,
	})
	if err != nil {
		return err
	}

	printSummary(summary)

	if studyCSVFlag != "" {
		f, err := os.Create(studyCSVFlag)
		if err != nil {
			return errors.Wrap(err, "failed to create CSV file")
		}
		defer f.Close()
		if err := summary.WriteCSV(f); err != nil {
			return err
		}
		fmt.Printf("\nStudy written to %s\n", studyCSVFlag)
	}
	return nil
}

func printSummary(s *study.Summary) {
	fmt.Printf("Capability Study %s\n", s.StudyID)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("Client:    %s\n", s.Client)
	fmt.Printf("Reference: %s\n", s.Reference)
	if s.Lot != "" {
		fmt.Printf("Lot:       %s\n", s.Lot)
	}
	if s.Partial {
		fmt.Printf("\nWARNING: partial study, %d source(s) did not answer:\n", len(s.SourceErrors))
		for _, se := range s.SourceErrors {
			fmt.Printf("  %s: %v\n", se.SourceID, se.Err)
		}
	}
	fmt.Println()

	fmt.Printf("%-28s %6s %6s %8s %8s %8s %8s  %s\n",
		"ELEMENT", "N", "SYN", "CP", "CPK", "PP", "PPK", "STATUS")
	for i := range s.Entries {
		e := &s.Entries[i]
		if e.Result == nil {
			fmt.Printf("%-28s %6s %6s %8s %8s %8s %8s  %s\n",
				e.Key.ID(), "-", "-", "-", "-", "-", "-", e.ErrKind)
			continue
		}
		r := e.Result
		status := string(r.Status)
		if e.ErrKind != "" {
			status += " (" + e.ErrKind + ")"
		}
		fmt.Printf("%-28s %6d %6d %8s %8s %8s %8s  %s\n",
			e.Key.ID(), r.N, r.NSynthetic,
			fmtIndex(r.Cp), fmtIndex(r.Cpk), fmtIndex(r.Pp), fmtIndex(r.Ppk),
			status)
	}

	counts := s.Counts()
	fmt.Printf("\n%d elements: %d OK, %d to check, %d NOK, %d insufficient data, %d failed\n",
		len(s.Entries),
		counts[capability.StatusOK],
		counts[capability.StatusToCheck],
		counts[capability.StatusNOK],
		counts[capability.StatusInsufficientData],
		s.FailedCount())
}

func fmtIndex(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	if math.IsInf(v, 1) {
		return "inf"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
