package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/epi-triangulate/internal/engine"
	import_pkg "github.com/epi-triangulate/internal/import"
	"github.com/epi-triangulate/internal/normalize"
)

// readNames reads one name per line from a file, or from stdin for "-".
func readNames(path string) ([]string, error) {
	if path == "-" {
		return import_pkg.ReadLines(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return import_pkg.ReadLines(f)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func createScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score [a] [b]",
		Short: "Print the similarity of two names in percent",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%.2f\n", normalize.Percent(args[0], args[1]))
		},
	}
}

func createResolveCmd() *cobra.Command {
	var (
		threshold   float64
		workers     int
		sortTargets bool
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "resolve [sources-file] [targets-file]",
		Short: "Map each source name to its most similar target name",
		Long: `Reads two lists of names, one per line ("-" reads stdin), and maps every distinct
source name to the most similar target name when the similarity reaches the threshold.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := engine.CheckThreshold("threshold", threshold); err != nil {
				return err
			}
			sources, err := readNames(args[0])
			if err != nil {
				return err
			}
			targets, err := readNames(args[1])
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()
			res, err := engine.Resolve(ctx, sources, targets, threshold,
				engine.ResolveOptions{Workers: workers, SortTargets: sortTargets})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(res)
			}

			for _, s := range res.Sources {
				best := res.Best[s]
				if t, ok := res.Mapping[s]; ok {
					fmt.Printf("%s\t%s\t%s\n", s, t, color.GreenString("%.1f", best.Score))
				} else {
					fmt.Printf("%s\t%s\t%s\n", s, s, color.YellowString("%.1f unmatched", best.Score))
				}
			}
			return nil
		},
	}
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", engine.DefaultThresholds().Woreda, "similarity threshold in percent")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel workers")
	cmd.Flags().BoolVar(&sortTargets, "sort-targets", false, "sort targets before matching so ties do not depend on input order")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the resolution as JSON")
	return cmd
}

func createTuneCmd() *cobra.Command {
	var (
		thresholds []float64
		workers    int
	)

	cmd := &cobra.Command{
		Use:   "tune [sources-file] [targets-file]",
		Short: "Show how many names each threshold maps",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := readNames(args[0])
			if err != nil {
				return err
			}
			targets, err := readNames(args[1])
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()
			points, err := engine.TuneThresholds(ctx, sources, targets, thresholds, engine.ResolveOptions{Workers: workers})
			if err != nil {
				return err
			}

			color.New(color.Bold).Println("threshold  mapped  unmatched  rate")
			for _, p := range points {
				fmt.Printf("%9.1f  %6d  %9d  %5.1f%%\n", p.Threshold, p.Mapped, p.Unmatched, p.Rate*100)
			}
			return nil
		},
	}
	cmd.Flags().Float64SliceVar(&thresholds, "thresholds", nil, "thresholds to try (default 50,55,...,100)")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel workers")
	return cmd
}

func createSuggestCmd() *cobra.Command {
	var sheet string

	cmd := &cobra.Command{
		Use:   "suggest [file]",
		Short: "Suggest column roles for a CSV or XLSX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := import_pkg.LoadFile(args[0], import_pkg.Options{Sheet: sheet, Logger: logger})
			if err != nil {
				return err
			}
			s := engine.SuggestRoles(t.Columns)

			bold := color.New(color.Bold)
			bold.Printf("%s: %d rows, %d columns\n", args[0], t.Len(), len(t.Columns))
			fmt.Printf("  region  = %q\n  zone    = %q\n  woreda  = %q\n  period  = %q\n",
				s.Roles.Region, s.Roles.Zone, s.Roles.Woreda, s.Roles.Period)
			quoted := make([]string, len(s.Roles.Metrics))
			for i, m := range s.Roles.Metrics {
				quoted[i] = fmt.Sprintf("%q", m)
			}
			fmt.Printf("  metrics = [%s]\n", strings.Join(quoted, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "workbook sheet (default first)")
	return cmd
}
