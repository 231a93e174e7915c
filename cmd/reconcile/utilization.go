package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/epi-triangulate/internal/config"
	"github.com/epi-triangulate/internal/export"
	import_pkg "github.com/epi-triangulate/internal/import"
	"github.com/epi-triangulate/internal/table"
	"github.com/epi-triangulate/internal/utilization"
)

func createUtilizationCmd() *cobra.Command {
	var (
		mergedPath string
		jobPath    string
		out        string
		filter     utilization.Filter
	)

	cmd := &cobra.Command{
		Use:   "utilization",
		Short: "Summarise vaccine utilization of a merged table",
		Long: `Reshapes a merged table into one record per woreda, period and antigen, places each
record in a utilization band and prints the totals. The merged table is read from --merged,
or produced by running the merge of --job.`,
		Example: "  reconcile utilization --merged merged.xlsx --period 2024-03 --antigen BCG",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (mergedPath == "") == (jobPath == "") {
				return fmt.Errorf("give exactly one of --merged and --job")
			}

			lookup := utilization.DefaultLookup()
			var merged *table.Table
			if jobPath != "" {
				job, err := config.LoadJob(jobPath)
				if err != nil {
					return err
				}
				lookup = job.Utilization

				ctx, cancel := signalContext()
				defer cancel()
				conn, err := openJobDatabase(ctx, job)
				if err != nil {
					return err
				}
				defer conn.Close()
				res, err := runMerge(ctx, job, conn)
				if err != nil {
					return err
				}
				merged = res.Merged
			} else {
				t, err := import_pkg.LoadFile(mergedPath, import_pkg.Options{Logger: logger})
				if err != nil {
					return err
				}
				merged = t
			}

			records := utilization.Reshape(merged, lookup)
			printUtilization(records, filter, lookup)

			if out != "" {
				if err := export.WriteFile(out, utilization.RecordsTable(filter.Apply(records))); err != nil {
					return err
				}
				color.Green("Wrote %s", out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mergedPath, "merged", "", "merged table (.csv or .xlsx)")
	cmd.Flags().StringVar(&jobPath, "job", "", "job file to merge first")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the filtered records to a .csv or .xlsx file")
	cmd.Flags().StringVar(&filter.Period, "period", "All", "period filter")
	cmd.Flags().StringVar(&filter.Region, "region", "All", "region filter")
	cmd.Flags().StringVar(&filter.Zone, "zone", "All", "zone filter")
	cmd.Flags().StringVar(&filter.Antigen, "antigen", "All", "antigen filter")
	return cmd
}

func categoryColor(c utilization.Category) *color.Color {
	switch c {
	case utilization.Unacceptable:
		return color.New(color.FgRed, color.Bold)
	case utilization.Acceptable:
		return color.New(color.FgGreen)
	default:
		return color.New(color.FgYellow)
	}
}

func printUtilization(records []utilization.Record, f utilization.Filter, lookup utilization.Lookup) {
	s := utilization.Summarize(records, f)
	bold := color.New(color.Bold)

	bold.Printf("Records: %d (periods: %v)\n", s.Records, utilization.Periods(records))
	fmt.Printf("Distributed: %.0f  Administered: %.0f  Overall rate: %.2f%%\n",
		s.TotalDistributed, s.TotalAdministered, s.OverallRate)

	label := lookup.Default
	if f.Antigen != "" && f.Antigen != "All" {
		label = lookup.For(f.Antigen)
	}
	for _, cc := range s.Categories {
		categoryColor(cc.Category).Printf("  %-32s %6d  %6.2f%%\n", label.Label(cc.Category), cc.Count, cc.Percentage)
	}

	bold.Println("By antigen:")
	for _, ar := range utilization.AntigenRates(records, f) {
		b := lookup.For(ar.Antigen)
		c := utilization.Categorize(ar.Rate, b)
		fmt.Printf("  %-10s %10.0f %10.0f  %s\n", ar.Antigen, ar.Distributed, ar.Administered,
			categoryColor(c).Sprintf("%.2f%%", ar.Rate))
	}
}
