package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/epi-triangulate/internal/config"
	"github.com/epi-triangulate/internal/db"
	"github.com/epi-triangulate/internal/engine"
	"github.com/epi-triangulate/internal/export"
	import_pkg "github.com/epi-triangulate/internal/import"
	"github.com/epi-triangulate/internal/table"
)

// thresholdFlags overrides job thresholds from the command line.
type thresholdFlags struct {
	region, zone, woreda float64
}

func (f *thresholdFlags) register(flags *pflag.FlagSet) {
	flags.Float64Var(&f.region, "region-threshold", 0, "region similarity threshold in percent (default from job)")
	flags.Float64Var(&f.zone, "zone-threshold", 0, "zone similarity threshold in percent (default from job)")
	flags.Float64Var(&f.woreda, "woreda-threshold", 0, "woreda similarity threshold in percent (default from job)")
}

// apply copies the flags that were set onto t and validates the result.
func (f *thresholdFlags) apply(flags *pflag.FlagSet, t *engine.Thresholds) error {
	if flags.Changed("region-threshold") {
		t.Region = f.region
	}
	if flags.Changed("zone-threshold") {
		t.Zone = f.zone
	}
	if flags.Changed("woreda-threshold") {
		t.Woreda = f.woreda
	}
	return t.Validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openJobDatabase connects to the job's database, if it names one.
func openJobDatabase(ctx context.Context, job *config.JobConfig) (*db.Connection, error) {
	if job.Database == "" {
		return nil, nil
	}
	return db.Open(ctx, job.Database)
}

// loadJobTables reads both input tables of a job.
func loadJobTables(ctx context.Context, job *config.JobConfig, conn *db.Connection) (a, b *table.Table, err error) {
	opts := import_pkg.Options{Logger: logger}
	sqlDB := conn.SQL()
	if a, err = import_pkg.Load(ctx, "distributed", job.Distributed.Source, sqlDB, opts); err != nil {
		return nil, nil, err
	}
	if b, err = import_pkg.Load(ctx, "administered", job.Administered.Source, sqlDB, opts); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func createMergeCmd() *cobra.Command {
	var (
		jobPath   string
		out       string
		unmatched string
		tableName string
		workers   int
		th        thresholdFlags
	)

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Normalize administered names onto distributed names and merge the tables",
		Long: `Reads the distributed and administered tables named in a job file, maps the
administered region, zone and woreda names onto the distributed ones, and writes the
merged table and the list of woredas that could not be matched.`,
		Example: "  reconcile merge --job job.toml --out merged.xlsx --unmatched unmatched.csv",
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := config.LoadJob(jobPath)
			if err != nil {
				return err
			}
			if err := th.apply(cmd.Flags(), &job.Thresholds); err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				job.Workers = workers
			}
			if out != "" {
				job.Output.Merged = out
			}
			if unmatched != "" {
				job.Output.Unmatched = unmatched
			}
			if tableName != "" {
				job.Output.Table = tableName
			}

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

			// stdout carries only the merged CSV when no output is named.
			stdout, status := cmd.OutOrStdout(), cmd.OutOrStdout()
			if mergedToStdout(job) {
				status = cmd.ErrOrStderr()
			}
			printMergeSummary(status, res)
			return writeMergeOutputs(ctx, job, conn, res, stdout, status)
		},
	}

	cmd.Flags().StringVar(&jobPath, "job", "job.toml", "job file")
	cmd.Flags().StringVarP(&out, "out", "o", "", "merged output file (.csv or .xlsx)")
	cmd.Flags().StringVar(&unmatched, "unmatched", "", "unmatched woreda list output file (.csv)")
	cmd.Flags().StringVar(&tableName, "table", "", "database table to store the merged result in")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel workers for name matching")
	th.register(cmd.Flags())
	return cmd
}

func runMerge(ctx context.Context, job *config.JobConfig, conn *db.Connection) (*engine.Result, error) {
	a, b, err := loadJobTables(ctx, job, conn)
	if err != nil {
		return nil, err
	}
	return engine.Reconcile(ctx, engine.Input{
		A:          a,
		B:          b,
		RolesA:     job.Distributed.Roles(),
		RolesB:     job.Administered.Roles(),
		Thresholds: job.Thresholds,
		Options:    engine.Options{Resolve: job.ResolveOptions(), Logger: logger},
	})
}

func printMergeSummary(w io.Writer, res *engine.Result) {
	color.New(color.Bold).Fprintf(w, "Run %s\n", res.RunID)
	for _, s := range res.Stats {
		status := color.GreenString("%d mapped", s.Mapped)
		if s.Empty {
			status = color.YellowString("no names")
		}
		unmatched := fmt.Sprintf("%d unmatched", s.Unmatched)
		if s.Unmatched > 0 {
			unmatched = color.YellowString(unmatched)
		}
		fmt.Fprintf(w, "  %-7s threshold %5.1f  %s, %s of %d\n", s.Level, s.Threshold, status, unmatched, s.Sources)
	}
	fmt.Fprintf(w, "Merged rows: %d (%s)\n", res.Merged.Len(), res.Elapsed.Round(time.Millisecond))
	if len(res.Unmatched) > 0 {
		fmt.Fprintln(w, color.YellowString("Unmatched woredas: %d", len(res.Unmatched)))
		for _, name := range res.Unmatched {
			fmt.Fprintf(w, "  - %s\n", name)
		}
	}
}

// mergedToStdout reports whether the merged table has no file or table to go to.
func mergedToStdout(job *config.JobConfig) bool {
	return job.Output.Merged == "" && job.Output.Table == ""
}

// writeMergeOutputs writes the merged table and the unmatched list where the job says.
// Without a merged file or table the merged CSV goes to stdout; progress lines go to status.
func writeMergeOutputs(ctx context.Context, job *config.JobConfig, conn *db.Connection, res *engine.Result, stdout, status io.Writer) error {
	if job.Output.Merged != "" {
		if err := export.WriteFile(job.Output.Merged, res.Merged); err != nil {
			return err
		}
		fmt.Fprintln(status, color.GreenString("Wrote %s", job.Output.Merged))
	}
	if job.Output.Unmatched != "" {
		f, err := os.Create(job.Output.Unmatched)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", job.Output.Unmatched, err)
		}
		defer f.Close()
		if err := export.WriteUnmatchedCSV(f, res.Unmatched); err != nil {
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintln(status, color.GreenString("Wrote %s", job.Output.Unmatched))
	}
	if job.Output.Table != "" {
		if conn == nil {
			return fmt.Errorf("output table %q needs a database URL in the job file", job.Output.Table)
		}
		if err := export.WriteSQL(ctx, conn.DB, conn.Driver, job.Output.Table, res.Merged); err != nil {
			return err
		}
		fmt.Fprintln(status, color.GreenString("Stored %d rows in table %s", res.Merged.Len(), job.Output.Table))
	}
	if mergedToStdout(job) {
		return export.WriteCSV(stdout, res.Merged)
	}
	return nil
}
