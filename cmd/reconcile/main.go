package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/epi-triangulate/internal/config"
	"github.com/epi-triangulate/internal/debug"
)

var (
	logLevel string
	noColor  bool
	logger   hclog.Logger
)

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	rootCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Immunization data triangulation",
		Long: `Reconciles vaccine distribution data against administration reports: fuzzy-matches
region, zone and woreda names, merges the two tables and reports utilization.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
			logger = debug.NewLogger("reconcile", logLevel)
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error); defaults to $"+debug.LevelEnv)
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(createMergeCmd())
	rootCmd.AddCommand(createResolveCmd())
	rootCmd.AddCommand(createScoreCmd())
	rootCmd.AddCommand(createTuneCmd())
	rootCmd.AddCommand(createSuggestCmd())
	rootCmd.AddCommand(createUtilizationCmd())
	rootCmd.AddCommand(createServeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}
