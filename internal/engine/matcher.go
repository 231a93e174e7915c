package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/epi-triangulate/internal/debug"
	"github.com/epi-triangulate/internal/table"
)

// Options controls a reconciliation run without changing its result.
type Options struct {
	Resolve ResolveOptions
	Logger  hclog.Logger
}

// Input is everything one reconciliation needs: A holds the reference spelling of the
// place names (distributed doses), B is normalized onto it (administered doses).
type Input struct {
	A, B       *table.Table
	RolesA     Roles
	RolesB     Roles
	Thresholds Thresholds
	Options    Options
}

// LevelStats summarises one hierarchy level of a run.
type LevelStats struct {
	Level     Level   `json:"level"`
	Threshold float64 `json:"threshold"`
	Sources   int     `json:"sources"`
	Targets   int     `json:"targets"`
	Mapped    int     `json:"mapped"`
	Unmatched int     `json:"unmatched"`
	Empty     bool    `json:"empty"`
}

// Result is the output of Reconcile.
type Result struct {
	RunID string `json:"run_id"`
	// Merged is the outer join of A and normalized B on the standard key.
	Merged *table.Table `json:"merged"`
	// Normalized is B projected to the standard columns and rewritten, with Original_Woreda.
	Normalized *table.Table `json:"-"`
	// Unmatched holds the distinct original woreda names of B that matched nothing.
	Unmatched     []string       `json:"unmatched"`
	UnmatchedRows *table.Table   `json:"unmatched_rows"`
	Levels        []*LevelResult `json:"-"`
	Stats         []LevelStats   `json:"levels"`
	Elapsed       time.Duration  `json:"elapsed"`
}

// Reconcile validates the column roles and thresholds, projects both tables to the standard
// key columns, normalizes B's place names onto A's, merges the two and reports the woredas
// of B that found no counterpart. Role and threshold problems are returned as
// *ConfigurationError before any matching starts. Neither input table is modified.
func Reconcile(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	logger := debug.OrNull(in.Options.Logger)
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	if in.A == nil || in.B == nil {
		return nil, &ConfigurationError{Reason: "both tables are required"}
	}
	if err := ValidateRoles(in.A, in.RolesA); err != nil {
		return nil, err
	}
	if err := ValidateRoles(in.B, in.RolesB); err != nil {
		return nil, err
	}
	if err := in.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if err := CheckMergedColumns(in.RolesA.Metrics, in.RolesB.Metrics); err != nil {
		return nil, err
	}

	stdA, err := standardize(in.A, in.RolesA)
	if err != nil {
		return nil, fmt.Errorf("failed to standardize table %q: %w", in.A.Name, err)
	}
	stdB, err := standardize(in.B, in.RolesB)
	if err != nil {
		return nil, fmt.Errorf("failed to standardize table %q: %w", in.B.Name, err)
	}
	logger.Info("reconciling", "rows_a", stdA.Len(), "rows_b", stdB.Len(),
		"metrics_a", len(in.RolesA.Metrics), "metrics_b", len(in.RolesB.Metrics))

	roles := StandardRoles(nil)
	done := debug.Timing(logger, "normalization")
	norm, err := Normalize(ctx, stdB, roles, stdA, roles, in.Thresholds, in.Options.Resolve)
	done()
	if err != nil {
		return nil, fmt.Errorf("normalization failed: %w", err)
	}

	stats := make([]LevelStats, 0, len(norm.Levels))
	for _, lr := range norm.Levels {
		st := LevelStats{
			Level:     lr.Level,
			Threshold: lr.Threshold,
			Sources:   len(lr.Resolution.Sources),
			Targets:   len(lr.Resolution.Targets),
			Mapped:    lr.Mapped(),
			Unmatched: len(lr.Resolution.Unmatched),
			Empty:     lr.Empty,
		}
		stats = append(stats, st)
		if lr.Empty {
			logger.Warn("level has no names to match", "level", lr.Level, "sources", st.Sources, "targets", st.Targets)
			continue
		}
		logger.Info("level matched", "level", lr.Level, "threshold", lr.Threshold,
			"mapped", st.Mapped, "unmatched", st.Unmatched)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done = debug.Timing(logger, "merge")
	merged, err := Merge(stdA, norm.Table, in.RolesA.Metrics, in.RolesB.Metrics)
	done()
	if err != nil {
		return nil, fmt.Errorf("merge failed: %w", err)
	}

	report := UnmatchedWoredas(norm.Table, norm.WoredaResiduals())
	if n := len(report.Woredas); n > 0 {
		logger.Warn("woredas without a match", "count", n, "rows", report.Rows.Len())
	}

	res := &Result{
		RunID:         runID,
		Merged:        merged,
		Normalized:    norm.Table,
		Unmatched:     report.Woredas,
		UnmatchedRows: report.Rows,
		Levels:        norm.Levels,
		Stats:         stats,
		Elapsed:       time.Since(start),
	}
	logger.Info("reconciliation complete", "merged_rows", merged.Len(), "elapsed", res.Elapsed)
	return res, nil
}
