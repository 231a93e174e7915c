package engine

import (
	"context"
	"fmt"

	"github.com/epi-triangulate/internal/table"
)

// LevelResult is the matching outcome of one hierarchy level.
type LevelResult struct {
	Level      Level       `json:"level"`
	Column     string      `json:"column"`
	Threshold  float64     `json:"threshold"`
	Resolution *Resolution `json:"resolution"`
	// Empty is set when the level had no source or no target names. The level is then a
	// no-op rewrite; it is reported, not treated as an error.
	Empty bool `json:"empty"`
}

// Mapped returns the number of source names that found a target.
func (lr *LevelResult) Mapped() int {
	return len(lr.Resolution.Mapping)
}

// Normalization is table B with its key columns rewritten onto table A's spelling.
type Normalization struct {
	Table  *table.Table   `json:"-"`
	Levels []*LevelResult `json:"levels"`
}

// Level returns the result of one level.
func (n *Normalization) Level(l Level) *LevelResult {
	for _, lr := range n.Levels {
		if lr.Level == l {
			return lr
		}
	}
	return nil
}

// WoredaResiduals returns the woreda names of B that matched nothing in A.
func (n *Normalization) WoredaResiduals() []string {
	if lr := n.Level(LevelWoreda); lr != nil {
		return lr.Resolution.Unmatched
	}
	return nil
}

// Normalize matches the distinct names of b against those of a at region, zone and woreda
// level, each with its own threshold, and returns a copy of b whose key columns hold the
// matched names of a. Names without a match are kept as they are.
//
// Each level is matched on b's original values, so a rewrite at one level never changes
// what is compared at another. The returned table carries an Original_Woreda column with
// b's woreda values before rewriting. Neither input is modified.
func Normalize(ctx context.Context, b *table.Table, rolesB Roles, a *table.Table, rolesA Roles,
	thresholds Thresholds, opts ResolveOptions) (*Normalization, error) {

	if err := thresholds.Validate(); err != nil {
		return nil, err
	}

	out := b.Clone()
	original, err := b.Column(rolesB.Woreda)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot woreda column: %w", err)
	}
	if out.HasColumn(ColOriginalWoreda) {
		idx := out.ColumnIndex(ColOriginalWoreda)
		for i, row := range out.Rows {
			row[idx] = original[i]
		}
	} else if err := out.AddColumn(ColOriginalWoreda, original); err != nil {
		return nil, err
	}

	n := &Normalization{Table: out}
	for _, level := range Levels {
		colB, colA := rolesB.Column(level), rolesA.Column(level)

		sources, err := b.Distinct(colB)
		if err != nil {
			return nil, fmt.Errorf("%s level: %w", level, err)
		}
		targets, err := a.Distinct(colA)
		if err != nil {
			return nil, fmt.Errorf("%s level: %w", level, err)
		}

		threshold := thresholds.For(level)
		res, err := Resolve(ctx, sources, targets, threshold, opts)
		if err != nil {
			return nil, fmt.Errorf("%s level: %w", level, err)
		}

		n.Levels = append(n.Levels, &LevelResult{
			Level:      level,
			Column:     colB,
			Threshold:  threshold,
			Resolution: res,
			Empty:      len(sources) == 0 || len(targets) == 0,
		})

		err = out.MapColumn(colB, func(c table.Cell) table.Cell {
			if !c.Valid {
				return c
			}
			return table.Str(res.Lookup(c.Value))
		})
		if err != nil {
			return nil, err
		}
	}

	return n, nil
}
