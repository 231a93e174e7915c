package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/epi-triangulate/internal/normalize"
	"github.com/epi-triangulate/internal/table"
)

// Suffixes added to a metric column selected on both sides of a merge.
const (
	SuffixA = "_x"
	SuffixB = "_y"
)

// CoerceNumber returns the numeric value of a metric cell. Missing and unparseable
// cells count as 0.
func CoerceNumber(c table.Cell) float64 {
	if !c.Valid {
		return 0
	}
	f, err := normalize.ParseNumber(c.Value)
	if err != nil {
		return 0
	}
	return f
}

func formatNumber(f float64) table.Cell {
	return table.Str(strconv.FormatFloat(f, 'f', -1, 64))
}

// MergedColumns returns the output metric names for the two metric selections.
func MergedColumns(metricsA, metricsB []string) (namesA, namesB []string) {
	inA := make(map[string]bool, len(metricsA))
	inB := make(map[string]bool, len(metricsB))
	for _, m := range metricsA {
		inA[m] = true
	}
	for _, m := range metricsB {
		inB[m] = true
	}
	for _, m := range metricsA {
		if inB[m] {
			m += SuffixA
		}
		namesA = append(namesA, m)
	}
	for _, m := range metricsB {
		if inA[m] {
			m += SuffixB
		}
		namesB = append(namesB, m)
	}
	return namesA, namesB
}

// CheckMergedColumns rejects metric selections whose merged names collide with each
// other or with the key columns, e.g. A selecting "M" and "M_y" while B selects "M".
func CheckMergedColumns(metricsA, metricsB []string) error {
	namesA, namesB := MergedColumns(metricsA, metricsB)
	seen := make(map[string]bool, len(KeyColumns)+len(namesA)+len(namesB))
	for _, k := range KeyColumns {
		seen[k] = true
	}
	for _, n := range append(append([]string{}, namesA...), namesB...) {
		if seen[n] {
			return &ConfigurationError{Role: "metric", Column: n,
				Reason: "merged column name would appear twice; rename one of the metrics"}
		}
		seen[n] = true
	}
	return nil
}

type joinKey [4]table.Cell

func keyOf(t *table.Table, row []table.Cell, idx [4]int) joinKey {
	var k joinKey
	for i, j := range idx {
		k[i] = row[j]
	}
	return k
}

func keyIndexes(t *table.Table) ([4]int, error) {
	var idx [4]int
	for i, c := range KeyColumns {
		idx[i] = t.ColumnIndex(c)
		if idx[i] < 0 {
			return idx, fmt.Errorf("table %q: missing key column %q", t.Name, c)
		}
	}
	return idx, nil
}

// Merge full-outer-joins a and b on (Period, Region, Zone, Woreda). Both tables must carry
// the key columns under their standard names. Key tuples compare as exact strings and two
// missing key cells compare equal.
//
// Rows sharing a key on both sides produce one output row per pair; no de-duplication is
// done. Rows with a key on one side only appear once, with the other side's metrics set
// to 0. Every metric in the output is a finite number. Output rows are ordered by key.
func Merge(a, b *table.Table, metricsA, metricsB []string) (*table.Table, error) {
	keyA, err := keyIndexes(a)
	if err != nil {
		return nil, err
	}
	keyB, err := keyIndexes(b)
	if err != nil {
		return nil, err
	}
	metricIdxA, err := columnIndexes(a, metricsA)
	if err != nil {
		return nil, err
	}
	metricIdxB, err := columnIndexes(b, metricsB)
	if err != nil {
		return nil, err
	}

	if err := CheckMergedColumns(metricsA, metricsB); err != nil {
		return nil, err
	}
	namesA, namesB := MergedColumns(metricsA, metricsB)
	columns := append(append(append([]string{}, KeyColumns...), namesA...), namesB...)
	out, err := table.New("merged", columns)
	if err != nil {
		return nil, fmt.Errorf("failed to build merged table: %w", err)
	}

	byKey := make(map[joinKey][]int)
	for i, row := range b.Rows {
		k := keyOf(b, row, keyB)
		byKey[k] = append(byKey[k], i)
	}

	emit := func(k joinKey, rowA, rowB []table.Cell) {
		cells := make([]table.Cell, 0, len(columns))
		cells = append(cells, k[:]...)
		for _, j := range metricIdxA {
			if rowA == nil {
				cells = append(cells, formatNumber(0))
				continue
			}
			cells = append(cells, formatNumber(CoerceNumber(rowA[j])))
		}
		for _, j := range metricIdxB {
			if rowB == nil {
				cells = append(cells, formatNumber(0))
				continue
			}
			cells = append(cells, formatNumber(CoerceNumber(rowB[j])))
		}
		out.Rows = append(out.Rows, cells)
	}

	matchedB := make([]bool, len(b.Rows))
	for _, rowA := range a.Rows {
		k := keyOf(a, rowA, keyA)
		partners := byKey[k]
		if len(partners) == 0 {
			emit(k, rowA, nil)
			continue
		}
		for _, i := range partners {
			matchedB[i] = true
			emit(k, rowA, b.Rows[i])
		}
	}
	for i, rowB := range b.Rows {
		if !matchedB[i] {
			emit(keyOf(b, rowB, keyB), nil, rowB)
		}
	}

	sort.SliceStable(out.Rows, func(i, j int) bool {
		return compareKeys(out.Rows[i][:4], out.Rows[j][:4]) < 0
	})
	return out, nil
}

func columnIndexes(t *table.Table, names []string) ([]int, error) {
	idx := make([]int, len(names))
	for i, n := range names {
		idx[i] = t.ColumnIndex(n)
		if idx[i] < 0 {
			return nil, fmt.Errorf("table %q: missing metric column %q", t.Name, n)
		}
	}
	return idx, nil
}

// compareKeys orders key tuples lexicographically; missing cells sort after present ones.
func compareKeys(a, b []table.Cell) int {
	for i := range a {
		switch {
		case a[i].Valid && !b[i].Valid:
			return -1
		case !a[i].Valid && b[i].Valid:
			return 1
		}
		if c := strings.Compare(a[i].Value, b[i].Value); c != 0 {
			return c
		}
	}
	return 0
}
