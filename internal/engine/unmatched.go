package engine

import (
	"github.com/epi-triangulate/internal/table"
)

// UnmatchedReport lists the rows of B whose original woreda found no match in A.
type UnmatchedReport struct {
	// Rows keeps every offending row of B, in input order.
	Rows *table.Table `json:"rows"`
	// Woredas holds the distinct original woreda names of Rows in first-seen order.
	Woredas []string `json:"woredas"`
}

// UnmatchedWoredas selects the rows of a normalized B table whose Original_Woreda value is
// one of residuals. Tables without the snapshot column are matched on Woreda instead.
// b is not modified.
func UnmatchedWoredas(b *table.Table, residuals []string) *UnmatchedReport {
	column := ColOriginalWoreda
	if !b.HasColumn(column) {
		column = ColWoreda
	}
	idx := b.ColumnIndex(column)

	wanted := make(map[string]bool, len(residuals))
	for _, r := range residuals {
		wanted[r] = true
	}

	report := &UnmatchedReport{Woredas: []string{}}
	if idx < 0 {
		report.Rows, _ = table.New(b.Name, b.Columns)
		return report
	}

	report.Rows = b.Filter(func(row []table.Cell) bool {
		c := row[idx]
		return c.Valid && wanted[c.Value]
	}).Clone()

	seen := make(map[string]bool)
	for _, row := range report.Rows.Rows {
		name := row[idx].Value
		if !seen[name] {
			seen[name] = true
			report.Woredas = append(report.Woredas, name)
		}
	}
	return report
}
