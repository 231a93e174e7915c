package utilization

import (
	"math"
	"strings"

	"github.com/epi-triangulate/internal/engine"
	"github.com/epi-triangulate/internal/table"
)

// Record is one antigen at one place and period, in long form.
type Record struct {
	Period       string   `json:"period"`
	Region       string   `json:"region"`
	Zone         string   `json:"zone"`
	Woreda       string   `json:"woreda"`
	Antigen      string   `json:"antigen"`
	Distributed  float64  `json:"distributed"`
	Administered float64  `json:"administered"`
	Rate         float64  `json:"rate"`
	Category     Category `json:"category"`
}

type antigenColumns struct {
	name         string
	distributed  int
	administered int
}

// AntigenOf returns the antigen named by a dose column: its first space-separated word.
func AntigenOf(column string) string {
	fields := strings.Fields(column)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// splitColumns finds the distributed and administered column of each antigen.
// Columns mentioning "Distrib" count distributed doses, "Admin" administered ones.
func splitColumns(columns []string) []*antigenColumns {
	var out []*antigenColumns
	byName := make(map[string]*antigenColumns)
	for i, c := range columns {
		var distributed bool
		switch {
		case strings.Contains(c, "Distrib"):
			distributed = true
		case strings.Contains(c, "Admin"):
		default:
			continue
		}
		name := AntigenOf(c)
		ac, ok := byName[name]
		if !ok {
			ac = &antigenColumns{name: name, distributed: -1, administered: -1}
			byName[name] = ac
			out = append(out, ac)
		}
		if distributed && ac.distributed < 0 {
			ac.distributed = i
		} else if !distributed && ac.administered < 0 {
			ac.administered = i
		}
	}
	return out
}

// Rate returns administered over distributed in percent, rounded to two decimals.
// It is 0 when nothing was distributed.
func Rate(distributed, administered float64) float64 {
	if distributed <= 0 {
		return 0
	}
	return round2(administered / distributed * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Reshape turns a merged wide table, one "<Antigen> Distributed" and "<Antigen> Administered"
// column per antigen, into one record per row and antigen, categorized with lookup.
// Non-numeric dose cells count as 0.
func Reshape(merged *table.Table, lookup Lookup) []Record {
	antigens := splitColumns(merged.Columns)
	keys := [4]int{}
	for i, c := range engine.KeyColumns {
		keys[i] = merged.ColumnIndex(c)
	}
	cell := func(row []table.Cell, idx int) table.Cell {
		if idx < 0 {
			return table.Null
		}
		return row[idx]
	}

	var out []Record
	for _, row := range merged.Rows {
		for _, ac := range antigens {
			r := Record{
				Period:       cell(row, keys[0]).String(),
				Region:       cell(row, keys[1]).String(),
				Zone:         cell(row, keys[2]).String(),
				Woreda:       cell(row, keys[3]).String(),
				Antigen:      ac.name,
				Distributed:  engine.CoerceNumber(cell(row, ac.distributed)),
				Administered: engine.CoerceNumber(cell(row, ac.administered)),
			}
			r.Rate = Rate(r.Distributed, r.Administered)
			r.Category = Categorize(r.Rate, lookup.For(r.Antigen))
			out = append(out, r)
		}
	}
	return out
}

// RecordColumns is the header of RecordsTable.
var RecordColumns = []string{
	engine.ColPeriod, engine.ColRegion, engine.ColZone, engine.ColWoreda,
	"Antigen", "Distributed", "Administered", "Utilization Rate", "Utilization Category",
}

// RecordsTable renders records as a table for export.
func RecordsTable(records []Record) *table.Table {
	t, _ := table.New("utilization", RecordColumns)
	for _, r := range records {
		t.Rows = append(t.Rows, []table.Cell{
			table.Str(r.Period), table.Str(r.Region), table.Str(r.Zone), table.Str(r.Woreda),
			table.Str(r.Antigen),
			table.CellOf(r.Distributed), table.CellOf(r.Administered), table.CellOf(r.Rate),
			table.Str(string(r.Category)),
		})
	}
	return t
}
