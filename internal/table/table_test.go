package table

import (
	"encoding/json"
	"reflect"
	"testing"
)

func buildTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := New("admin", []string{"Region", "Woreda", "BCG"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	rows := [][]Cell{
		{Str("Oromia"), Str("Adama"), Str("10")},
		{Str("Oromia"), Null, Str("4")},
		{Str("Amhara"), Str("Bahir Dar"), Null},
		{Str("Oromia"), Str("Adama"), Str("7")},
	}
	for _, r := range rows {
		if err := tbl.AppendRow(r); err != nil {
			t.Fatalf("AppendRow() error = %v", err)
		}
	}
	return tbl
}

func TestNewRejectsDuplicateColumns(t *testing.T) {
	if _, err := New("x", []string{"Zone", "Zone"}); err == nil {
		t.Error("expected duplicate column error")
	}
}

func TestDistinct(t *testing.T) {
	tbl := buildTable(t)

	tests := []struct {
		column string
		want   []string
	}{
		{"Region", []string{"Oromia", "Amhara"}},
		{"Woreda", []string{"Adama", "Bahir Dar"}},
		{"BCG", []string{"10", "4", "7"}},
	}

	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			got, err := tbl.Distinct(tt.column)
			if err != nil {
				t.Fatalf("Distinct() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Distinct(%s) = %v, want %v", tt.column, got, tt.want)
			}
		})
	}

	if _, err := tbl.Distinct("Zone"); err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestDistinctIsCaseAndSpaceSensitive(t *testing.T) {
	tbl, _ := New("b", []string{"Woreda"})
	for _, v := range []string{"Woreda A1", "woreda a1", "Woreda A1 "} {
		tbl.AppendRow([]Cell{Str(v)})
	}
	got, _ := tbl.Distinct("Woreda")
	if len(got) != 3 {
		t.Errorf("Distinct() = %v, want 3 distinct values", got)
	}
}

func TestSelectRenames(t *testing.T) {
	tbl := buildTable(t)

	out, err := tbl.Select([]string{"Woreda", "BCG"}, []string{"W", "B"})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if !reflect.DeepEqual(out.Columns, []string{"W", "B"}) {
		t.Errorf("columns = %v", out.Columns)
	}
	if out.Get(0, "W") != Str("Adama") || out.Get(2, "B") != Null {
		t.Errorf("unexpected cells: %v", out.Rows)
	}

	// the projection must not alias the source rows
	out.Rows[0][0] = Str("changed")
	if tbl.Get(0, "Woreda") != Str("Adama") {
		t.Error("Select() shares row storage with the source table")
	}

	if _, err := tbl.Select([]string{"Missing"}, nil); err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestCloneAndMapColumn(t *testing.T) {
	tbl := buildTable(t)
	clone := tbl.Clone()

	err := clone.MapColumn("Region", func(c Cell) Cell {
		if c.Value == "Oromia" {
			return Str("Oromiya")
		}
		return c
	})
	if err != nil {
		t.Fatalf("MapColumn() error = %v", err)
	}
	if clone.Get(0, "Region").Value != "Oromiya" {
		t.Errorf("clone not rewritten: %v", clone.Rows[0])
	}
	if tbl.Get(0, "Region").Value != "Oromia" {
		t.Errorf("original mutated: %v", tbl.Rows[0])
	}
}

func TestAddColumn(t *testing.T) {
	tbl := buildTable(t)
	if err := tbl.AddColumn("Flag", make([]Cell, 3)); err == nil {
		t.Error("expected length mismatch error")
	}
	if err := tbl.AddColumn("Region", make([]Cell, 4)); err == nil {
		t.Error("expected duplicate column error")
	}
	if err := tbl.AddColumn("Flag", []Cell{Str("a"), Str("b"), Str("c"), Str("d")}); err != nil {
		t.Fatalf("AddColumn() error = %v", err)
	}
	if tbl.Get(3, "Flag").Value != "d" {
		t.Errorf("Get(3, Flag) = %v", tbl.Get(3, "Flag"))
	}
}

func TestFilter(t *testing.T) {
	tbl := buildTable(t)
	idx := tbl.ColumnIndex("Region")
	out := tbl.Filter(func(row []Cell) bool { return row[idx].Value == "Oromia" })
	if out.Len() != 3 {
		t.Errorf("Filter() kept %d rows, want 3", out.Len())
	}
}

func TestCellJSON(t *testing.T) {
	var tbl Table
	body := `{"columns":["Woreda","BCG","Flag"],"rows":[["Adama",12.5,true],[null,3,false],["Bishoftu"]]}`
	if err := json.Unmarshal([]byte(body), &tbl); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if err := tbl.Check(); err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	want := [][]Cell{
		{Str("Adama"), Str("12.5"), Str("True")},
		{Null, Str("3"), Str("False")},
		{Str("Bishoftu"), Null, Null},
	}
	if !reflect.DeepEqual(tbl.Rows, want) {
		t.Errorf("rows = %v, want %v", tbl.Rows, want)
	}

	out, err := json.Marshal(tbl.Rows[1])
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != `[null,"3","False"]` {
		t.Errorf("Marshal() = %s", out)
	}

	var bad Table
	if err := json.Unmarshal([]byte(`{"columns":["a"],"rows":[[{"x":1}]]}`), &bad); err == nil {
		t.Error("expected error for non-scalar cell")
	}
}

func TestRecords(t *testing.T) {
	tbl := buildTable(t)
	recs := tbl.Records()
	if len(recs) != 5 {
		t.Fatalf("Records() len = %d, want 5", len(recs))
	}
	if !reflect.DeepEqual(recs[2], []string{"Oromia", "", "4"}) {
		t.Errorf("Records()[2] = %v", recs[2])
	}
}
