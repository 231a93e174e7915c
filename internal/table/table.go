package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Cell is a single table value. Valid is false for a missing entry.
type Cell struct {
	Value string
	Valid bool
}

// Null is the missing cell.
var Null = Cell{}

// Str returns a present cell holding s.
func Str(s string) Cell {
	return Cell{Value: s, Valid: true}
}

// String returns the cell value, or "" when missing
func (c Cell) String() string {
	if !c.Valid {
		return ""
	}
	return c.Value
}

// CellOf converts a decoded value (JSON, database/sql, spreadsheet) into a cell.
func CellOf(v interface{}) Cell {
	switch x := v.(type) {
	case nil:
		return Null
	case Cell:
		return x
	case string:
		return Str(x)
	case []byte:
		return Str(string(x))
	case float64:
		return Str(strconv.FormatFloat(x, 'f', -1, 64))
	case float32:
		return Str(strconv.FormatFloat(float64(x), 'f', -1, 32))
	case int:
		return Str(strconv.Itoa(x))
	case int64:
		return Str(strconv.FormatInt(x, 10))
	case int32:
		return Str(strconv.FormatInt(int64(x), 10))
	case bool:
		if x {
			return Str("True")
		}
		return Str("False")
	case time.Time:
		return Str(x.Format("2006-01-02"))
	case json.Number:
		return Str(x.String())
	default:
		return Str(fmt.Sprint(x))
	}
}

// MarshalJSON encodes a missing cell as null and a present one as a string.
func (c Cell) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

// UnmarshalJSON accepts null, strings, numbers and booleans.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return fmt.Errorf("cell must be a scalar, got %s", string(data))
	}
	*c = CellOf(v)
	return nil
}

// Table is an ordered set of named columns with rows of cells.
type Table struct {
	Name    string   `json:"name,omitempty"`
	Columns []string `json:"columns"`
	Rows    [][]Cell `json:"rows"`
}

// New creates an empty table. Column names must be unique.
func New(name string, columns []string) (*Table, error) {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			return nil, fmt.Errorf("table %q: duplicate column %q", name, c)
		}
		seen[c] = true
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Name: name, Columns: cols}, nil
}

// Check verifies a decoded table: unique column names and no row longer than the header.
// Short rows are padded with missing cells.
func (t *Table) Check() error {
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if seen[c] {
			return fmt.Errorf("table %q: duplicate column %q", t.Name, c)
		}
		seen[c] = true
	}
	for i, row := range t.Rows {
		if len(row) > len(t.Columns) {
			return fmt.Errorf("table %q: row %d has %d cells, table has %d columns", t.Name, i, len(row), len(t.Columns))
		}
		if len(row) < len(t.Columns) {
			padded := make([]Cell, len(t.Columns))
			copy(padded, row)
			t.Rows[i] = padded
		}
	}
	return nil
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// AppendRow adds a row. Short rows are padded with missing cells; long rows are rejected.
func (t *Table) AppendRow(cells []Cell) error {
	if len(cells) > len(t.Columns) {
		return fmt.Errorf("table %q: row has %d cells, table has %d columns", t.Name, len(cells), len(t.Columns))
	}
	row := make([]Cell, len(t.Columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
	return nil
}

// ColumnIndex returns the position of a column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table has a column with this exact name.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Column returns a copy of the column's cells.
func (t *Table) Column(name string) ([]Cell, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("table %q: no column %q", t.Name, name)
	}
	cells := make([]Cell, len(t.Rows))
	for i, row := range t.Rows {
		cells[i] = row[idx]
	}
	return cells, nil
}

// Get returns the cell at row i in the named column; a missing column yields Null.
func (t *Table) Get(i int, name string) Cell {
	idx := t.ColumnIndex(name)
	if idx < 0 || i < 0 || i >= len(t.Rows) {
		return Null
	}
	return t.Rows[i][idx]
}

// Distinct returns the distinct non-missing values of a column in first-seen order.
// Values are compared by exact string equality.
func (t *Table) Distinct(name string) ([]string, error) {
	cells, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, c := range cells {
		if !c.Valid || seen[c.Value] {
			continue
		}
		seen[c.Value] = true
		out = append(out, c.Value)
	}
	return out, nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := &Table{Name: t.Name, Columns: make([]string, len(t.Columns)), Rows: make([][]Cell, len(t.Rows))}
	copy(out.Columns, t.Columns)
	for i, row := range t.Rows {
		r := make([]Cell, len(row))
		copy(r, row)
		out.Rows[i] = r
	}
	return out
}

// Select builds a new table from the given source columns, renamed to as[i].
// as may be nil to keep the source names.
func (t *Table) Select(columns []string, as []string) (*Table, error) {
	if as == nil {
		as = columns
	}
	if len(as) != len(columns) {
		return nil, fmt.Errorf("table %q: %d columns but %d names", t.Name, len(columns), len(as))
	}
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = t.ColumnIndex(c)
		if idx[i] < 0 {
			return nil, fmt.Errorf("table %q: no column %q", t.Name, c)
		}
	}
	out, err := New(t.Name, as)
	if err != nil {
		return nil, err
	}
	out.Rows = make([][]Cell, len(t.Rows))
	for r, row := range t.Rows {
		nr := make([]Cell, len(idx))
		for i, j := range idx {
			nr[i] = row[j]
		}
		out.Rows[r] = nr
	}
	return out, nil
}

// AddColumn appends a column. cells must have one entry per row.
func (t *Table) AddColumn(name string, cells []Cell) error {
	if t.HasColumn(name) {
		return fmt.Errorf("table %q: column %q already exists", t.Name, name)
	}
	if len(cells) != len(t.Rows) {
		return fmt.Errorf("table %q: column %q has %d cells for %d rows", t.Name, name, len(cells), len(t.Rows))
	}
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], cells[i])
	}
	return nil
}

// MapColumn replaces every cell of a column with fn(cell).
func (t *Table) MapColumn(name string, fn func(Cell) Cell) error {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return fmt.Errorf("table %q: no column %q", t.Name, name)
	}
	for _, row := range t.Rows {
		row[idx] = fn(row[idx])
	}
	return nil
}

// Filter returns a new table holding the rows for which keep returns true.
// Rows are shared with the receiver, not copied.
func (t *Table) Filter(keep func(row []Cell) bool) *Table {
	out := &Table{Name: t.Name, Columns: make([]string, len(t.Columns))}
	copy(out.Columns, t.Columns)
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Records converts the table to string slices, header first. Missing cells become "".
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	header := make([]string, len(t.Columns))
	copy(header, t.Columns)
	out = append(out, header)
	for _, row := range t.Rows {
		rec := make([]string, len(row))
		for i, c := range row {
			rec[i] = c.String()
		}
		out = append(out, rec)
	}
	return out
}

// FromValues builds a table from decoded values, e.g. a JSON request body.
func FromValues(name string, columns []string, rows [][]interface{}) (*Table, error) {
	t, err := New(name, columns)
	if err != nil {
		return nil, err
	}
	for i, values := range rows {
		cells := make([]Cell, len(values))
		for j, v := range values {
			cells[j] = CellOf(v)
		}
		if err := t.AppendRow(cells); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return t, nil
}
