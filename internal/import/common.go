package import_pkg

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/epi-triangulate/internal/debug"
	"github.com/epi-triangulate/internal/normalize"
	"github.com/epi-triangulate/internal/table"
)

// Options controls how a tabular source is read.
type Options struct {
	// Sheet selects a workbook sheet by name; empty means the first sheet.
	Sheet string
	// Encoding of CSV input without a byte order mark: "utf-8" (default), "windows-1252" or "latin-1".
	Encoding string
	// Delimiter of CSV input; zero means a comma.
	Delimiter rune
	Logger    hclog.Logger
}

// ErrEmpty is returned for a source without a header row.
var ErrEmpty = errors.New("no header row")

// naTokens are the cell texts read as missing values.
var naTokens = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// ParseCell converts raw text into a cell; missing-value tokens become null.
func ParseCell(s string) table.Cell {
	if naTokens[s] {
		return table.Null
	}
	return table.Str(s)
}

func decoderFor(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "latin-1", "latin1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", name)
}

// LoadCSV reads a delimited text table. A UTF-8 or UTF-16 byte order mark overrides
// opts.Encoding. The first row is the header.
func LoadCSV(r io.Reader, name string, opts Options) (*table.Table, error) {
	enc, err := decoderFor(opts.Encoding)
	if err != nil {
		return nil, err
	}
	decoded := transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder()))

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV %s: %w", name, err)
	}
	t, err := buildTable(name, records)
	if err != nil {
		return nil, err
	}
	debug.OrNull(opts.Logger).Debug("loaded csv", "name", name, "columns", len(t.Columns), "rows", t.Len())
	return t, nil
}

// LoadXLSX reads one sheet of a workbook. Cells are read with their display formatting.
func LoadXLSX(r io.Reader, name string, opts Options) (*table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", name, err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s: no sheets found", name)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("workbook %s: failed to get rows of sheet %q: %w", name, sheet, err)
	}
	t, err := buildTable(name, rows)
	if err != nil {
		return nil, err
	}
	debug.OrNull(opts.Logger).Debug("loaded workbook", "name", name, "sheet", sheet, "columns", len(t.Columns), "rows", t.Len())
	return t, nil
}

// LoadQuery runs a query and reads every row of its result.
func LoadQuery(ctx context.Context, db *sql.DB, name, query string, args ...interface{}) (*table.Table, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", name, err)
	}
	t, err := table.New(name, normalize.CleanHeaders(columns))
	if err != nil {
		return nil, err
	}

	values := make([]interface{}, len(columns))
	ptrs := make([]interface{}, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row of %s: %w", name, err)
		}
		cells := make([]table.Cell, len(values))
		for i, v := range values {
			cells[i] = table.CellOf(v)
		}
		t.Rows = append(t.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows of %s: %w", name, err)
	}
	return t, nil
}

// buildTable turns raw records into a table: cleaned header, blank rows skipped,
// short rows padded with missing cells.
func buildTable(name string, records [][]string) (*table.Table, error) {
	var header []string
	start := 0
	for ; start < len(records); start++ {
		if !blank(records[start]) {
			header = records[start]
			break
		}
	}
	if header == nil {
		return nil, fmt.Errorf("%s: %w", name, ErrEmpty)
	}

	columns := normalize.CleanHeaders(header)
	for i, c := range columns {
		if c == "" {
			columns[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}
	t, err := table.New(name, columns)
	if err != nil {
		return nil, err
	}

	for i, rec := range records[start+1:] {
		if blank(rec) {
			continue
		}
		if len(rec) > len(columns) {
			return nil, fmt.Errorf("%s: row %d has %d fields, header has %d", name, start+i+2, len(rec), len(columns))
		}
		cells := make([]table.Cell, len(columns))
		for j := range cells {
			if j < len(rec) {
				cells[j] = ParseCell(rec[j])
			}
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// sniff reports whether data starts like a zip archive, i.e. a workbook.
func sniff(data []byte) bool {
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}
