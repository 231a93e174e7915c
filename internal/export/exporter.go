package export

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lib/pq"
	"github.com/xuri/excelize/v2"

	"github.com/epi-triangulate/internal/db"
	"github.com/epi-triangulate/internal/table"
)

// DefaultSheet is the sheet name used for workbook output.
const DefaultSheet = "Merged"

// WriteCSV writes the table with a header row. Missing cells are written empty.
func WriteCSV(w io.Writer, t *table.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// WriteUnmatchedCSV writes one woreda name per row under a "Woreda" header.
func WriteUnmatchedCSV(w io.Writer, names []string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Woreda"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, n := range names {
		if err := writer.Write([]string{n}); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX writes the table to a single-sheet workbook with a bold header row.
func WriteXLSX(w io.Writer, t *table.Table, sheet string) error {
	if sheet == "" {
		sheet = DefaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if len(t.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Columns), 1)
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	for r, row := range t.Rows {
		values := make([]interface{}, len(row))
		for i, c := range row {
			if c.Valid {
				values[i] = c.Value
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteFile writes the table to path as CSV or XLSX, chosen by extension.
func WriteFile(path string, t *table.Table) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		err = WriteXLSX(file, t, "")
	case ".csv", "":
		err = WriteCSV(file, t)
	default:
		err = fmt.Errorf("unsupported output type %q (want .csv or .xlsx)", ext)
	}
	if err != nil {
		return err
	}
	return file.Close()
}

// WriteSQL replaces tableName with the contents of t. Every column is stored as TEXT and
// missing cells as NULL. Postgres rows are streamed with COPY; other drivers use INSERT.
// The whole write runs in one transaction.
func WriteSQL(ctx context.Context, conn *sql.DB, driver, tableName string, t *table.Table) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %q has no columns", t.Name)
	}

	quotedTable := pq.QuoteIdentifier(tableName)
	quoted := make([]string, len(t.Columns))
	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		quoted[i] = pq.QuoteIdentifier(c)
		defs[i] = quoted[i] + " TEXT"
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quotedTable); err != nil {
		return fmt.Errorf("failed to drop %s: %w", tableName, err)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quotedTable, strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create %s: %w", tableName, err)
	}

	var query string
	if driver == db.DriverPostgres {
		query = pq.CopyIn(tableName, t.Columns...)
	} else {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)), ", ")
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quotedTable, strings.Join(quoted, ", "), placeholders)
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(t.Columns))
	for r, row := range t.Rows {
		for i, c := range row {
			if c.Valid {
				args[i] = c.Value
			} else {
				args[i] = nil
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+1, err)
		}
	}
	if driver == db.DriverPostgres {
		// flush buffered COPY data
		if _, err := stmt.ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to finish copy: %w", err)
		}
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close statement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
