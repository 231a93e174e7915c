package import_pkg

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/epi-triangulate/internal/table"
)

// Source describes where a table comes from: a file path or a SQL query.
type Source struct {
	Path     string `json:"path,omitempty" toml:"path"`
	Query    string `json:"query,omitempty" toml:"query"`
	Sheet    string `json:"sheet,omitempty" toml:"sheet"`
	Encoding string `json:"encoding,omitempty" toml:"encoding"`
}

// Validate checks that exactly one of Path and Query is set.
func (s Source) Validate() error {
	switch {
	case s.Path == "" && s.Query == "":
		return fmt.Errorf("source needs a path or a query")
	case s.Path != "" && s.Query != "":
		return fmt.Errorf("source has both a path and a query")
	}
	return nil
}

// Load reads the source. db is only used for query sources.
func Load(ctx context.Context, name string, src Source, db *sql.DB, opts Options) (*table.Table, error) {
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if src.Query != "" {
		if db == nil {
			return nil, fmt.Errorf("%s: query source without a database connection", name)
		}
		t, err := LoadQuery(ctx, db, name, src.Query)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	if src.Sheet != "" {
		opts.Sheet = src.Sheet
	}
	if src.Encoding != "" {
		opts.Encoding = src.Encoding
	}
	t, err := LoadFile(src.Path, opts)
	if err != nil {
		return nil, err
	}
	t.Name = name
	return t, nil
}

// LoadFile reads a CSV or XLSX file, chosen by extension. Files without a known
// extension are read as a workbook when they start like one, else as CSV.
func LoadFile(path string, opts Options) (*table.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	return LoadBytes(filepath.Base(path), data, opts)
}

// LoadBytes reads an uploaded file held in memory. name supplies the extension.
func LoadBytes(name string, data []byte, opts Options) (*table.Table, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv", ".txt", ".tsv":
		if ext == ".tsv" && opts.Delimiter == 0 {
			opts.Delimiter = '\t'
		}
		return LoadCSV(bytes.NewReader(data), name, opts)
	case ".xlsx", ".xlsm":
		return LoadXLSX(bytes.NewReader(data), name, opts)
	case "":
		if sniff(data) {
			return LoadXLSX(bytes.NewReader(data), name, opts)
		}
		return LoadCSV(bytes.NewReader(data), name, opts)
	default:
		return nil, fmt.Errorf("%s: unsupported file type %q (want .csv or .xlsx)", name, ext)
	}
}

// ReadLines reads one name per line, skipping blank lines. Lines are kept verbatim
// apart from the line terminator.
func ReadLines(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}
