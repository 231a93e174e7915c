package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/epi-triangulate/internal/export"
	"github.com/epi-triangulate/internal/table"
)

var (
	errExportDisabled  = errors.New("export feature disabled")
	errPersistDisabled = errors.New("persisting results is disabled")
	errNoDatabase      = errors.New("no database configured")
)

// writeTable sends a table as a CSV or XLSX attachment.
func (h *APIHandler) writeTable(w http.ResponseWriter, format, name string, t *table.Table) {
	if !h.Config.Features.ExportEnabled {
		writeError(w, http.StatusForbidden, errExportDisabled.Error())
		return
	}

	var buf bytes.Buffer
	var contentType string
	var err error
	switch format {
	case "csv":
		contentType = "text/csv; charset=utf-8"
		err = export.WriteCSV(&buf, t)
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = export.WriteXLSX(&buf, t, "")
	default:
		writeError(w, http.StatusBadRequest, "unsupported format, use 'json', 'csv' or 'xlsx'")
		return
	}
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"."+format))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// persist stores a table in the server database.
func (h *APIHandler) persist(ctx context.Context, tableName string, t *table.Table) error {
	if !h.Config.Features.PersistEnabled {
		return errPersistDisabled
	}
	if h.DB == nil {
		return errNoDatabase
	}
	if err := export.WriteSQL(ctx, h.DB, h.Driver, tableName, t); err != nil {
		return err
	}
	h.logger().Info("persisted merged table", "table", tableName, "rows", t.Len())
	return nil
}

func (h *APIHandler) writeExportFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errPersistDisabled), errors.Is(err, errExportDisabled):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, errNoDatabase):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.writeFailure(w, err)
	}
}
