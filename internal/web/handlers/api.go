package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/epi-triangulate/internal/engine"
	"github.com/epi-triangulate/internal/normalize"
	"github.com/epi-triangulate/internal/utilization"
)

// maxBodyBytes bounds request bodies; uploaded tables travel inline as JSON.
const maxBodyBytes = 32 << 20

// Config is the part of the server configuration the handlers need.
type Config struct {
	Thresholds  engine.Thresholds
	Workers     int
	SortTargets bool
	Utilization utilization.Lookup
	Features    struct {
		ExportEnabled  bool `json:"export_enabled"`
		PersistEnabled bool `json:"persist_enabled"`
	} `json:"features"`
}

// APIHandler serves the reconciliation API. DB is optional; without it results cannot be persisted.
type APIHandler struct {
	DB     *sql.DB
	Driver string
	Config *Config
	Logger hclog.Logger
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error  string `json:"error"`
	Table  string `json:"table,omitempty"`
	Role   string `json:"role,omitempty"`
	Column string `json:"column,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure maps an error to a status: bad column roles and thresholds are the caller's
// fault, everything else is ours.
func (h *APIHandler) writeFailure(w http.ResponseWriter, err error) {
	var cfgErr *engine.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  cfgErr.Error(),
			Table:  cfgErr.Table,
			Role:   cfgErr.Role,
			Column: cfgErr.Column,
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		h.logger().Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *APIHandler) logger() hclog.Logger {
	if h.Logger == nil {
		return hclog.NewNullLogger()
	}
	return h.Logger
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request: "+err.Error())
		return false
	}
	return true
}

// HealthResponse reports service status.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Time     string `json:"time"`
}

// Health reports whether the service and its optional database are reachable.
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Database: "disabled", Time: time.Now().UTC().Format(time.RFC3339)}
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.PingContext(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = "unavailable"
		} else {
			resp.Database = "ok"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ScoreResponse is the similarity of two names.
type ScoreResponse struct {
	A       string  `json:"a"`
	B       string  `json:"b"`
	Ratio   float64 `json:"ratio"`
	Percent float64 `json:"percent"`
}

// Score returns the similarity of the a and b query parameters.
func (h *APIHandler) Score(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("a") || !q.Has("b") {
		writeError(w, http.StatusBadRequest, "query parameters a and b are required")
		return
	}
	a, b := q.Get("a"), q.Get("b")
	ratio := normalize.Ratio(a, b)
	writeJSON(w, http.StatusOK, ScoreResponse{A: a, B: b, Ratio: ratio, Percent: ratio * 100})
}

// SuggestRequest lists the columns of an uploaded table.
type SuggestRequest struct {
	Columns []string `json:"columns"`
}

// Suggest pre-selects column roles from column names.
func (h *APIHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, engine.SuggestRoles(req.Columns))
}
