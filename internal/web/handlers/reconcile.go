package handlers

import (
	"net/http"

	"github.com/epi-triangulate/internal/engine"
	"github.com/epi-triangulate/internal/table"
)

// ReconcileRequest carries both tables inline with their column roles.
type ReconcileRequest struct {
	A          *table.Table       `json:"a"`
	B          *table.Table       `json:"b"`
	RolesA     engine.Roles       `json:"roles_a"`
	RolesB     engine.Roles       `json:"roles_b"`
	Thresholds *engine.Thresholds `json:"thresholds,omitempty"`
	// Format selects the response body: "json" (default), "csv" or "xlsx" for the merged table.
	Format string `json:"format,omitempty"`
	// PersistTable, when set, stores the merged table in the server database.
	PersistTable string `json:"persist_table,omitempty"`
}

// ReconcileResponse is the JSON result of a reconciliation.
type ReconcileResponse struct {
	RunID         string              `json:"run_id"`
	Merged        *table.Table        `json:"merged"`
	Unmatched     []string            `json:"unmatched"`
	UnmatchedRows *table.Table        `json:"unmatched_rows"`
	Levels        []engine.LevelStats `json:"levels"`
	Thresholds    engine.Thresholds   `json:"thresholds"`
	ElapsedMS     int64               `json:"elapsed_ms"`
	PersistedTo   string              `json:"persisted_to,omitempty"`
}

func checkTable(name string, t *table.Table) error {
	if t == nil {
		return &engine.ConfigurationError{Table: name, Reason: "table is required"}
	}
	if t.Name == "" {
		t.Name = name
	}
	if err := t.Check(); err != nil {
		return &engine.ConfigurationError{Table: name, Reason: err.Error()}
	}
	return nil
}

// Reconcile normalizes table B onto table A and returns the merged result.
func (h *APIHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if !decode(w, r, &req) {
		return
	}
	if err := checkTable("a", req.A); err != nil {
		h.writeFailure(w, err)
		return
	}
	if err := checkTable("b", req.B); err != nil {
		h.writeFailure(w, err)
		return
	}

	thresholds := h.Config.Thresholds
	if req.Thresholds != nil {
		thresholds = *req.Thresholds
	}

	res, err := engine.Reconcile(r.Context(), engine.Input{
		A: req.A, B: req.B,
		RolesA:     req.RolesA,
		RolesB:     req.RolesB,
		Thresholds: thresholds,
		Options: engine.Options{
			Resolve: engine.ResolveOptions{Workers: h.Config.Workers, SortTargets: h.Config.SortTargets},
			Logger:  h.Logger,
		},
	})
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	resp := ReconcileResponse{
		RunID:         res.RunID,
		Merged:        res.Merged,
		Unmatched:     res.Unmatched,
		UnmatchedRows: res.UnmatchedRows,
		Levels:        res.Stats,
		Thresholds:    thresholds,
		ElapsedMS:     res.Elapsed.Milliseconds(),
	}

	if req.PersistTable != "" {
		if err := h.persist(r.Context(), req.PersistTable, res.Merged); err != nil {
			h.writeExportFailure(w, err)
			return
		}
		resp.PersistedTo = req.PersistTable
	}

	switch req.Format {
	case "", "json":
		writeJSON(w, http.StatusOK, resp)
	default:
		h.writeTable(w, req.Format, "merged-"+res.RunID, res.Merged)
	}
}

// ResolveRequest matches two name lists.
type ResolveRequest struct {
	Sources     []string `json:"sources"`
	Targets     []string `json:"targets"`
	Threshold   float64  `json:"threshold"`
	SortTargets bool     `json:"sort_targets"`
}

// Resolve maps every source name to its best target at the threshold.
func (h *APIHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if !decode(w, r, &req) {
		return
	}
	if err := engine.CheckThreshold("threshold", req.Threshold); err != nil {
		h.writeFailure(w, err)
		return
	}

	res, err := engine.Resolve(r.Context(), req.Sources, req.Targets, req.Threshold,
		engine.ResolveOptions{Workers: h.Config.Workers, SortTargets: req.SortTargets || h.Config.SortTargets})
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// TuneRequest sweeps thresholds over two name lists.
type TuneRequest struct {
	Sources    []string  `json:"sources"`
	Targets    []string  `json:"targets"`
	Thresholds []float64 `json:"thresholds,omitempty"`
}

// Tune reports how many names each threshold maps.
func (h *APIHandler) Tune(w http.ResponseWriter, r *http.Request) {
	var req TuneRequest
	if !decode(w, r, &req) {
		return
	}
	points, err := engine.TuneThresholds(r.Context(), req.Sources, req.Targets, req.Thresholds,
		engine.ResolveOptions{Workers: h.Config.Workers, SortTargets: h.Config.SortTargets})
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}
