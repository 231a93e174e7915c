package handlers

import (
	"net/http"

	"github.com/epi-triangulate/internal/table"
	"github.com/epi-triangulate/internal/utilization"
)

// UtilizationRequest carries a merged table and the records to summarise.
type UtilizationRequest struct {
	Merged  *table.Table       `json:"merged"`
	Filter  utilization.Filter `json:"filter"`
	Records bool               `json:"records"`
}

// UtilizationResponse summarises vaccine utilization of a merged table.
type UtilizationResponse struct {
	Summary      utilization.Summary       `json:"summary"`
	AntigenRates []utilization.AntigenRate `json:"antigen_rates"`
	Periods      []string                  `json:"periods"`
	Records      []utilization.Record      `json:"records,omitempty"`
}

// Utilization reshapes a merged table per antigen and summarises it.
func (h *APIHandler) Utilization(w http.ResponseWriter, r *http.Request) {
	var req UtilizationRequest
	if !decode(w, r, &req) {
		return
	}
	if err := checkTable("merged", req.Merged); err != nil {
		h.writeFailure(w, err)
		return
	}

	records := utilization.Reshape(req.Merged, h.Config.Utilization)
	resp := UtilizationResponse{
		Summary:      utilization.Summarize(records, req.Filter),
		AntigenRates: utilization.AntigenRates(records, req.Filter),
		Periods:      utilization.Periods(records),
	}
	if req.Records {
		resp.Records = req.Filter.Apply(records)
	}
	writeJSON(w, http.StatusOK, resp)
}
