package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oivindhaug/resultatbank/internal/importer"
)

func (r *Router) handleListBatches(w http.ResponseWriter, req *http.Request) {
	batches, err := r.importerService.ListBatches(req.Context())
	if err != nil {
		r.logger.Error("listing import batches", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"batches": batches})
}

func (r *Router) handleCreateBatch(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Name string              `json:"name"`
		Rows []importer.RowInput `json:"rows"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body.Rows) == 0 {
		writeError(w, http.StatusBadRequest, "batch needs at least one row")
		return
	}

	batch, rows, err := r.importerService.CreateBatch(req.Context(), body.Name, body.Rows)
	if err != nil {
		r.logger.Error("creating import batch", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"batch": batch, "rows": rows})
}

func (r *Router) handleGetBatch(w http.ResponseWriter, req *http.Request) {
	batch, err := r.importerService.GetBatch(req.Context(), req.PathValue("id"))
	if err != nil {
		writeError(w, importStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (r *Router) handleListRows(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	if _, err := r.importerService.GetBatch(req.Context(), id); err != nil {
		writeError(w, importStatus(err), err.Error())
		return
	}

	rows, err := r.importerService.ListRows(req.Context(), id)
	if err != nil {
		r.logger.Error("listing import rows", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (r *Router) handleConfirmRow(w http.ResponseWriter, req *http.Request) {
	var body struct {
		AthleteID string `json:"athlete_id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.AthleteID == "" {
		writeError(w, http.StatusBadRequest, "athlete_id is required")
		return
	}

	row, err := r.importerService.ConfirmRow(req.Context(), req.PathValue("rowId"), body.AthleteID)
	if err != nil {
		writeError(w, importStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (r *Router) handleConfirmNew(w http.ResponseWriter, req *http.Request) {
	row, err := r.importerService.ConfirmNew(req.Context(), req.PathValue("rowId"))
	if err != nil {
		writeError(w, importStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (r *Router) handleRejectRow(w http.ResponseWriter, req *http.Request) {
	row, err := r.importerService.RejectRow(req.Context(), req.PathValue("rowId"))
	if err != nil {
		writeError(w, importStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (r *Router) handleCommitBatch(w http.ResponseWriter, req *http.Request) {
	summary, err := r.importerService.CommitBatch(req.Context(), req.PathValue("id"))
	if err != nil {
		r.logger.Error("committing import batch", "error", err)
		writeError(w, importStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// importStatus maps importer error kinds to HTTP status codes.
func importStatus(err error) int {
	switch {
	case errors.Is(err, importer.ErrBatchNotFound), errors.Is(err, importer.ErrRowNotFound):
		return http.StatusNotFound
	case errors.Is(err, importer.ErrRowNotDecidable), errors.Is(err, importer.ErrBatchNotOpen):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
