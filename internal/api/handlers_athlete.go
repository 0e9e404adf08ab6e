package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oivindhaug/resultatbank/internal/athlete"
)

func (r *Router) handleListAthletes(w http.ResponseWriter, req *http.Request) {
	params := athlete.ListParams{
		Page:     intQuery(req, "page", 1),
		PageSize: intQuery(req, "page_size", 50),
		Sort:     req.URL.Query().Get("sort"),
		Order:    req.URL.Query().Get("order"),
		Search:   req.URL.Query().Get("search"),
		Gender:   req.URL.Query().Get("gender"),
	}

	athletes, total, err := r.athleteService.List(req.Context(), params)
	if err != nil {
		r.logger.Error("listing athletes", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"athletes": athletes,
		"total":    total,
		"page":     params.Page,
	})
}

func (r *Router) handleGetAthlete(w http.ResponseWriter, req *http.Request) {
	a, err := r.athleteService.GetByID(req.Context(), req.PathValue("id"))
	if err != nil {
		r.logger.Error("getting athlete", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "athlete not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (r *Router) handleCreateAthlete(w http.ResponseWriter, req *http.Request) {
	var a athlete.Athlete
	if err := json.NewDecoder(req.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a.ID = ""

	if err := r.athleteService.Create(req.Context(), &a); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (r *Router) handleUpdateAthlete(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	existing, err := r.athleteService.GetByID(req.Context(), id)
	if err != nil {
		r.logger.Error("getting athlete", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "athlete not found")
		return
	}

	var a athlete.Athlete
	if err := json.NewDecoder(req.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a.ID = id

	if err := r.athleteService.Update(req.Context(), &a); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (r *Router) handleDeleteAthlete(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")

	count, err := r.resultService.CountByAthlete(req.Context(), id)
	if err != nil {
		r.logger.Error("counting athlete results", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if count > 0 {
		writeError(w, http.StatusConflict, "athlete still has results; merge instead of deleting")
		return
	}

	if err := r.athleteService.Delete(req.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "athlete not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (r *Router) handleSearchAthletes(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	athletes, err := r.athleteService.Search(req.Context(), q)
	if err != nil {
		r.logger.Error("searching athletes", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"athletes": athletes})
}

func (r *Router) handleAthleteResults(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	a, err := r.athleteService.GetByID(req.Context(), id)
	if err != nil {
		r.logger.Error("getting athlete", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "athlete not found")
		return
	}

	results, err := r.resultService.ListByAthlete(req.Context(), id)
	if err != nil {
		r.logger.Error("listing athlete results", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"athlete": a, "results": results})
}

func (r *Router) handleAthleteMedals(w http.ResponseWriter, req *http.Request) {
	tally, err := r.resultService.MedalTally(req.Context(), req.PathValue("id"))
	if err != nil {
		r.logger.Error("tallying medals", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, tally)
}

func (r *Router) handleMergePreview(w http.ResponseWriter, req *http.Request) {
	sourceID := req.URL.Query().Get("source")
	targetID := req.URL.Query().Get("target")

	preview, err := r.merger.Preview(req.Context(), sourceID, targetID)
	if err != nil {
		writeError(w, mergeStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (r *Router) handleMerge(w http.ResponseWriter, req *http.Request) {
	var body struct {
		SourceID string `json:"source_id"`
		TargetID string `json:"target_id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := r.merger.Merge(req.Context(), body.SourceID, body.TargetID)
	if err != nil {
		r.logger.Error("merging athletes",
			"source", body.SourceID, "target", body.TargetID, "error", err)
		writeError(w, mergeStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// mergeStatus maps merge error kinds to HTTP status codes.
func mergeStatus(err error) int {
	switch {
	case errors.Is(err, athlete.ErrSameAthlete):
		return http.StatusBadRequest
	case errors.Is(err, athlete.ErrAthleteNotFound):
		return http.StatusNotFound
	case errors.Is(err, athlete.ErrReassignMismatch):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
