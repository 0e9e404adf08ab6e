package api

import (
	"net/http"

	"github.com/oivindhaug/resultatbank/internal/result"
)

func (r *Router) handleLeaderboard(w http.ResponseWriter, req *http.Request) {
	params := result.LeaderboardParams{
		DisciplineID: req.URL.Query().Get("discipline"),
		Gender:       req.URL.Query().Get("gender"),
		Championship: req.URL.Query().Get("championship"),
		YearFrom:     intQuery(req, "year_from", 0),
		YearTo:       intQuery(req, "year_to", 0),
		Page:         intQuery(req, "page", 1),
		PageSize:     intQuery(req, "page_size", 50),
	}

	entries, total, err := r.resultService.Leaderboard(req.Context(), params)
	if err != nil {
		r.logger.Error("querying leaderboard", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": entries,
		"total":   total,
		"page":    params.Page,
	})
}

func (r *Router) handleTopMedalists(w http.ResponseWriter, req *http.Request) {
	entries, err := r.resultService.TopMedalists(req.Context(), intQuery(req, "limit", 20))
	if err != nil {
		r.logger.Error("querying top medalists", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"medalists": entries})
}

func (r *Router) handleListDisciplines(w http.ResponseWriter, req *http.Request) {
	disciplines, err := r.disciplineService.List(req.Context())
	if err != nil {
		r.logger.Error("listing disciplines", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"disciplines": disciplines})
}
