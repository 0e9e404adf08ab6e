package api

import (
	"context"
	"net/http"
)

func (r *Router) handleScrapeRun(w http.ResponseWriter, req *http.Request) {
	// The run outlives this request; it is tied to the server lifetime,
	// not the request context.
	report, err := r.scrapeService.Run(context.WithoutCancel(req.Context()))
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, report)
}

func (r *Router) handleScrapeStatus(w http.ResponseWriter, req *http.Request) {
	report := r.scrapeService.Status()
	if report == nil {
		writeError(w, http.StatusNotFound, "no scrape has run yet")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
