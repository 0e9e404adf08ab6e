// Package api exposes the JSON API consumed by the results frontend and
// the admin tooling.
package api

import (
	"log/slog"
	"net/http"

	"github.com/oivindhaug/resultatbank/internal/api/middleware"
	"github.com/oivindhaug/resultatbank/internal/athlete"
	"github.com/oivindhaug/resultatbank/internal/discipline"
	"github.com/oivindhaug/resultatbank/internal/importer"
	"github.com/oivindhaug/resultatbank/internal/result"
	"github.com/oivindhaug/resultatbank/internal/scrape"
)

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	AthleteService    *athlete.Service
	ResultService     *result.Service
	DisciplineService *discipline.Service
	ImporterService   *importer.Service
	ScrapeService     *scrape.Service
	Merger            *athlete.Merger
	Logger            *slog.Logger
	BasePath          string
}

// Router sets up all HTTP routes for the application.
type Router struct {
	athleteService    *athlete.Service
	resultService     *result.Service
	disciplineService *discipline.Service
	importerService   *importer.Service
	scrapeService     *scrape.Service
	merger            *athlete.Merger
	logger            *slog.Logger
	basePath          string
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		athleteService:    deps.AthleteService,
		resultService:     deps.ResultService,
		disciplineService: deps.DisciplineService,
		importerService:   deps.ImporterService,
		scrapeService:     deps.ScrapeService,
		merger:            deps.Merger,
		logger:            deps.Logger,
		basePath:          deps.BasePath,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	bp := r.basePath

	mux.HandleFunc("GET "+bp+"/api/v1/health", r.handleHealth)

	// Athlete routes
	mux.HandleFunc("GET "+bp+"/api/v1/athletes", r.handleListAthletes)
	mux.HandleFunc("POST "+bp+"/api/v1/athletes", r.handleCreateAthlete)
	mux.HandleFunc("GET "+bp+"/api/v1/athletes/search", r.handleSearchAthletes)
	mux.HandleFunc("GET "+bp+"/api/v1/athletes/{id}", r.handleGetAthlete)
	mux.HandleFunc("PUT "+bp+"/api/v1/athletes/{id}", r.handleUpdateAthlete)
	mux.HandleFunc("DELETE "+bp+"/api/v1/athletes/{id}", r.handleDeleteAthlete)
	mux.HandleFunc("GET "+bp+"/api/v1/athletes/{id}/results", r.handleAthleteResults)
	mux.HandleFunc("GET "+bp+"/api/v1/athletes/{id}/medals", r.handleAthleteMedals)

	// Merge routes: preview first, then the irreversible commit
	mux.HandleFunc("GET "+bp+"/api/v1/merge/preview", r.handleMergePreview)
	mux.HandleFunc("POST "+bp+"/api/v1/merge", r.handleMerge)

	// Result routes
	mux.HandleFunc("GET "+bp+"/api/v1/results", r.handleLeaderboard)
	mux.HandleFunc("GET "+bp+"/api/v1/results/medalists", r.handleTopMedalists)
	mux.HandleFunc("GET "+bp+"/api/v1/disciplines", r.handleListDisciplines)

	// Import review routes
	mux.HandleFunc("GET "+bp+"/api/v1/imports", r.handleListBatches)
	mux.HandleFunc("POST "+bp+"/api/v1/imports", r.handleCreateBatch)
	mux.HandleFunc("GET "+bp+"/api/v1/imports/{id}", r.handleGetBatch)
	mux.HandleFunc("GET "+bp+"/api/v1/imports/{id}/rows", r.handleListRows)
	mux.HandleFunc("POST "+bp+"/api/v1/imports/{id}/commit", r.handleCommitBatch)
	mux.HandleFunc("POST "+bp+"/api/v1/imports/rows/{rowId}/confirm", r.handleConfirmRow)
	mux.HandleFunc("POST "+bp+"/api/v1/imports/rows/{rowId}/confirm-new", r.handleConfirmNew)
	mux.HandleFunc("POST "+bp+"/api/v1/imports/rows/{rowId}/reject", r.handleRejectRow)

	// Scrape job routes
	mux.HandleFunc("POST "+bp+"/api/v1/scrape/run", r.handleScrapeRun)
	mux.HandleFunc("GET "+bp+"/api/v1/scrape/status", r.handleScrapeStatus)

	return middleware.Logging(r.logger)(mux)
}
