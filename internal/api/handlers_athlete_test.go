package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/oivindhaug/resultatbank/internal/athlete"
	"github.com/oivindhaug/resultatbank/internal/config"
	"github.com/oivindhaug/resultatbank/internal/database"
	"github.com/oivindhaug/resultatbank/internal/discipline"
	"github.com/oivindhaug/resultatbank/internal/importer"
	"github.com/oivindhaug/resultatbank/internal/result"
	"github.com/oivindhaug/resultatbank/internal/scrape"
)

func testRouter(t *testing.T) (*Router, http.Handler, *athlete.Service, *result.Service, *discipline.Service) {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	athleteSvc := athlete.NewService(db)
	resultSvc := result.NewService(db)
	disciplineSvc := discipline.NewService(db)
	importerSvc := importer.NewService(db, athleteSvc, resultSvc, disciplineSvc, logger)

	scrapeCfg := config.ScrapeConfig{StartYear: 1998, EndYear: 1998, RequestsPerSecond: 1000}
	scrapeSvc := scrape.NewService(athleteSvc, resultSvc, disciplineSvc, scrape.NewFetcher(scrapeCfg), scrapeCfg, logger)

	r := NewRouter(RouterDeps{
		AthleteService:    athleteSvc,
		ResultService:     resultSvc,
		DisciplineService: disciplineSvc,
		ImporterService:   importerSvc,
		ScrapeService:     scrapeSvc,
		Merger:            athlete.NewMerger(athleteSvc, resultSvc, logger),
		Logger:            logger,
	})

	return r, r.Handler(), athleteSvc, resultSvc, disciplineSvc
}

func TestHandleHealth(t *testing.T) {
	_, handler, _, _, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q", body["status"])
	}
}

func TestHandleCreateAndGetAthlete(t *testing.T) {
	_, handler, _, _, _ := testRouter(t)

	payload := `{"first_name":"Grete","last_name":"Waitz","gender":"F","birth_year":1953}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/athletes", strings.NewReader(payload))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", w.Code, w.Body.String())
	}
	var created athlete.Athlete
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding created athlete: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created athlete has no id")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/athletes/"+created.ID, nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got athlete.Athlete
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding athlete: %v", err)
	}
	if got.FullName() != "Grete Waitz" || got.BirthYear == nil || *got.BirthYear != 1953 {
		t.Errorf("got %+v", got)
	}
}

func TestHandleCreateAthleteRejectsInvalidGender(t *testing.T) {
	_, handler, _, _, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/athletes",
		strings.NewReader(`{"last_name":"Olsen","gender":"X"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleGetAthleteNotFound(t *testing.T) {
	_, handler, _, _, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/athletes/nope", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestHandleDeleteAthleteWithResultsConflicts(t *testing.T) {
	_, handler, athletes, results, disciplines := testRouter(t)
	ctx := context.Background()

	a := &athlete.Athlete{FirstName: "Jon", LastName: "Olsen", Gender: athlete.GenderMale}
	if err := athletes.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	d, err := disciplines.GetOrCreateByName(ctx, "100m")
	if err != nil {
		t.Fatalf("GetOrCreateByName: %v", err)
	}
	if err := results.Create(ctx, &result.Result{
		AthleteID: a.ID, DisciplineID: d.ID, Year: 1998, Placement: 1,
	}); err != nil {
		t.Fatalf("creating result: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/athletes/"+a.ID, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 while results exist", w.Code)
	}
}

func TestHandleMergeErrorMapping(t *testing.T) {
	_, handler, athletes, _, _ := testRouter(t)
	ctx := context.Background()

	a := &athlete.Athlete{FirstName: "Jon", LastName: "Olsen", Gender: athlete.GenderMale}
	if err := athletes.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Same id on both sides.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/merge",
		strings.NewReader(`{"source_id":"`+a.ID+`","target_id":"`+a.ID+`"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("same-id merge status = %d, want 400", w.Code)
	}

	// Missing target.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/merge",
		strings.NewReader(`{"source_id":"`+a.ID+`","target_id":"missing"}`))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing-target merge status = %d, want 404", w.Code)
	}
}

func TestHandleMergePreviewAndCommit(t *testing.T) {
	_, handler, athletes, results, disciplines := testRouter(t)
	ctx := context.Background()

	source := &athlete.Athlete{FirstName: "Jon", LastName: "Olsen", Gender: athlete.GenderMale}
	target := &athlete.Athlete{FirstName: "Jon", LastName: "Olsen", Gender: athlete.GenderMale}
	for _, a := range []*athlete.Athlete{source, target} {
		if err := athletes.Create(ctx, a); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	d, err := disciplines.GetOrCreateByName(ctx, "100m")
	if err != nil {
		t.Fatalf("GetOrCreateByName: %v", err)
	}
	for year := 1990; year < 1993; year++ {
		if err := results.Create(ctx, &result.Result{
			AthleteID: source.ID, DisciplineID: d.ID, Year: year, Placement: 1,
		}); err != nil {
			t.Fatalf("creating result: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/merge/preview?source="+source.ID+"&target="+target.ID, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("preview status = %d; body: %s", w.Code, w.Body.String())
	}
	var preview athlete.MergePreview
	if err := json.Unmarshal(w.Body.Bytes(), &preview); err != nil {
		t.Fatalf("decoding preview: %v", err)
	}
	if preview.SourceResults != 3 || preview.TargetResults != 0 {
		t.Errorf("preview = %+v", preview)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/merge",
		strings.NewReader(`{"source_id":"`+source.ID+`","target_id":"`+target.ID+`"}`))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("merge status = %d; body: %s", w.Code, w.Body.String())
	}
	var outcome athlete.MergeOutcome
	if err := json.Unmarshal(w.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decoding outcome: %v", err)
	}
	if outcome.MovedResults != 3 || outcome.TargetTotal != 3 {
		t.Errorf("outcome = %+v", outcome)
	}
}

func TestHandleScrapeStatusBeforeAnyRun(t *testing.T) {
	_, handler, _, _, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scrape/status", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 before first run", w.Code)
	}
}
