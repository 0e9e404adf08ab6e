package scrape

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oivindhaug/resultatbank/internal/athlete"
	"github.com/oivindhaug/resultatbank/internal/config"
	"github.com/oivindhaug/resultatbank/internal/database"
	"github.com/oivindhaug/resultatbank/internal/discipline"
	"github.com/oivindhaug/resultatbank/internal/result"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

const yearPage = `<html><body>
<h2>Menn</h2>
<table>
<tr><td>100m</td><td>Jon Olsen, Tjalve</td><td>Per Berg, Vidar</td><td>Intet mesterskap</td></tr>
</table>
</body></html>`

func newTestService(t *testing.T, db *sql.DB, baseURL string) *Service {
	t.Helper()
	cfg := config.ScrapeConfig{
		BaseURL:           baseURL,
		StartYear:         1998,
		EndYear:           1998,
		RequestsPerSecond: 1000,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(
		athlete.NewService(db),
		result.NewService(db),
		discipline.NewService(db),
		NewFetcher(cfg),
		cfg,
		logger,
	)
}

func TestRunSyncCreatesResultsForUniqueMatches(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	athletes := athlete.NewService(db)

	jon := &athlete.Athlete{FirstName: "Jon", LastName: "Olsen", Gender: athlete.GenderMale}
	if err := athletes.Create(ctx, jon); err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Per Berg is absent from the roster: his cell must surface as
	// no-match, never as a silently invented athlete.

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(yearPage)) //nolint:errcheck
	}))
	defer srv.Close()

	svc := newTestService(t, db, srv.URL)
	report, err := svc.RunSync(ctx)
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}

	if report.Created != 1 {
		t.Errorf("Created = %d, want 1", report.Created)
	}
	if report.NoMatch != 1 {
		t.Errorf("NoMatch = %d, want 1", report.NoMatch)
	}
	if report.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1 (sentinel cell)", report.Skipped)
	}
	if report.YearsFetched != 1 {
		t.Errorf("YearsFetched = %d, want 1", report.YearsFetched)
	}

	results := result.NewService(db)
	list, err := results.ListByAthlete(ctx, jon.ID)
	if err != nil {
		t.Fatalf("ListByAthlete: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("Jon owns %d results, want 1", len(list))
	}
	r := list[0]
	if r.Year != 1998 || r.Placement != result.PlacementGold || r.Source != "scrape" {
		t.Errorf("result = %+v", r)
	}
}

func TestRunSyncIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	athletes := athlete.NewService(db)

	jon := &athlete.Athlete{FirstName: "Jon", LastName: "Olsen", Gender: athlete.GenderMale}
	if err := athletes.Create(ctx, jon); err != nil {
		t.Fatalf("Create: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(yearPage)) //nolint:errcheck
	}))
	defer srv.Close()

	svc := newTestService(t, db, srv.URL)
	if _, err := svc.RunSync(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	report, err := svc.RunSync(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if report.Created != 0 {
		t.Errorf("second run Created = %d, want 0", report.Created)
	}
	if report.Existing != 1 {
		t.Errorf("second run Existing = %d, want 1", report.Existing)
	}

	count, err := result.NewService(db).CountByAthlete(ctx, jon.ID)
	if err != nil {
		t.Fatalf("CountByAthlete: %v", err)
	}
	if count != 1 {
		t.Errorf("Jon owns %d results after re-run, want 1", count)
	}
}

func TestRunSyncAmbiguityIsReportedNotGuessed(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	athletes := athlete.NewService(db)

	for range 2 {
		a := &athlete.Athlete{FirstName: "Jon", LastName: "Olsen", Gender: athlete.GenderMale}
		if err := athletes.Create(ctx, a); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(yearPage)) //nolint:errcheck
	}))
	defer srv.Close()

	svc := newTestService(t, db, srv.URL)
	report, err := svc.RunSync(ctx)
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}

	if report.Ambiguous != 1 {
		t.Errorf("Ambiguous = %d, want 1", report.Ambiguous)
	}
	if report.Created != 0 {
		t.Errorf("Created = %d, want 0 (ambiguity never attributes)", report.Created)
	}

	var total int
	if err := db.QueryRow("SELECT COUNT(*) FROM results").Scan(&total); err != nil {
		t.Fatalf("counting results: %v", err)
	}
	if total != 0 {
		t.Errorf("stored %d results, want 0", total)
	}
}

func TestRunSyncFetchFailureDoesNotAbortRun(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	athletes := athlete.NewService(db)

	jon := &athlete.Athlete{FirstName: "Jon", LastName: "Olsen", Gender: athlete.GenderMale}
	if err := athletes.Create(ctx, jon); err != nil {
		t.Fatalf("Create: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/medaljer/1998" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(yearPage)) //nolint:errcheck
	}))
	defer srv.Close()

	cfg := config.ScrapeConfig{
		BaseURL:           srv.URL,
		StartYear:         1998,
		EndYear:           1999,
		RequestsPerSecond: 1000,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(
		athletes,
		result.NewService(db),
		discipline.NewService(db),
		NewFetcher(cfg),
		cfg,
		logger,
	)

	report, err := svc.RunSync(ctx)
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}
	if report.Status != "completed" {
		t.Errorf("Status = %q, want completed", report.Status)
	}
	if report.FetchFailures != 1 {
		t.Errorf("FetchFailures = %d, want 1", report.FetchFailures)
	}
	if report.YearsFetched != 1 {
		t.Errorf("YearsFetched = %d, want 1", report.YearsFetched)
	}
	if report.Created != 1 {
		t.Errorf("Created = %d, want 1 from the surviving year", report.Created)
	}
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	db := setupTestDB(t)

	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
		w.Write([]byte(yearPage)) //nolint:errcheck
	}))
	defer srv.Close()
	defer close(blocked)

	svc := newTestService(t, db, srv.URL)
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if _, err := svc.Run(context.Background()); err == nil {
		t.Error("second Run should be rejected while the first is in progress")
	}
}
