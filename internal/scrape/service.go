package scrape

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/oivindhaug/resultatbank/internal/athlete"
	"github.com/oivindhaug/resultatbank/internal/config"
	"github.com/oivindhaug/resultatbank/internal/discipline"
	"github.com/oivindhaug/resultatbank/internal/result"
)

// resolveWorkers bounds concurrent candidate lookups within one run.
const resolveWorkers = 4

// Service runs batch scrape jobs: fetch each year's medal page, resolve
// winner cells against one roster snapshot, and store results for
// unambiguous matches. Ambiguity is reported, never guessed at.
type Service struct {
	athletes    *athlete.Service
	results     *result.Service
	disciplines *discipline.Service
	fetcher     *Fetcher
	splitter    *athlete.CellSplitter
	cfg         config.ScrapeConfig
	logger      *slog.Logger

	mu         sync.Mutex
	currentRun *Report
}

// NewService creates a scrape service.
func NewService(athletes *athlete.Service, results *result.Service, disciplines *discipline.Service, fetcher *Fetcher, cfg config.ScrapeConfig, logger *slog.Logger) *Service {
	return &Service{
		athletes:    athletes,
		results:     results,
		disciplines: disciplines,
		fetcher:     fetcher,
		splitter:    athlete.NewCellSplitter(nil),
		cfg:         cfg,
		logger:      logger.With(slog.String("component", "scrape")),
	}
}

// Run starts a scrape in the background. Only one run at a time. Returns
// a snapshot of the initial report (safe to read without synchronization).
func (s *Service) Run(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	if s.currentRun != nil && s.currentRun.Status == "running" {
		s.mu.Unlock()
		return nil, fmt.Errorf("scrape already in progress")
	}

	report := &Report{
		ID:        uuid.New().String(),
		Status:    "running",
		StartedAt: time.Now().UTC(),
	}
	s.currentRun = report
	snapshot := *report
	s.mu.Unlock()

	go s.execute(ctx, report)

	return &snapshot, nil
}

// RunSync runs a scrape inline and returns the completed report. Used by
// the CLI subcommand.
func (s *Service) RunSync(ctx context.Context) (*Report, error) {
	report, err := s.Run(ctx)
	if err != nil {
		return nil, err
	}
	// Poll until the background run finishes; the CLI has nothing else
	// to do meanwhile.
	for {
		current := s.Status()
		if current != nil && current.ID == report.ID && current.Status != "running" {
			if current.Status == "failed" {
				return current, fmt.Errorf("scrape failed: %s", current.Error)
			}
			return current, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Status returns a snapshot of the current or most recent run report.
// The returned value is a copy and safe to read without synchronization.
func (s *Service) Status() *Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentRun == nil {
		return nil
	}
	snapshot := *s.currentRun
	return &snapshot
}

func (s *Service) execute(ctx context.Context, report *Report) {
	defer func() {
		s.mu.Lock()
		now := time.Now().UTC()
		report.CompletedAt = &now
		if report.Status == "running" {
			report.Status = "completed"
		}
		s.mu.Unlock()

		s.logger.Info("scrape run finished",
			slog.String("run_id", report.ID),
			slog.String("status", report.Status),
			slog.Int("created", report.Created),
			slog.Int("ambiguous", report.Ambiguous),
			slog.Int("no_match", report.NoMatch),
			slog.Int("fetch_failures", report.FetchFailures),
		)
	}()

	// One snapshot for the whole run: every year's cells match against
	// the same index, and athletes created mid-run do not shift results.
	index, err := athlete.LoadRoster(ctx, s.athletes, athlete.DefaultRosterPageSize)
	if err != nil {
		s.mu.Lock()
		report.Status = "failed"
		report.Error = fmt.Sprintf("loading roster: %v", err)
		s.mu.Unlock()
		return
	}
	s.logger.Info("roster snapshot loaded", slog.Int("identities", index.Size()))

	for year := s.cfg.StartYear; year <= s.cfg.EndYear; year++ {
		if ctx.Err() != nil {
			s.mu.Lock()
			report.Status = "failed"
			report.Error = "scrape canceled"
			s.mu.Unlock()
			return
		}

		if err := s.processYear(ctx, year, index, report); err != nil {
			// A failed year is recorded and the run moves on; one bad
			// page must not discard the rest of the history.
			s.mu.Lock()
			report.FetchFailures++
			s.mu.Unlock()
			s.logger.Warn("skipping year after fetch failure",
				slog.Int("year", year), slog.String("error", err.Error()))
			continue
		}

		s.mu.Lock()
		report.YearsFetched++
		s.mu.Unlock()
	}
}

// resolvedCell pairs a winner cell with its resolution verdict.
type resolvedCell struct {
	cell MedalCell
	name string
	club string
	ok   bool
	res  athlete.AutoResolution
}

func (s *Service) processYear(ctx context.Context, year int, index *athlete.RosterIndex, report *Report) error {
	body, err := s.fetcher.FetchYear(ctx, year)
	if err != nil {
		return err
	}
	cells, err := ParseMedalPage(bytes.NewReader(body))
	if err != nil {
		return err
	}

	// Resolution reads the immutable index only, so cells fan out over a
	// bounded worker group; each goroutine writes to its own slot.
	resolved := make([]resolvedCell, len(cells))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(resolveWorkers)
	for i, cell := range cells {
		g.Go(func() error {
			rc := resolvedCell{cell: cell}
			rc.name, rc.club, rc.ok = s.splitter.Split(cell.Text)
			if rc.ok {
				q := athlete.Query{Name: rc.name, Gender: cell.Gender}
				rc.res = athlete.ResolveAuto(athlete.FindCandidates(q, index, 0))
			}
			resolved[i] = rc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Storage is sequential: a single writer connection, and counters
	// updated in row order keep the report deterministic.
	for _, rc := range resolved {
		if !rc.ok {
			s.mu.Lock()
			report.Skipped++
			s.mu.Unlock()
			continue
		}

		switch rc.res.Outcome {
		case athlete.OutcomeMatched:
			if err := s.storeResult(ctx, year, rc, report); err != nil {
				s.logger.Warn("storing scraped result",
					slog.Int("year", year),
					slog.String("name", rc.name),
					slog.String("error", err.Error()))
			}
		case athlete.OutcomeAmbiguous:
			s.mu.Lock()
			report.Ambiguous++
			s.mu.Unlock()
			s.logger.Info("ambiguous winner cell left for review",
				slog.Int("year", year),
				slog.String("name", rc.name),
				slog.Int("candidates", len(rc.res.Candidates)))
		case athlete.OutcomeNoMatch:
			s.mu.Lock()
			report.NoMatch++
			s.mu.Unlock()
			s.logger.Info("no roster match for winner cell",
				slog.Int("year", year),
				slog.String("name", rc.name),
				slog.String("club", rc.club))
		}
	}

	return nil
}

func (s *Service) storeResult(ctx context.Context, year int, rc resolvedCell, report *Report) error {
	d, err := s.disciplines.GetOrCreateByName(ctx, rc.cell.Discipline)
	if err != nil {
		return err
	}

	exists, err := s.results.Exists(ctx, rc.res.Athlete.ID, d.ID, year, result.ChampionshipOutdoor, rc.cell.Placement)
	if err != nil {
		return err
	}
	if exists {
		s.mu.Lock()
		report.Existing++
		s.mu.Unlock()
		return nil
	}

	r := &result.Result{
		AthleteID:    rc.res.Athlete.ID,
		DisciplineID: d.ID,
		Year:         year,
		Championship: result.ChampionshipOutdoor,
		Gender:       rc.cell.Gender,
		Placement:    rc.cell.Placement,
		Source:       "scrape",
	}
	if err := s.results.Create(ctx, r); err != nil {
		return err
	}

	s.mu.Lock()
	report.Created++
	s.mu.Unlock()
	return nil
}
