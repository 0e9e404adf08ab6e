package importer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oivindhaug/resultatbank/internal/athlete"
	"github.com/oivindhaug/resultatbank/internal/discipline"
	"github.com/oivindhaug/resultatbank/internal/result"
)

// Review state machine violations, distinguishable with errors.Is.
var (
	ErrBatchNotFound   = errors.New("import batch not found")
	ErrRowNotFound     = errors.New("import row not found")
	ErrRowNotDecidable = errors.New("row is not awaiting a decision")
	ErrBatchNotOpen    = errors.New("batch is not open")
)

const rowColumns = `id, batch_id, row_number, raw_name, club, gender, birth_year, discipline, year, championship, placement, performance, state, candidates, proposed_athlete_id, athlete_id, created_at, updated_at`

// Service runs the import review workflow.
type Service struct {
	db          *sql.DB
	athletes    *athlete.Service
	results     *result.Service
	disciplines *discipline.Service
	logger      *slog.Logger
}

// NewService creates an importer service.
func NewService(db *sql.DB, athletes *athlete.Service, results *result.Service, disciplines *discipline.Service, logger *slog.Logger) *Service {
	return &Service{
		db:          db,
		athletes:    athletes,
		results:     results,
		disciplines: disciplines,
		logger:      logger.With(slog.String("component", "importer")),
	}
}

// CreateBatch stores a batch of rows and resolves each one against a
// single roster snapshot. Every row gets a persisted proposal so review
// can happen later, against the candidates seen now.
func (s *Service) CreateBatch(ctx context.Context, name string, inputs []RowInput) (*Batch, []Row, error) {
	// Reject bad rows before anything is stored; a batch must not be able
	// to carry a row that cannot commit.
	for i, in := range inputs {
		if !athlete.ValidGender(in.Gender) {
			return nil, nil, fmt.Errorf("row %d: invalid gender: %q", i+1, in.Gender)
		}
		if strings.TrimSpace(in.Name) == "" {
			return nil, nil, fmt.Errorf("row %d: name is required", i+1)
		}
	}

	index, err := athlete.LoadRoster(ctx, s.athletes, athlete.DefaultRosterPageSize)
	if err != nil {
		return nil, nil, fmt.Errorf("loading roster: %w", err)
	}

	now := time.Now().UTC()
	batch := &Batch{
		ID:        uuid.New().String(),
		Name:      name,
		Status:    BatchOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO import_batches (id, name, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, batch.ID, batch.Name, batch.Status, now.Format(time.RFC3339), now.Format(time.RFC3339)); err != nil {
		return nil, nil, fmt.Errorf("creating batch: %w", err)
	}

	rows := make([]Row, 0, len(inputs))
	for i, in := range inputs {
		row := Row{
			ID:           uuid.New().String(),
			BatchID:      batch.ID,
			RowNumber:    i + 1,
			RawName:      strings.TrimSpace(in.Name),
			Club:         in.Club,
			Gender:       in.Gender,
			BirthYear:    in.BirthYear,
			Discipline:   in.Discipline,
			Year:         in.Year,
			Championship: in.Championship,
			Placement:    in.Placement,
			Performance:  in.Performance,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if row.Championship == "" {
			row.Championship = result.ChampionshipOutdoor
		}

		q := athlete.Query{Name: row.RawName, Gender: row.Gender, BirthYear: row.BirthYear}
		proposal := athlete.ResolveSupervised(q, athlete.FindCandidates(q, index, athlete.DefaultCandidateLimit))

		row.Candidates = proposal.Candidates
		switch proposal.State {
		case athlete.ProposalAutoSelected:
			row.State = RowAutoSelected
			row.ProposedAthleteID = proposal.Selected.Identity.ID
		case athlete.ProposalPresented:
			row.State = RowPresented
		case athlete.ProposalNoCandidates:
			row.State = RowNoCandidates
		}

		if err := s.insertRow(ctx, &row); err != nil {
			return nil, nil, err
		}
		rows = append(rows, row)
	}

	s.logger.Info("import batch created",
		slog.String("batch_id", batch.ID),
		slog.Int("rows", len(rows)),
		slog.Int("roster_size", index.Size()),
	)
	return batch, rows, nil
}

func (s *Service) insertRow(ctx context.Context, row *Row) error {
	candidates, err := json.Marshal(row.Candidates)
	if err != nil {
		return fmt.Errorf("encoding candidates: %w", err)
	}
	if row.Candidates == nil {
		candidates = []byte("[]")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO import_rows (id, batch_id, row_number, raw_name, club, gender, birth_year, discipline, year, championship, placement, performance, state, candidates, proposed_athlete_id, athlete_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		row.ID, row.BatchID, row.RowNumber, row.RawName, row.Club, row.Gender,
		nullableInt(row.BirthYear), row.Discipline, row.Year, row.Championship,
		row.Placement, row.Performance, row.State, string(candidates),
		row.ProposedAthleteID, row.AthleteID,
		row.CreatedAt.Format(time.RFC3339), row.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting import row: %w", err)
	}
	return nil
}

// GetBatch retrieves a batch by id.
func (s *Service) GetBatch(ctx context.Context, id string) (*Batch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, status, created_at, updated_at FROM import_batches WHERE id = ?`, id)
	var b Batch
	var createdAt, updatedAt string
	err := row.Scan(&b.ID, &b.Name, &b.Status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting batch: %w", err)
	}
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return &b, nil
}

// ListBatches returns all batches, newest first.
func (s *Service) ListBatches(ctx context.Context) ([]Batch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, status, created_at, updated_at FROM import_batches ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var batches []Batch
	for rows.Next() {
		var b Batch
		var createdAt, updatedAt string
		if err := rows.Scan(&b.ID, &b.Name, &b.Status, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning batch row: %w", err)
		}
		b.CreatedAt = parseTime(createdAt)
		b.UpdatedAt = parseTime(updatedAt)
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// ListRows returns a batch's rows in original order.
func (s *Service) ListRows(ctx context.Context, batchID string) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+rowColumns+` FROM import_rows WHERE batch_id = ? ORDER BY row_number`, batchID)
	if err != nil {
		return nil, fmt.Errorf("listing import rows: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning import row: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// GetRow retrieves one import row.
func (s *Service) GetRow(ctx context.Context, id string) (*Row, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+rowColumns+` FROM import_rows WHERE id = ?`, id)
	r, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRowNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting import row: %w", err)
	}
	return r, nil
}

// ConfirmRow attaches a row to an existing athlete. The reviewer may pick
// any athlete, not just a listed candidate.
func (s *Service) ConfirmRow(ctx context.Context, rowID, athleteID string) (*Row, error) {
	r, err := s.GetRow(ctx, rowID)
	if err != nil {
		return nil, err
	}
	if !decidable(r.State) {
		return nil, fmt.Errorf("%w: row %s is %s", ErrRowNotDecidable, rowID, r.State)
	}

	a, err := s.athletes.GetByID(ctx, athleteID)
	if err != nil {
		return nil, fmt.Errorf("loading athlete: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("confirming row: athlete not found: %s", athleteID)
	}

	return s.decideRow(ctx, r, RowConfirmed, athleteID)
}

// ConfirmNew marks a row for athlete creation at commit time.
func (s *Service) ConfirmNew(ctx context.Context, rowID string) (*Row, error) {
	r, err := s.GetRow(ctx, rowID)
	if err != nil {
		return nil, err
	}
	if !decidable(r.State) {
		return nil, fmt.Errorf("%w: row %s is %s", ErrRowNotDecidable, rowID, r.State)
	}
	return s.decideRow(ctx, r, RowConfirmedNew, "")
}

// RejectRow discards a row from the batch.
func (s *Service) RejectRow(ctx context.Context, rowID string) (*Row, error) {
	r, err := s.GetRow(ctx, rowID)
	if err != nil {
		return nil, err
	}
	if !decidable(r.State) {
		return nil, fmt.Errorf("%w: row %s is %s", ErrRowNotDecidable, rowID, r.State)
	}
	return s.decideRow(ctx, r, RowRejected, "")
}

func (s *Service) decideRow(ctx context.Context, r *Row, state, athleteID string) (*Row, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		UPDATE import_rows SET state = ?, athlete_id = ?, updated_at = ? WHERE id = ?
	`, state, athleteID, now.Format(time.RFC3339), r.ID)
	if err != nil {
		return nil, fmt.Errorf("updating import row: %w", err)
	}
	r.State = state
	r.AthleteID = athleteID
	r.UpdatedAt = now
	return r, nil
}

// CommitBatch turns the batch's confirmed rows into results. Confirmed-new
// rows get a freshly created athlete first. Undecided and rejected rows
// are counted as skipped; committing is final.
//
// Every row lands idempotently: a result is only inserted if its
// attribution key is not already stored, and a confirmed-new row reuses
// the athlete it created on an earlier attempt. A commit that fails
// partway leaves the batch open and can be retried without duplicating
// what already landed.
func (s *Service) CommitBatch(ctx context.Context, batchID string) (*CommitSummary, error) {
	b, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if b.Status != BatchOpen {
		return nil, fmt.Errorf("%w: %s is %s", ErrBatchNotOpen, batchID, b.Status)
	}

	rows, err := s.ListRows(ctx, batchID)
	if err != nil {
		return nil, err
	}

	summary := &CommitSummary{BatchID: batchID}
	for i := range rows {
		r := &rows[i]
		switch r.State {
		case RowConfirmed:
			created, err := s.commitRow(ctx, r, r.AthleteID)
			if err != nil {
				return nil, fmt.Errorf("committing row %d: %w", r.RowNumber, err)
			}
			if created {
				summary.ResultsCreated++
			}
		case RowConfirmedNew:
			athleteID := r.AthleteID
			if athleteID == "" {
				first, last := athlete.SplitFullName(r.RawName)
				a := &athlete.Athlete{
					FirstName: first,
					LastName:  last,
					Gender:    r.Gender,
					BirthYear: r.BirthYear,
					Club:      r.Club,
				}
				if err := s.athletes.Create(ctx, a); err != nil {
					return nil, fmt.Errorf("creating athlete for row %d: %w", r.RowNumber, err)
				}
				// Persist the athlete id before the result insert, so a
				// retry finds the athlete instead of creating a second one.
				if _, err := s.decideRow(ctx, r, RowConfirmedNew, a.ID); err != nil {
					return nil, err
				}
				athleteID = a.ID
				summary.AthletesCreated++
			}
			created, err := s.commitRow(ctx, r, athleteID)
			if err != nil {
				return nil, fmt.Errorf("committing row %d: %w", r.RowNumber, err)
			}
			if created {
				summary.ResultsCreated++
			}
		default:
			summary.RowsSkipped++
		}
	}

	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, `
		UPDATE import_batches SET status = ?, updated_at = ? WHERE id = ?
	`, BatchCommitted, now.Format(time.RFC3339), batchID); err != nil {
		return nil, fmt.Errorf("closing batch: %w", err)
	}

	s.logger.Info("import batch committed",
		slog.String("batch_id", batchID),
		slog.Int("results_created", summary.ResultsCreated),
		slog.Int("athletes_created", summary.AthletesCreated),
		slog.Int("rows_skipped", summary.RowsSkipped),
	)
	return summary, nil
}

// commitRow stores the row's result unless its attribution key already
// exists, reporting whether a row was inserted.
func (s *Service) commitRow(ctx context.Context, r *Row, athleteID string) (bool, error) {
	d, err := s.disciplines.GetOrCreateByName(ctx, r.Discipline)
	if err != nil {
		return false, err
	}
	championship := r.Championship
	if championship == "" {
		championship = result.ChampionshipOutdoor
	}
	exists, err := s.results.Exists(ctx, athleteID, d.ID, r.Year, championship, r.Placement)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	err = s.results.Create(ctx, &result.Result{
		AthleteID:    athleteID,
		DisciplineID: d.ID,
		Year:         r.Year,
		Championship: championship,
		Gender:       r.Gender,
		Placement:    r.Placement,
		Performance:  r.Performance,
		Source:       "import",
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func scanRow(row interface{ Scan(...any) error }) (*Row, error) {
	var r Row
	var birthYear sql.NullInt64
	var candidates, createdAt, updatedAt string
	err := row.Scan(
		&r.ID, &r.BatchID, &r.RowNumber, &r.RawName, &r.Club, &r.Gender, &birthYear,
		&r.Discipline, &r.Year, &r.Championship, &r.Placement, &r.Performance,
		&r.State, &candidates, &r.ProposedAthleteID, &r.AthleteID, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if birthYear.Valid {
		y := int(birthYear.Int64)
		r.BirthYear = &y
	}
	if err := json.Unmarshal([]byte(candidates), &r.Candidates); err != nil {
		return nil, fmt.Errorf("decoding candidates: %w", err)
	}
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

// parseTime parses a time string, handling both RFC3339 and SQLite datetime formats.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
