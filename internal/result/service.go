package result

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// resultColumns is the ordered list of columns for SELECT queries.
const resultColumns = `id, athlete_id, discipline_id, year, championship, gender, placement, performance, source, created_at, updated_at`

// Service provides result data operations. It implements the result-store
// side of the merge transaction.
type Service struct {
	db *sql.DB
}

// NewService creates a result service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create inserts a new result.
func (s *Service) Create(ctx context.Context, r *Result) error {
	if r.AthleteID == "" {
		return fmt.Errorf("result requires an athlete id")
	}
	if r.DisciplineID == "" {
		return fmt.Errorf("result requires a discipline id")
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Championship == "" {
		r.Championship = ChampionshipOutdoor
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO results (id, athlete_id, discipline_id, year, championship, gender, placement, performance, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.AthleteID, r.DisciplineID, r.Year, r.Championship, r.Gender,
		r.Placement, r.Performance, r.Source,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating result: %w", err)
	}
	return nil
}

// GetByID retrieves a result by primary key. Returns nil if absent.
func (s *Service) GetByID(ctx context.Context, id string) (*Result, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+resultColumns+` FROM results WHERE id = ?`, id)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting result by id: %w", err)
	}
	return r, nil
}

// ListByAthlete returns all results attributed to an athlete, newest first.
func (s *Service) ListByAthlete(ctx context.Context, athleteID string) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM results WHERE athlete_id = ? ORDER BY year DESC, championship, placement`, athleteID)
	if err != nil {
		return nil, fmt.Errorf("listing results for athlete: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var results []Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

// Exists reports whether a result with the same attribution key is
// already stored. Re-running an ingestion must not duplicate rows.
func (s *Service) Exists(ctx context.Context, athleteID, disciplineID string, year int, championship string, placement int) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM results
		WHERE athlete_id = ? AND discipline_id = ? AND year = ? AND championship = ? AND placement = ?
	`, athleteID, disciplineID, year, championship, placement).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking result existence: %w", err)
	}
	return count > 0, nil
}

// CountByAthlete returns the number of results referencing an athlete.
func (s *Service) CountByAthlete(ctx context.Context, athleteID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM results WHERE athlete_id = ?`, athleteID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting results for athlete: %w", err)
	}
	return count, nil
}

// ReassignResults moves every result from one athlete to another as a
// single statement, so the merge transaction can treat it as one
// failure-atomic step. Returns the number of rows moved.
func (s *Service) ReassignResults(ctx context.Context, fromID, toID string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`UPDATE results SET athlete_id = ?, updated_at = ? WHERE athlete_id = ?`, toID, now, fromID)
	if err != nil {
		return 0, fmt.Errorf("reassigning results: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading reassigned row count: %w", err)
	}
	return n, nil
}

// Leaderboard returns a filtered, paginated leaderboard page with athlete
// display fields joined in, plus the total row count.
func (s *Service) Leaderboard(ctx context.Context, params LeaderboardParams) ([]LeaderboardEntry, int, error) {
	params.Validate()

	var conditions []string
	var args []any
	if params.DisciplineID != "" {
		conditions = append(conditions, "r.discipline_id = ?")
		args = append(args, params.DisciplineID)
	}
	if params.Gender != "" {
		conditions = append(conditions, "r.gender = ?")
		args = append(args, params.Gender)
	}
	if params.Championship != "" {
		conditions = append(conditions, "r.championship = ?")
		args = append(args, params.Championship)
	}
	if params.YearFrom != 0 {
		conditions = append(conditions, "r.year >= ?")
		args = append(args, params.YearFrom)
	}
	if params.YearTo != 0 {
		conditions = append(conditions, "r.year <= ?")
		args = append(args, params.YearTo)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM results r"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting leaderboard rows: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	query := `
		SELECT r.id, r.athlete_id, r.discipline_id, r.year, r.championship, r.gender,
			r.placement, r.performance, r.source, r.created_at, r.updated_at,
			TRIM(a.first_name || ' ' || a.last_name), a.club
		FROM results r JOIN athletes a ON a.id = r.athlete_id` + where + `
		ORDER BY r.year DESC, r.championship, r.placement, a.last_name
		LIMIT ? OFFSET ?`
	args = append(args, params.PageSize, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying leaderboard: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		var createdAt, updatedAt string
		if err := rows.Scan(
			&e.ID, &e.AthleteID, &e.DisciplineID, &e.Year, &e.Championship, &e.Gender,
			&e.Placement, &e.Performance, &e.Source, &createdAt, &updatedAt,
			&e.AthleteName, &e.AthleteClub,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning leaderboard row: %w", err)
		}
		e.CreatedAt = parseTime(createdAt)
		e.UpdatedAt = parseTime(updatedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating leaderboard rows: %w", err)
	}

	return entries, total, nil
}

// MedalTally counts one athlete's gold, silver, and bronze results.
func (s *Service) MedalTally(ctx context.Context, athleteID string) (*Tally, error) {
	t := &Tally{AthleteID: athleteID}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN placement = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN placement = 2 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN placement = 3 THEN 1 ELSE 0 END), 0)
		FROM results WHERE athlete_id = ?
	`, athleteID).Scan(&t.Gold, &t.Silver, &t.Bronze)
	if err != nil {
		return nil, fmt.Errorf("tallying medals: %w", err)
	}
	return t, nil
}

// TopMedalists returns the athletes with the most medals, gold-heavy first.
func (s *Service) TopMedalists(ctx context.Context, limit int) ([]MedalistEntry, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.athlete_id, TRIM(a.first_name || ' ' || a.last_name),
			SUM(CASE WHEN r.placement = 1 THEN 1 ELSE 0 END) AS gold,
			SUM(CASE WHEN r.placement = 2 THEN 1 ELSE 0 END) AS silver,
			SUM(CASE WHEN r.placement = 3 THEN 1 ELSE 0 END) AS bronze,
			COUNT(*) AS total
		FROM results r JOIN athletes a ON a.id = r.athlete_id
		WHERE r.placement BETWEEN 1 AND 3
		GROUP BY r.athlete_id
		ORDER BY gold DESC, silver DESC, bronze DESC, a.last_name
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top medalists: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []MedalistEntry
	for rows.Next() {
		var e MedalistEntry
		if err := rows.Scan(&e.AthleteID, &e.AthleteName, &e.Gold, &e.Silver, &e.Bronze, &e.Total); err != nil {
			return nil, fmt.Errorf("scanning medalist row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// scanResult scans a database row into a Result struct.
func scanResult(row interface{ Scan(...any) error }) (*Result, error) {
	var r Result
	var createdAt, updatedAt string
	err := row.Scan(&r.ID, &r.AthleteID, &r.DisciplineID, &r.Year, &r.Championship,
		&r.Gender, &r.Placement, &r.Performance, &r.Source, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
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
