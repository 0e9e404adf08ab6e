package athlete

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// athleteColumns is the ordered list of columns for SELECT queries.
const athleteColumns = `id, first_name, last_name, gender, birth_year, club, created_at, updated_at`

// Service provides athlete data operations and implements RosterSource
// and AthleteStore.
type Service struct {
	db *sql.DB
}

// NewService creates an athlete service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create inserts a new athlete.
func (s *Service) Create(ctx context.Context, a *Athlete) error {
	if !ValidGender(a.Gender) {
		return fmt.Errorf("invalid gender: %q", a.Gender)
	}
	if a.FullName() == "" {
		return fmt.Errorf("athlete name is required")
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO athletes (id, first_name, last_name, gender, birth_year, club, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID, a.FirstName, a.LastName, a.Gender, nullableInt(a.BirthYear), a.Club,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating athlete: %w", err)
	}
	return nil
}

// GetByID retrieves an athlete by primary key. Returns nil if absent.
func (s *Service) GetByID(ctx context.Context, id string) (*Athlete, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+athleteColumns+` FROM athletes WHERE id = ?`, id)
	a, err := scanAthlete(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting athlete by id: %w", err)
	}
	return a, nil
}

// List returns a paginated list of athletes and the total count.
func (s *Service) List(ctx context.Context, params ListParams) ([]Athlete, int, error) {
	params.Validate()

	where, args := buildWhereClause(params)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM athletes"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting athletes: %w", err)
	}

	orderCol := params.Sort
	if params.Order == "desc" {
		orderCol += " DESC"
	} else {
		orderCol += " ASC"
	}

	offset := (params.Page - 1) * params.PageSize
	query := `SELECT ` + athleteColumns + ` FROM athletes` + where + //nolint:gosec // G202: orderCol is from validated params, not user input
		` ORDER BY ` + orderCol +
		` LIMIT ? OFFSET ?`
	args = append(args, params.PageSize, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing athletes: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var athletes []Athlete
	for rows.Next() {
		a, err := scanAthlete(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning athlete row: %w", err)
		}
		athletes = append(athletes, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating athlete rows: %w", err)
	}

	return athletes, total, nil
}

// Update modifies an existing athlete.
func (s *Service) Update(ctx context.Context, a *Athlete) error {
	if !ValidGender(a.Gender) {
		return fmt.Errorf("invalid gender: %q", a.Gender)
	}
	if a.FullName() == "" {
		return fmt.Errorf("athlete name is required")
	}
	a.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE athletes SET first_name = ?, last_name = ?, gender = ?, birth_year = ?, club = ?, updated_at = ?
		WHERE id = ?
	`,
		a.FirstName, a.LastName, a.Gender, nullableInt(a.BirthYear), a.Club,
		a.UpdatedAt.Format(time.RFC3339), a.ID,
	)
	if err != nil {
		return fmt.Errorf("updating athlete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("athlete not found: %s", a.ID)
	}
	return nil
}

// Delete removes an athlete by ID. Fails while results still reference it.
func (s *Service) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM athletes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting athlete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("athlete not found: %s", id)
	}
	return nil
}

// Search finds athletes by name substring match.
func (s *Service) Search(ctx context.Context, query string) ([]Athlete, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+athleteColumns+` FROM athletes
		WHERE LOWER(first_name || ' ' || last_name) LIKE ?
		ORDER BY last_name, first_name LIMIT 20
	`, pattern)
	if err != nil {
		return nil, fmt.Errorf("searching athletes: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var athletes []Athlete
	for rows.Next() {
		a, err := scanAthlete(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		athletes = append(athletes, *a)
	}
	return athletes, rows.Err()
}

// FetchIdentityPage returns one bounded page of athlete identities for
// roster index construction. Ordered by id so pagination is stable.
func (s *Service) FetchIdentityPage(ctx context.Context, offset, limit int) ([]Identity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, gender, birth_year
		FROM athletes ORDER BY id LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fetching identity page: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var page []Identity
	for rows.Next() {
		var id Identity
		var first, last string
		var birthYear sql.NullInt64
		if err := rows.Scan(&id.ID, &first, &last, &id.Gender, &birthYear); err != nil {
			return nil, fmt.Errorf("scanning identity row: %w", err)
		}
		id.FullName = strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
		if birthYear.Valid {
			y := int(birthYear.Int64)
			id.BirthYear = &y
		}
		page = append(page, id)
	}
	return page, rows.Err()
}

// scanAthlete scans a database row into an Athlete struct.
func scanAthlete(row interface{ Scan(...any) error }) (*Athlete, error) {
	var a Athlete
	var birthYear sql.NullInt64
	var createdAt, updatedAt string

	err := row.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Gender, &birthYear, &a.Club, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if birthYear.Valid {
		y := int(birthYear.Int64)
		a.BirthYear = &y
	}
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)

	return &a, nil
}

// buildWhereClause constructs WHERE conditions from list parameters.
func buildWhereClause(params ListParams) (string, []any) {
	var conditions []string
	var args []any

	if params.Search != "" {
		conditions = append(conditions, "LOWER(first_name || ' ' || last_name) LIKE ?")
		args = append(args, "%"+strings.ToLower(params.Search)+"%")
	}
	if params.Gender != "" {
		conditions = append(conditions, "gender = ?")
		args = append(args, params.Gender)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
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
