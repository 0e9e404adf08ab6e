// Package discipline holds the lookup table of championship disciplines.
package discipline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Discipline is one championship event type (100m, spyd, maraton, ...).
type Discipline struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit,omitempty"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

// Service provides discipline data operations.
type Service struct {
	db *sql.DB
}

// NewService creates a discipline service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create inserts a new discipline.
func (s *Service) Create(ctx context.Context, d *Discipline) error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("discipline name is required")
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO disciplines (id, name, unit, sort_order, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, d.ID, d.Name, d.Unit, d.SortOrder, d.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("creating discipline: %w", err)
	}
	return nil
}

// GetByName retrieves a discipline by exact name. Returns nil if absent.
func (s *Service) GetByName(ctx context.Context, name string) (*Discipline, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, unit, sort_order, created_at FROM disciplines WHERE name = ?`, name)
	d, err := scanDiscipline(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting discipline by name: %w", err)
	}
	return d, nil
}

// GetOrCreateByName returns the discipline with the given name, creating
// it if it does not exist. Used by scrape and import ingestion.
func (s *Service) GetOrCreateByName(ctx context.Context, name string) (*Discipline, error) {
	name = strings.TrimSpace(name)
	d, err := s.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if d != nil {
		return d, nil
	}

	d = &Discipline{Name: name}
	if err := s.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// List returns all disciplines in display order.
func (s *Service) List(ctx context.Context) ([]Discipline, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, unit, sort_order, created_at FROM disciplines ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("listing disciplines: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var disciplines []Discipline
	for rows.Next() {
		d, err := scanDiscipline(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning discipline row: %w", err)
		}
		disciplines = append(disciplines, *d)
	}
	return disciplines, rows.Err()
}

func scanDiscipline(row interface{ Scan(...any) error }) (*Discipline, error) {
	var d Discipline
	var createdAt string
	if err := row.Scan(&d.ID, &d.Name, &d.Unit, &d.SortOrder, &createdAt); err != nil {
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		d.CreatedAt = t
	}
	return &d, nil
}
