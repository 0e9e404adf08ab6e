// Package importer holds the human-reviewed import workflow: batches of
// result rows are resolved against the roster, reviewed row by row, and
// committed into the result store.
package importer

import (
	"time"

	"github.com/oivindhaug/resultatbank/internal/athlete"
)

// Batch statuses.
const (
	BatchOpen      = "open"
	BatchCommitted = "committed"
)

// Row states. A row starts unresolved, gets one of the proposal states
// when its batch is resolved, and ends in a decision state set by the
// reviewer. Only confirmed and confirmed_new rows produce results.
const (
	RowUnresolved   = "unresolved"
	RowAutoSelected = "auto_selected"
	RowPresented    = "presented"
	RowNoCandidates = "no_candidates"
	RowConfirmed    = "confirmed"
	RowConfirmedNew = "confirmed_new"
	RowRejected     = "rejected"
	RowSkipped      = "skipped"
)

// Batch is one import session.
type Batch struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RowInput is one incoming result row, already field-split by the caller.
type RowInput struct {
	Name         string `json:"name"`
	Club         string `json:"club"`
	Gender       string `json:"gender"`
	BirthYear    *int   `json:"birth_year,omitempty"`
	Discipline   string `json:"discipline"`
	Year         int    `json:"year"`
	Championship string `json:"championship"`
	Placement    int    `json:"placement"`
	Performance  string `json:"performance"`
}

// Row is a persisted import row with its resolution proposal. Candidates
// are stored alongside the row so review does not depend on the roster
// staying unchanged.
type Row struct {
	ID                string              `json:"id"`
	BatchID           string              `json:"batch_id"`
	RowNumber         int                 `json:"row_number"`
	RawName           string              `json:"raw_name"`
	Club              string              `json:"club"`
	Gender            string              `json:"gender"`
	BirthYear         *int                `json:"birth_year,omitempty"`
	Discipline        string              `json:"discipline"`
	Year              int                 `json:"year"`
	Championship      string              `json:"championship"`
	Placement         int                 `json:"placement"`
	Performance       string              `json:"performance"`
	State             string              `json:"state"`
	Candidates        []athlete.Candidate `json:"candidates"`
	ProposedAthleteID string              `json:"proposed_athlete_id,omitempty"`
	AthleteID         string              `json:"athlete_id,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// decidable reports whether a reviewer may still decide this row.
func decidable(state string) bool {
	switch state {
	case RowAutoSelected, RowPresented, RowNoCandidates:
		return true
	}
	return false
}

// CommitSummary reports what a batch commit produced.
type CommitSummary struct {
	BatchID         string `json:"batch_id"`
	ResultsCreated  int    `json:"results_created"`
	AthletesCreated int    `json:"athletes_created"`
	RowsSkipped     int    `json:"rows_skipped"`
}
