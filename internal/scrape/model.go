// Package scrape fetches the federation's published per-year medal pages
// and reconciles them into the result store.
package scrape

import "time"

// MedalCell is one winner cell lifted from a medal table: the discipline
// row it sits in, the section gender, the placement its column encodes,
// and the raw cell text (typically "Name, Club" or a sentinel phrase).
type MedalCell struct {
	Discipline string
	Gender     string
	Placement  int
	Text       string
}

// Report summarizes the outcome of a scrape run.
type Report struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"` // "running", "completed", "failed"
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	YearsFetched  int        `json:"years_fetched"`
	FetchFailures int        `json:"fetch_failures"`
	Created       int        `json:"created"`
	Existing      int        `json:"existing"`
	Ambiguous     int        `json:"ambiguous"`
	NoMatch       int        `json:"no_match"`
	Skipped       int        `json:"skipped"`
	Error         string     `json:"error,omitempty"`
}
