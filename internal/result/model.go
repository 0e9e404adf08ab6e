// Package result stores championship results, each attributed to exactly
// one athlete.
package result

import "time"

// Championship types published by the federation.
const (
	ChampionshipOutdoor = "NM"
	ChampionshipIndoor  = "NM innendørs"
	ChampionshipJunior  = "UM"
)

// Medal placements.
const (
	PlacementGold   = 1
	PlacementSilver = 2
	PlacementBronze = 3
)

// Result is a single performance record. AthleteID is the sole field a
// merge mutates; results are never implicitly deleted.
type Result struct {
	ID           string    `json:"id"`
	AthleteID    string    `json:"athlete_id"`
	DisciplineID string    `json:"discipline_id"`
	Year         int       `json:"year"`
	Championship string    `json:"championship"`
	Gender       string    `json:"gender,omitempty"`
	Placement    int       `json:"placement"`
	Performance  string    `json:"performance,omitempty"`
	Source       string    `json:"source,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LeaderboardParams configures filtered, paginated leaderboard queries.
type LeaderboardParams struct {
	DisciplineID string
	Gender       string
	Championship string
	YearFrom     int
	YearTo       int
	Page         int
	PageSize     int
}

// Validate normalizes and validates leaderboard parameters.
func (p *LeaderboardParams) Validate() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 200 {
		p.PageSize = 50
	}
	if p.YearTo != 0 && p.YearTo < p.YearFrom {
		p.YearTo = p.YearFrom
	}
}

// LeaderboardEntry is a result joined with its athlete's display fields.
type LeaderboardEntry struct {
	Result
	AthleteName string `json:"athlete_name"`
	AthleteClub string `json:"athlete_club,omitempty"`
}

// Tally counts an athlete's medals by placement.
type Tally struct {
	AthleteID string `json:"athlete_id"`
	Gold      int    `json:"gold"`
	Silver    int    `json:"silver"`
	Bronze    int    `json:"bronze"`
}

// MedalistEntry is one row of the top-medalists chart data.
type MedalistEntry struct {
	Tally
	AthleteName string `json:"athlete_name"`
	Total       int    `json:"total"`
}
