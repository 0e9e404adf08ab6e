// Package athlete holds the canonical athlete records and the identity
// resolution engine: name normalization, candidate matching, resolution
// policies, and the merge transaction.
package athlete

import (
	"strings"
	"time"
)

// Genders recognized by the federation's records. The empty string means
// unknown; unknown is never treated as disagreement during matching.
const (
	GenderMale   = "M"
	GenderFemale = "F"
)

// Athlete represents a canonical athlete identity.
type Athlete struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Gender    string    `json:"gender,omitempty"`
	BirthYear *int      `json:"birth_year,omitempty"`
	Club      string    `json:"club,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName returns the denormalized full-name form used by matching and
// display. Round-trips with SplitFullName.
func (a *Athlete) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(a.FirstName) + " " + strings.TrimSpace(a.LastName))
}

// SplitFullName splits a denormalized full name into first/last parts on
// the last space, so compound first names survive. A single token becomes
// a bare last name.
func SplitFullName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	idx := strings.LastIndex(full, " ")
	if idx < 0 {
		return "", full
	}
	return strings.TrimSpace(full[:idx]), strings.TrimSpace(full[idx+1:])
}

// ValidGender reports whether s is a recognized gender value (including
// the empty string for unknown).
func ValidGender(s string) bool {
	switch s {
	case "", GenderMale, GenderFemale:
		return true
	}
	return false
}

// Identity is the slim projection of an Athlete used to build roster
// indices. Constructed once at the storage boundary.
type Identity struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	Gender    string `json:"gender,omitempty"`
	BirthYear *int   `json:"birth_year,omitempty"`
}
