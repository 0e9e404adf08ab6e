package athlete

import "sort"

// Signal weights. Exact hits outrank normalized hits; both are additive
// per signal, so an identity found in both indices scores the sum. A
// birth-year agreement adds a bonus; absence on either side is unknown,
// not disagreement, and mismatches carry no penalty.
const (
	scoreExactHit      = 100
	scoreNormalizedHit = 60
	scoreBirthYear     = 25
)

// DefaultCandidateLimit bounds candidate lists for interactive callers.
const DefaultCandidateLimit = 8

// Query is a name lookup against a roster index. Gender and BirthYear are
// optional; empty/nil means unknown.
type Query struct {
	Name      string
	Gender    string
	BirthYear *int
}

// Candidate pairs a roster identity with the score and signals that
// proposed it. Transient: constructed per query, never persisted.
type Candidate struct {
	Identity       Identity `json:"identity"`
	Score          int      `json:"score"`
	ExactHit       bool     `json:"exact_hit"`
	NormalizedHit  bool     `json:"normalized_hit"`
	BirthYearMatch bool     `json:"birth_year_match"`
}

// FindCandidates returns the ranked candidates for a query. limit bounds
// the result size; limit <= 0 means unbounded (the batch caller only needs
// to distinguish one hit from many). Read-only and side-effect-free: a
// query matching nothing returns an empty list, never an error.
func FindCandidates(q Query, ix *RosterIndex, limit int) []Candidate {
	byID := make(map[string]*Candidate)

	for _, id := range ix.exact[exactKey(q.Name, q.Gender)] {
		c := ensureCandidate(byID, id)
		c.ExactHit = true
		c.Score += scoreExactHit
	}
	for _, id := range ix.normalized[normalizedKey(q.Name, q.Gender)] {
		c := ensureCandidate(byID, id)
		c.NormalizedHit = true
		c.Score += scoreNormalizedHit
	}

	candidates := make([]Candidate, 0, len(byID))
	for _, c := range byID {
		if q.BirthYear != nil && c.Identity.BirthYear != nil && *q.BirthYear == *c.Identity.BirthYear {
			c.BirthYearMatch = true
			c.Score += scoreBirthYear
		}
		candidates = append(candidates, *c)
	}

	// Equal scores break on athlete ID so resolution is reproducible
	// across runs.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Identity.ID < candidates[j].Identity.ID
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func ensureCandidate(byID map[string]*Candidate, id Identity) *Candidate {
	if c, ok := byID[id.ID]; ok {
		return c
	}
	c := &Candidate{Identity: id}
	byID[id.ID] = c
	return c
}
