package athlete

// Outcome classifies what a resolution policy decided for a query.
type Outcome string

const (
	// OutcomeMatched means exactly one candidate existed and was accepted.
	OutcomeMatched Outcome = "matched"
	// OutcomeAmbiguous means multiple candidates existed; the query is
	// retained for human review, never attached to a guess.
	OutcomeAmbiguous Outcome = "ambiguous"
	// OutcomeNoMatch means no candidate existed.
	OutcomeNoMatch Outcome = "no_match"
)

// AutoResolution is the automatic policy's verdict for one query.
type AutoResolution struct {
	Outcome    Outcome
	Athlete    *Identity
	Candidates []Candidate
}

// ResolveAuto applies the unattended policy: a single candidate is accepted
// unconditionally, because uniqueness in the roster, not score, is the
// trust signal at this stage. Zero or multiple candidates leave the query
// unmatched; ambiguity is never resolved by picking the first or the
// highest-scored candidate.
func ResolveAuto(candidates []Candidate) AutoResolution {
	switch len(candidates) {
	case 0:
		return AutoResolution{Outcome: OutcomeNoMatch}
	case 1:
		id := candidates[0].Identity
		return AutoResolution{Outcome: OutcomeMatched, Athlete: &id, Candidates: candidates}
	default:
		return AutoResolution{Outcome: OutcomeAmbiguous, Candidates: candidates}
	}
}

// ProposalState describes what the supervised policy proposes for a row
// before the human decides.
type ProposalState string

const (
	// ProposalAutoSelected pre-selects a default the human may override.
	ProposalAutoSelected ProposalState = "auto_selected"
	// ProposalPresented lists candidates with no pre-selection.
	ProposalPresented ProposalState = "presented"
	// ProposalNoCandidates defaults to creating a new athlete.
	ProposalNoCandidates ProposalState = "no_candidates"
)

// Proposal is the supervised policy's best guess for one query. Selected
// is nil unless State is ProposalAutoSelected. "Create new athlete" is
// always an explicit alternative regardless of state.
type Proposal struct {
	State      ProposalState `json:"state"`
	Selected   *Candidate    `json:"selected,omitempty"`
	Candidates []Candidate   `json:"candidates"`
}

// ResolveSupervised applies the human-confirmed policy. A lone candidate
// is pre-selected but not locked. Multiple candidates go through the
// tie-break ladder: normalized-name identity plus exact birth year, then
// normalized-name identity alone, then a unique birth-year agreement. If
// no rule selects a unique candidate, everything is presented for choice.
func ResolveSupervised(q Query, candidates []Candidate) Proposal {
	switch len(candidates) {
	case 0:
		return Proposal{State: ProposalNoCandidates}
	case 1:
		c := candidates[0]
		return Proposal{State: ProposalAutoSelected, Selected: &c, Candidates: candidates}
	}

	queryNorm := NormalizeName(q.Name)

	if c, ok := uniqueCandidate(candidates, func(c Candidate) bool {
		return NormalizeName(c.Identity.FullName) == queryNorm && c.BirthYearMatch
	}); ok {
		return Proposal{State: ProposalAutoSelected, Selected: c, Candidates: candidates}
	}

	if c, ok := uniqueCandidate(candidates, func(c Candidate) bool {
		return NormalizeName(c.Identity.FullName) == queryNorm
	}); ok {
		return Proposal{State: ProposalAutoSelected, Selected: c, Candidates: candidates}
	}

	if q.BirthYear != nil {
		if c, ok := uniqueCandidate(candidates, func(c Candidate) bool {
			return c.BirthYearMatch
		}); ok {
			return Proposal{State: ProposalAutoSelected, Selected: c, Candidates: candidates}
		}
	}

	return Proposal{State: ProposalPresented, Candidates: candidates}
}

// uniqueCandidate returns the sole candidate satisfying pred, if exactly
// one does.
func uniqueCandidate(candidates []Candidate, pred func(Candidate) bool) (*Candidate, bool) {
	var found *Candidate
	for i := range candidates {
		if pred(candidates[i]) {
			if found != nil {
				return nil, false
			}
			found = &candidates[i]
		}
	}
	return found, found != nil
}
