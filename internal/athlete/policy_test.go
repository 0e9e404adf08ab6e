package athlete

import "testing"

func TestResolveAutoSingleCandidateAccepted(t *testing.T) {
	ix := testIndex(Identity{ID: "a1", FullName: "Jon Olsen", Gender: GenderMale})

	cands := FindCandidates(Query{Name: "Jon Olsen", Gender: GenderMale}, ix, 0)
	res := ResolveAuto(cands)
	if res.Outcome != OutcomeMatched {
		t.Fatalf("Outcome = %s, want matched", res.Outcome)
	}
	if res.Athlete == nil || res.Athlete.ID != "a1" {
		t.Errorf("Athlete = %+v, want a1", res.Athlete)
	}
}

func TestResolveAutoLowScoreSingleStillAccepted(t *testing.T) {
	// Uniqueness, not score, is the trust signal: a normalized-only hit
	// is accepted when it is the only one.
	ix := testIndex(Identity{ID: "a1", FullName: "Ørjan Moe", Gender: GenderMale})

	cands := FindCandidates(Query{Name: "Orjan Moe", Gender: GenderMale}, ix, 0)
	if res := ResolveAuto(cands); res.Outcome != OutcomeMatched {
		t.Errorf("Outcome = %s, want matched", res.Outcome)
	}
}

func TestResolveAutoAmbiguousNeverPicks(t *testing.T) {
	// Two distinct athletes share the normalized key: neither may be
	// auto-accepted, even though one outscores the other via birth year.
	ix := testIndex(
		Identity{ID: "a1", FullName: "Jon Olsen", Gender: GenderMale, BirthYear: intPtr(1990)},
		Identity{ID: "a2", FullName: "Jon Olsen", Gender: GenderMale, BirthYear: intPtr(1985)},
	)

	cands := FindCandidates(Query{Name: "Jon Olsen", Gender: GenderMale, BirthYear: intPtr(1990)}, ix, 0)
	res := ResolveAuto(cands)
	if res.Outcome != OutcomeAmbiguous {
		t.Fatalf("Outcome = %s, want ambiguous", res.Outcome)
	}
	if res.Athlete != nil {
		t.Error("ambiguous resolution must not select an athlete")
	}
	if len(res.Candidates) != 2 {
		t.Errorf("Candidates = %d, want 2 retained for review", len(res.Candidates))
	}
}

func TestResolveAutoNoMatch(t *testing.T) {
	res := ResolveAuto(nil)
	if res.Outcome != OutcomeNoMatch {
		t.Errorf("Outcome = %s, want no_match", res.Outcome)
	}
}

func TestResolveSupervisedSingleCandidatePreselected(t *testing.T) {
	ix := testIndex(Identity{ID: "a1", FullName: "Jon Olsen", Gender: GenderMale})
	q := Query{Name: "Jon Olsen", Gender: GenderMale}

	p := ResolveSupervised(q, FindCandidates(q, ix, 0))
	if p.State != ProposalAutoSelected {
		t.Fatalf("State = %s, want auto_selected", p.State)
	}
	if p.Selected == nil || p.Selected.Identity.ID != "a1" {
		t.Errorf("Selected = %+v, want a1", p.Selected)
	}
}

func TestResolveSupervisedBirthYearTiebreak(t *testing.T) {
	// The scenario from the roster of two Jon Olsens: interactive policy
	// resolves via birth year where the automatic policy reports ambiguity.
	ix := testIndex(
		Identity{ID: "1", FullName: "Jon Olsen", Gender: GenderMale, BirthYear: intPtr(1990)},
		Identity{ID: "2", FullName: "Jon Olsen", Gender: GenderMale, BirthYear: intPtr(1985)},
	)
	q := Query{Name: "Jon Olsen", Gender: GenderMale, BirthYear: intPtr(1990)}
	cands := FindCandidates(q, ix, 0)

	p := ResolveSupervised(q, cands)
	if p.State != ProposalAutoSelected {
		t.Fatalf("State = %s, want auto_selected", p.State)
	}
	if p.Selected.Identity.ID != "1" {
		t.Errorf("Selected = %s, want 1", p.Selected.Identity.ID)
	}

	if res := ResolveAuto(cands); res.Outcome != OutcomeAmbiguous {
		t.Errorf("automatic policy Outcome = %s, want ambiguous", res.Outcome)
	}
}

func TestResolveSupervisedNormalizedNameTiebreak(t *testing.T) {
	// "Jon Olsen" vs "Jon-Olsen" share a normalized key only for the
	// former; an exact normalized-name identity wins over a mere hit.
	ix := testIndex(
		Identity{ID: "1", FullName: "Jon Olsen", Gender: GenderMale},
		Identity{ID: "2", FullName: "Jon. Olsen", Gender: GenderMale},
	)
	q := Query{Name: "Jon Olsen", Gender: GenderMale}
	cands := FindCandidates(q, ix, 0)
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2", len(cands))
	}

	// Both normalize identically, so rule 2 cannot pick a unique one.
	p := ResolveSupervised(q, cands)
	if p.State != ProposalPresented {
		t.Errorf("State = %s, want presented", p.State)
	}
	if p.Selected != nil {
		t.Error("presented proposal must carry no pre-selection")
	}
}

func TestResolveSupervisedUniqueBirthYearAmongRanked(t *testing.T) {
	ix := testIndex(
		Identity{ID: "1", FullName: "Jon Olsen", Gender: GenderMale, BirthYear: intPtr(1990)},
		Identity{ID: "2", FullName: "Jon. Olsen", Gender: GenderMale, BirthYear: intPtr(1985)},
		Identity{ID: "3", FullName: "Jon-Olsen", Gender: GenderMale},
	)
	q := Query{Name: "jon olsen", Gender: GenderMale, BirthYear: intPtr(1985)}
	cands := FindCandidates(q, ix, 0)
	if len(cands) != 3 {
		t.Fatalf("got %d candidates, want 3", len(cands))
	}

	// All three share the normalized key; the lone candidate with the
	// queried birth year is selected.
	p := ResolveSupervised(q, cands)
	if p.State != ProposalAutoSelected {
		t.Fatalf("State = %s, want auto_selected", p.State)
	}
	if p.Selected.Identity.ID != "2" {
		t.Errorf("Selected = %s, want 2", p.Selected.Identity.ID)
	}
}

func TestResolveSupervisedNoCandidates(t *testing.T) {
	p := ResolveSupervised(Query{Name: "Ny Utøver"}, nil)
	if p.State != ProposalNoCandidates {
		t.Errorf("State = %s, want no_candidates (defaults to create-new, never an error)", p.State)
	}
}
