package athlete

import (
	"context"
	"fmt"
	"strings"
)

// DefaultRosterPageSize bounds each roster snapshot fetch.
const DefaultRosterPageSize = 500

// RosterSource is the paginated read interface the index loader pulls
// athlete identities from. A short or empty page signals exhaustion.
type RosterSource interface {
	FetchIdentityPage(ctx context.Context, offset, limit int) ([]Identity, error)
}

// RosterIndex holds the in-memory lookup structures a resolution session
// matches against. It is immutable once built; a session accepts staleness
// rather than re-deriving mid-run.
type RosterIndex struct {
	exact      map[string][]Identity
	normalized map[string][]Identity
	size       int
}

// Size returns the number of identities in the index.
func (ix *RosterIndex) Size() int { return ix.size }

// exactKey combines the lowercased full name with the gender classifier.
func exactKey(name, gender string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "|" + gender
}

// normalizedKey combines the normalized full name with the gender classifier.
func normalizedKey(name, gender string) string {
	return NormalizeName(name) + "|" + gender
}

// BuildIndex constructs the exact and normalized indices from a complete
// roster snapshot. Key collisions are preserved: each key maps to the set
// of identities sharing it.
func BuildIndex(identities []Identity) *RosterIndex {
	ix := &RosterIndex{
		exact:      make(map[string][]Identity, len(identities)),
		normalized: make(map[string][]Identity, len(identities)),
		size:       len(identities),
	}
	for _, id := range identities {
		ek := exactKey(id.FullName, id.Gender)
		nk := normalizedKey(id.FullName, id.Gender)
		ix.exact[ek] = append(ix.exact[ek], id)
		ix.normalized[nk] = append(ix.normalized[nk], id)
	}
	return ix
}

// LoadRoster fetches the full athlete roster page by page and builds the
// index. The index is only returned fully built; a partial snapshot is
// never exposed to queries.
func LoadRoster(ctx context.Context, src RosterSource, pageSize int) (*RosterIndex, error) {
	if pageSize <= 0 {
		pageSize = DefaultRosterPageSize
	}

	var identities []Identity
	offset := 0
	for {
		page, err := src.FetchIdentityPage(ctx, offset, pageSize)
		if err != nil {
			return nil, fmt.Errorf("fetching roster page at offset %d: %w", offset, err)
		}
		identities = append(identities, page...)
		if len(page) < pageSize {
			break
		}
		offset += len(page)
	}

	return BuildIndex(identities), nil
}
