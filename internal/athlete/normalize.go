package athlete

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents decomposes and removes combining diacritical marks, so
// names differing only in accents collapse to the same key.
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// letterFolds maps letters that carry no combining mark and therefore
// survive NFD stripping (Scandinavian stroked and ligature letters).
var letterFolds = strings.NewReplacer(
	"ø", "o",
	"æ", "ae",
	"œ", "oe",
	"ð", "d",
	"đ", "d",
	"þ", "th",
	"ł", "l",
)

var foldCase = cases.Fold()

// NormalizeName converts a raw name into its canonical matching key:
// case-folded, diacritics stripped, periods and hyphens turned into
// spaces, and whitespace collapsed. Pure and idempotent.
func NormalizeName(raw string) string {
	s := foldCase.String(raw)
	s, _, _ = transform.String(stripAccents, s)
	s = letterFolds.Replace(s)
	s = strings.Map(func(r rune) rune {
		if r == '.' || r == '-' {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// DefaultSentinels are cell texts that mean "no athlete on this row":
// championships not held, disqualifications, withdrawals, placeholders.
// Compared after normalization.
var DefaultSentinels = []string{
	"intet mesterskap",
	"ikke arrangert",
	"ingen deltakere",
	"innstilt",
	"disk",
	"diskvalifisert",
	"trukket",
	"dns",
	"dnf",
}

// CellSplitter splits scraped "Name, Club" cells and filters out sentinel
// rows that do not name an athlete.
type CellSplitter struct {
	sentinels map[string]struct{}
}

// NewCellSplitter creates a splitter with the given sentinel phrases.
// Pass nil to use DefaultSentinels.
func NewCellSplitter(sentinels []string) *CellSplitter {
	if sentinels == nil {
		sentinels = DefaultSentinels
	}
	set := make(map[string]struct{}, len(sentinels))
	for _, s := range sentinels {
		set[NormalizeName(s)] = struct{}{}
	}
	return &CellSplitter{sentinels: set}
}

// Split separates a cell into athlete name and club affiliation. The split
// happens on the last comma so commas inside a club name stay intact. A
// sentinel-matched or empty cell returns ok=false: not an athlete row,
// not an error.
func (cs *CellSplitter) Split(cell string) (name, club string, ok bool) {
	name = strings.TrimSpace(cell)
	if idx := strings.LastIndex(cell, ","); idx >= 0 {
		name = strings.TrimSpace(cell[:idx])
		club = strings.TrimSpace(cell[idx+1:])
	}

	if name == "" || isPlaceholder(name) {
		return "", "", false
	}
	if _, hit := cs.sentinels[NormalizeName(name)]; hit {
		return "", "", false
	}
	return name, club, true
}

// isPlaceholder reports whether s consists only of dash-like runes.
func isPlaceholder(s string) bool {
	for _, r := range s {
		switch r {
		case '-', '–', '—', '_':
		default:
			return false
		}
	}
	return true
}
