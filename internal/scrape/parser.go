package scrape

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/oivindhaug/resultatbank/internal/athlete"
)

// ParseMedalPage extracts winner cells from one year's medal page. The
// page carries one table per gender section, headed by "Menn" or
// "Kvinner"; each data row is discipline, gold, silver, bronze. Sentinel
// cells ("Intet mesterskap" and friends) are returned as-is and filtered
// by the caller's splitter.
func ParseMedalPage(r io.Reader) ([]MedalCell, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing medal page: %w", err)
	}

	var cells []MedalCell
	gender := ""

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "h2", "h3":
				gender = sectionGender(nodeText(n))
			case "tr":
				cells = append(cells, rowCells(n, gender)...)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return cells, nil
}

// rowCells lifts the three winner cells from one table row. Rows with
// fewer than four data cells (headers, spacers) yield nothing.
func rowCells(tr *html.Node, gender string) []MedalCell {
	var tds []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "td" {
			tds = append(tds, strings.TrimSpace(nodeText(c)))
		}
	}
	if len(tds) < 4 {
		return nil
	}

	discipline := tds[0]
	if discipline == "" {
		return nil
	}

	cells := make([]MedalCell, 0, 3)
	for i, placement := range []int{1, 2, 3} {
		cells = append(cells, MedalCell{
			Discipline: discipline,
			Gender:     gender,
			Placement:  placement,
			Text:       tds[i+1],
		})
	}
	return cells
}

// sectionGender maps a section heading to a gender classifier. Unknown
// headings reset to the empty classifier.
func sectionGender(heading string) string {
	h := strings.ToLower(strings.TrimSpace(heading))
	switch {
	case strings.Contains(h, "kvinner"):
		return athlete.GenderFemale
	case strings.Contains(h, "menn"):
		return athlete.GenderMale
	default:
		return ""
	}
}

// nodeText concatenates all text beneath a node.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
