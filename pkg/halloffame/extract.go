package halloffame

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// RawRow is one leaderboard row as pulled from the page, before parsing.
type RawRow struct {
	Ordinal  string
	Name     string
	DateText string
}

// StructuralParseError means the page no longer carries the expected table
// shape. It aborts the invocation and is surfaced as its own type so
// operators can tell upstream format drift apart from other failures.
type StructuralParseError struct {
	Reason string
}

func (e *StructuralParseError) Error() string {
	return "page structure changed: " + e.Reason
}

var brTagRe = regexp.MustCompile(`(?i)<br\s*/?>`)

// Extract pulls raw rows out of the hall of fame page. The primary path is
// the tbody.row-hover table the page has carried for years; when that is
// missing it falls back to scanning every <tr> on the page. Rows with fewer
// than three cells (headers, filler) are not rows at all and are ignored.
func Extract(html string) ([]RawRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &StructuralParseError{Reason: "unparseable HTML: " + err.Error()}
	}

	rows := doc.Find("tbody.row-hover tr")
	if rows.Length() == 0 {
		rows = doc.Find("tr")
	}

	var out []RawRow
	rows.Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		out = append(out, RawRow{
			Ordinal:  strings.TrimSpace(cells.Eq(0).Text()),
			Name:     cellText(cells.Eq(1)),
			DateText: strings.TrimSpace(cells.Eq(2).Text()),
		})
	})

	if len(out) == 0 {
		return nil, &StructuralParseError{Reason: "no table rows with three cells"}
	}
	return out, nil
}

// TableHTML returns the marked-up table body when present, or the whole page
// otherwise, truncated to limit bytes. Used to keep LLM context small.
func TableHTML(html string, limit int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		if sel := doc.Find("tbody.row-hover"); sel.Length() > 0 {
			if h, herr := goquery.OuterHtml(sel.First()); herr == nil {
				html = h
			}
		}
	}
	if limit > 0 && len(html) > limit {
		return html[:limit]
	}
	return html
}

// cellText flattens a cell to text, turning <br> line breaks into single
// spaces the way the source renders multi-line names.
func cellText(s *goquery.Selection) string {
	h, err := s.Html()
	if err != nil {
		return strings.Join(strings.Fields(s.Text()), " ")
	}
	h = brTagRe.ReplaceAllString(h, " ")
	frag, err := goquery.NewDocumentFromReader(strings.NewReader(h))
	if err != nil {
		return strings.Join(strings.Fields(s.Text()), " ")
	}
	return strings.Join(strings.Fields(frag.Text()), " ")
}
