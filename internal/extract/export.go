package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const exportTitleMax = 80

var (
	genericExportTitleRe = regexp.MustCompile(`(?i)^(discussions?|assignments?|quizzes?|tests?)$`)
	reqSegmentSplitRe    = regexp.MustCompile(`\s{2,}|•`)
	trailingWordRe       = regexp.MustCompile(`\s+\S*$`)
	leadingIntRe         = regexp.MustCompile(`^-?\d+`)
)

// extractExportTable is the tabular export-summary strategy: tables whose
// header row carries due/course/title columns (and optionally requirements
// and urgency) are parsed row by row. A generic title cell falls back to a
// title derived from the requirements column.
func extractExportTable(page *Page, now time.Time) []Candidate {
	var out []Candidate
	seen := make(map[string]struct{})

	page.Doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		var headers []string
		table.Find("thead th, tr th").Each(func(_ int, th *goquery.Selection) {
			headers = append(headers, strings.ToLower(NormalizeText(th.Text())))
		})
		if len(headers) == 0 {
			return
		}

		dueIdx := headerIndex(headers, "due")
		courseIdx := headerIndex(headers, "course")
		titleIdx := headerIndex(headers, "assignment title", "assignment")
		reqIdx := headerIndex(headers, "requirements")
		urgencyIdx := headerIndex(headers, "urgency")
		if dueIdx < 0 || courseIdx < 0 || titleIdx < 0 {
			return
		}

		table.Find("tbody tr, tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td, th")
			if cells.Length() == 0 {
				return
			}
			// Header rows are consumed above, not emitted as candidates.
			// A row-header th among data cells is still a data row.
			if row.Find("th").Length() == cells.Length() {
				return
			}

			titleCol := cellText(cells, titleIdx)
			reqCol := cellText(cells, reqIdx)

			title := titleCol
			sourceTitle := "title-column"
			if isGenericExportTitle(titleCol) {
				title = titleFromRequirements(reqCol)
				sourceTitle = "requirements-fallback"
			}
			if title == "" || title == "-" {
				return
			}

			dueText := cellText(cells, dueIdx)
			due := ParseDate(dueText)
			if due.IsZero() {
				due = FindDueDate("Due: " + dueText)
			}

			course := cellText(cells, courseIdx)
			urgency := parseUrgencyScore(cellText(cells, urgencyIdx))

			rowURL := page.URL
			if href, ok := cells.Eq(titleIdx).Find("a[href]").First().Attr("href"); ok && href != "" {
				rowURL = href
			}

			id := makeID(rowURL, title, due)
			if _, ok := seen[id]; ok {
				return
			}
			seen[id] = struct{}{}

			var reqs []string
			if reqCol != "" && reqCol != "-" {
				reqs = []string{reqCol}
			}

			out = append(out, Candidate{
				ID:          id,
				Title:       title,
				DueAt:       due,
				URL:         rowURL,
				Course:      course,
				TypeGuess:   GuessType(title + " " + reqCol),
				ScannedAt:   now,
				UrgencyHint: urgency,
				Details: &Details{
					Extractor:    "export-summary",
					SourceTitle:  sourceTitle,
					Requirements: reqs,
				},
			})
		})
	})

	return out
}

// headerIndex finds the first header matching any acceptable name, by
// equality or containment.
func headerIndex(headers []string, acceptable ...string) int {
	for i, h := range headers {
		for _, a := range acceptable {
			if h == a || strings.Contains(h, a) {
				return i
			}
		}
	}
	return -1
}

// cellText returns the normalized text of cell idx, or "" when idx is out
// of range (including the -1 of a missing optional column).
func cellText(cells *goquery.Selection, idx int) string {
	if idx < 0 || idx >= cells.Length() {
		return ""
	}
	return flatText(cells.Eq(idx))
}

// isGenericExportTitle reports whether a title cell is unusable: empty, a
// dash, under 4 characters, or a bare type word.
func isGenericExportTitle(title string) bool {
	t := NormalizeText(title)
	if t == "" || t == "-" || len(t) < 4 {
		return true
	}
	return genericExportTitleRe.MatchString(t)
}

// titleFromRequirements derives a title from a requirements cell: the
// first semicolon-delimited segment, split again on runs of spaces or
// bullets, truncated with an ellipsis past 80 characters.
func titleFromRequirements(reqCol string) string {
	req := NormalizeText(reqCol)
	if req == "" || req == "-" {
		return ""
	}

	first := NormalizeText(strings.SplitN(req, ";", 2)[0])
	if first == "" {
		return ""
	}

	title := first
	if parts := reqSegmentSplitRe.Split(first, -1); len(parts) > 0 {
		if p := NormalizeText(parts[0]); p != "" {
			title = p
		}
	}

	if runes := []rune(title); len(runes) > exportTitleMax {
		clipped := string(runes[:exportTitleMax])
		cut := strings.TrimSpace(trailingWordRe.ReplaceAllString(clipped, ""))
		if cut == "" {
			cut = clipped
		}
		title = cut + "…"
	}

	return NormalizeText(title)
}

// parseUrgencyScore reads an explicit urgency cell, clamped to [0,100].
// Trailing non-digits ("85%", "90 pts") are ignored. Nil when the cell
// does not start with a number.
func parseUrgencyScore(value string) *int {
	digits := leadingIntRe.FindString(NormalizeText(value))
	if digits == "" {
		return nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	clamped := max(0, min(100, n))
	return &clamped
}
