package extract

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ScanResult is the outcome of scanning one page.
type ScanResult struct {
	Candidates []Candidate `json:"candidates"`

	// DetailPage is set when the single-page detail strategy fired; its
	// fields are richer than the flattened candidate.
	DetailPage *DetailPage `json:"detail_page,omitempty"`

	// Source records where extraction happened: "top" or "iframe".
	Source string `json:"source"`
}

// ScanPage resolves the extraction context and runs every strategy against
// it. When the page is a single assignment detail page, that strategy wins
// and produces exactly one candidate; otherwise the listing, content-tile
// and assessment-list strategies run and their union is deduplicated.
// Title-less candidates never appear in the result.
func ScanPage(page *Page) ScanResult {
	return scanPageAt(page, time.Now().UTC())
}

func scanPageAt(page *Page, now time.Time) ScanResult {
	doc, source := ResolveContext(page)

	if detail := ExtractDetailPage(doc); detail != nil {
		c := Candidate{
			ID:        makeID(page.URL, detail.Title, detail.DueAt),
			Title:     detail.Title,
			DueAt:     detail.DueAt,
			URL:       page.URL,
			Course:    detail.Course,
			TypeGuess: GuessType(detail.Title),
			ScannedAt: now,
			Details: &Details{
				Extractor:    "assignment-detail",
				PromptText:   detail.PromptText,
				RubricText:   detail.RubricText,
				Requirements: detail.Requirements,
			},
		}
		return ScanResult{
			Candidates: dropUntitled([]Candidate{c}),
			DetailPage: detail,
			Source:     source,
		}
	}

	signals := ClassifyPage(doc)
	merged := mergeCandidates(
		extractListing(doc, signals, now),
		extractContentTiles(doc, now),
		extractAssessmentList(doc, now),
		extractExportTable(doc, now),
	)
	return ScanResult{Candidates: merged, Source: source}
}

// mergeCandidates unions strategy outputs, dropping title-less or URL-less
// entries and deduplicating by (URL, normalized title, due date).
func mergeCandidates(groups ...[]Candidate) []Candidate {
	var merged []Candidate
	seen := make(map[string]struct{})
	for _, group := range groups {
		for _, c := range group {
			if c.Title == "" || c.URL == "" {
				continue
			}
			key := c.URL + "|" + NormalizeText(c.Title) + "|" + dueKey(c.DueAt)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, c)
		}
	}
	return merged
}

// dropUntitled filters out candidates with empty titles. Such candidates
// are discarded immediately and never reach scoring or merge.
func dropUntitled(candidates []Candidate) []Candidate {
	var kept []Candidate
	for _, c := range candidates {
		if NormalizeText(c.Title) != "" {
			kept = append(kept, c)
		}
	}
	return kept
}

// CourseLinks enumerates links on the page that look like course entry
// points, unique and in document order.
func CourseLinks(page *Page) []string {
	var links []string
	seen := make(map[string]struct{})

	page.Doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := attrOr(a, "href", "")
		if href == "" {
			return
		}
		text := strings.ToLower(NormalizeText(a.Text()))
		lowerHref := strings.ToLower(href)

		looksLikeCourse := strings.Contains(text, "course") ||
			strings.Contains(lowerHref, "/ultra/courses/") ||
			strings.Contains(lowerHref, "course_id=") ||
			strings.Contains(lowerHref, "/webapps/blackboard/content/listcontent.jsp")
		if !looksLikeCourse {
			return
		}
		if _, ok := seen[href]; ok {
			return
		}
		seen[href] = struct{}{}
		links = append(links, href)
	})

	return links
}
