package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// signalHeadingSample bounds how many heading/label elements feed the
	// page-type vocabulary check.
	signalHeadingSample = 40

	// signalBlockSample bounds the due-tile scan. Pages can hold tens of
	// thousands of blocks; a few hundred is enough to detect a listing.
	signalBlockSample = 400
)

var (
	assessmentVocabRe = regexp.MustCompile(`\bassignments?\b|\bassessments?\b|\btests?\b|\bquizzes?\b`)
	contentVocabRe    = regexp.MustCompile(`\bcourse content\b|/outline\b|\bcontent\b`)
)

// Signals are the coarse page-type judgments that gate extraction
// strategies.
type Signals struct {
	// Allowed gates the generic listing extractor. True for assessment
	// pages, content pages showing due tiles, any page showing due tiles,
	// or pages with no contextual signal at all. The last case keeps
	// minimal fixtures (no URL, no headings, no title) extractable; it is
	// a deliberate permissive policy and a known false-positive source on
	// unrelated minimal pages.
	Allowed          bool
	IsAssessmentPage bool
	IsContentPage    bool
	HasDueTiles      bool
}

// ClassifyPage inspects the page's URL, heading/label text and title and
// produces the signals record used to gate extraction.
func ClassifyPage(page *Page) Signals {
	url := strings.ToLower(page.URL)

	var headingParts []string
	page.Doc.Find("h1, h2, h3, [aria-label], [data-testid]").
		EachWithBreak(func(i int, sel *goquery.Selection) bool {
			if i >= signalHeadingSample {
				return false
			}
			headingParts = append(headingParts,
				sel.Text(),
				attrOr(sel, "aria-label", ""),
				attrOr(sel, "data-testid", ""))
			return true
		})
	headingText := strings.ToLower(NormalizeText(strings.Join(headingParts, " ")))
	pageTitle := strings.ToLower(page.Title())

	composite := url + " " + headingText + " " + pageTitle
	isAssessment := assessmentVocabRe.MatchString(composite)
	isContent := contentVocabRe.MatchString(composite)

	hasDueTiles := scanForDueTiles(page.Doc)

	// No URL, no headings, no title: nothing to gate on, so allow. This is
	// the permissive fallback for contexts with no addressable location.
	noContext := url == "" && headingText == "" && pageTitle == ""

	return Signals{
		Allowed:          noContext || isAssessment || (isContent && hasDueTiles) || hasDueTiles,
		IsAssessmentPage: isAssessment,
		IsContentPage:    isContent,
		HasDueTiles:      hasDueTiles,
	}
}

// scanForDueTiles samples block elements and anchor containers for a due
// marker. The sample is bounded, not exhaustive.
func scanForDueTiles(doc *goquery.Document) bool {
	found := false
	doc.Find("li, article, section, tr, div").
		EachWithBreak(func(i int, sel *goquery.Selection) bool {
			if i >= signalBlockSample {
				return false
			}
			if hasDueMarker(NormalizeText(sel.Text())) {
				found = true
				return false
			}
			return true
		})
	if found {
		return true
	}

	doc.Find("a").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= signalBlockSample {
			return false
		}
		host := sel.Closest("li, article, section, tr, div")
		if host.Length() == 0 {
			host = sel.Parent()
		}
		if hasDueMarker(NormalizeText(host.Text())) {
			found = true
			return false
		}
		return true
	})
	return found
}
