package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// contentBlockSample bounds the tile scan on content pages.
	contentBlockSample = 2000

	// Tile text bounds: too short is chrome, too long is a whole page.
	tileMinLen = 20
	tileMaxLen = 5000
)

var (
	contentHeadingRe   = regexp.MustCompile(`(?i)course content|content|module|learning module|week`)
	contentOutlineRe   = regexp.MustCompile(`(?i)/ultra/courses/.*/outline`)
	assessmentMarkerRe = regexp.MustCompile(`(?i)\b(assignment|discussion|quiz|test|exam|project|assessment|submit|attempt)\b`)
)

// extractContentTiles is the course-content strategy: on module/outline
// pages it scans block-level tiles for primary links accompanied by a due,
// points or assessment marker.
func extractContentTiles(page *Page, now time.Time) []Candidate {
	var headingParts []string
	page.Doc.Find("h1, h2, h3").Each(func(_ int, h *goquery.Selection) {
		headingParts = append(headingParts, h.Text())
	})
	headingText := NormalizeText(strings.Join(headingParts, " "))

	if !contentHeadingRe.MatchString(headingText) && !contentOutlineRe.MatchString(page.URL) {
		return nil
	}

	var items []Candidate
	seen := make(map[string]struct{})
	course := inferCourseName(page, "")

	page.Doc.Find("li, article, section, tr, div").
		EachWithBreak(func(i int, block *goquery.Selection) bool {
			if i >= contentBlockSample {
				return false
			}

			text := flatText(block)
			if len(text) < tileMinLen || len(text) > tileMaxLen {
				return true
			}

			primary := primaryLink(block)
			if primary == nil {
				return true
			}
			href := attrOr(primary, "href", "")
			if href == "" {
				return true
			}
			if isNavigationLine(NormalizeText(primary.Text())) {
				return true
			}

			ind := Indicators{
				Due:        hasDueMarker(text),
				Points:     hasPointsMarker(text),
				Assessment: assessmentMarkerRe.MatchString(text),
			}
			if !ind.Due && !ind.Points && !ind.Assessment {
				return true
			}

			title := bestTitle(block, primary)
			if title == "" {
				return true
			}

			due := FindDueDate(text)
			id := makeID(href, title, due)
			if _, ok := seen[id]; ok {
				return true
			}
			seen[id] = struct{}{}

			items = append(items, Candidate{
				ID:        id,
				Title:     title,
				DueAt:     due,
				URL:       href,
				Course:    course,
				TypeGuess: GuessType(title + " " + text),
				ScannedAt: now,
				Details: &Details{
					Extractor:  "course-content",
					Indicators: ind,
				},
			})
			return true
		})

	return items
}
