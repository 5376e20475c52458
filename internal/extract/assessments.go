package extract

import (
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	assessmentHeadingRe = regexp.MustCompile(`(?i)\btests?\b|\bquizzes?\b|\bassessments?\b`)
	assessmentURLRe     = regexp.MustCompile(`(?i)/(assessments|tests?|quizzes)`)
	assessmentLinkRe    = regexp.MustCompile(`(?i)\b(quiz|test|exam|assessment)\b`)
	actionVerbRe        = regexp.MustCompile(`(?i)\b(attempt|details?|start|launch|view)\b`)
)

// extractAssessmentList is the quiz/test listing strategy. It locates
// containers labeled as test/quiz/assessment sections — or, when the page
// address itself points at such a section, the whole body — and keeps the
// links inside them that read like assessments or action verbs.
func extractAssessmentList(page *Page, now time.Time) []Candidate {
	var containers []*goquery.Selection

	page.Doc.Find("section, article, div, main").Each(func(_ int, node *goquery.Selection) {
		label := NormalizeText(
			node.Find("h1, h2, h3, h4").First().Text() + " " +
				attrOr(node, "aria-label", "") + " " +
				attrOr(node, "data-testid", ""))
		if assessmentHeadingRe.MatchString(label) {
			containers = append(containers, node)
		}
	})

	if len(containers) == 0 && assessmentURLRe.MatchString(page.URL) {
		containers = append(containers, page.Doc.Find("body"))
	}

	var out []Candidate
	seen := make(map[string]struct{})
	course := inferCourseName(page, "")

	for _, container := range containers {
		container.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
			href := attrOr(link, "href", "")
			if href == "" {
				return
			}
			linkText := labelText(link)

			row := link.Closest("li, tr, article, section, div")
			if row.Length() == 0 {
				row = link
			}
			rowText := flatText(row)

			isAssessment := assessmentLinkRe.MatchString(linkText+" "+rowText) ||
				actionVerbRe.MatchString(linkText)
			if !isAssessment {
				return
			}

			title := bestTitle(row, link)
			if title == "" {
				return
			}

			due := FindDueDate(rowText)
			id := makeID(href, title, due)
			if _, ok := seen[id]; ok {
				return
			}
			seen[id] = struct{}{}

			out = append(out, Candidate{
				ID:        id,
				Title:     title,
				DueAt:     due,
				URL:       href,
				Course:    course,
				TypeGuess: GuessType(title + " " + rowText),
				ScannedAt: now,
				Details: &Details{
					Extractor: "assessment-list",
					LinkText:  linkText,
				},
			})
		})
	}

	return out
}
