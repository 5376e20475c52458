package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var assessmentCueRe = regexp.MustCompile(`(?i)\b(submit|attempt|assessment|assignment|discussion|quiz|test|exam|project|homework)\b`)

// looksLikeTaskLabel reports whether a link label reads like a task.
func looksLikeTaskLabel(label string) bool {
	return containsAny(label,
		"assignment", "quiz", "exam", "discussion", "project", "homework")
}

// extractListing is the generic listing strategy: it walks every link on
// the page and keeps those whose label and surrounding container carry
// task cues. Gated by the page signal classifier.
func extractListing(page *Page, signals Signals, now time.Time) []Candidate {
	if !signals.Allowed {
		return nil
	}

	var results []Candidate
	seen := make(map[string]struct{})
	course := inferCourseName(page, "")

	page.Doc.Find("a").Each(func(_ int, link *goquery.Selection) {
		label := NormalizeText(link.Text())
		href := attrOr(link, "href", "")
		if label == "" || href == "" {
			return
		}
		if !looksLikeTaskLabel(label) {
			return
		}

		container := link.Closest("li, tr, div, article, section")
		if container.Length() == 0 {
			container = link.Parent()
		}
		surrounding := container.Text()

		hasDue := hasDueMarker(surrounding)
		hasPoints := hasPointsMarker(surrounding)
		hasCue := assessmentCueRe.MatchString(label + " " + surrounding)
		contentTile := signals.IsContentPage && hasDue
		noContext := !signals.IsAssessmentPage && !signals.IsContentPage

		eligibleOnAssessment := signals.IsAssessmentPage && (hasDue || hasPoints || hasCue)
		eligibleOnContent := contentTile &&
			(hasCue || hasPoints || strings.Contains(strings.ToLower(label), "discussion"))
		eligibleOnUnknown := noContext // label already looks like a task

		if !eligibleOnAssessment && !eligibleOnContent && !eligibleOnUnknown {
			return
		}

		due := FindDueDate(surrounding)
		id := makeID(href, label, due)
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}

		results = append(results, Candidate{
			ID:        id,
			Title:     label,
			DueAt:     due,
			URL:       href,
			Course:    course,
			TypeGuess: GuessType(label + " " + surrounding),
			ScannedAt: now,
		})
	})

	return results
}
