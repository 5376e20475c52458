package extract

import (
	"regexp"
	"strings"
	"time"
)

// datedLayouts are the loose date shapes LMS pages actually render. Order
// matters: more specific layouts (with year and time) come first.
var datedLayouts = []string{
	time.RFC3339,
	"January 2, 2006 3:04 PM",
	"January 2, 2006 15:04",
	"January 2, 2006",
	"January 2 2006 3:04 PM",
	"January 2 2006 15:04",
	"January 2 2006",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
	"Jan 2 2006 3:04 PM",
	"Jan 2 2006 15:04",
	"Jan 2 2006",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04",
	"1/2/2006",
	"1/2/06 3:04 PM",
	"1/2/06 15:04",
	"1/2/06",
	"2006-01-02 15:04",
	"2006-01-02",
}

// yearlessLayouts match month-day expressions with no year. The scan year
// is appended before parsing.
var yearlessLayouts = []string{
	"January 2 3:04 PM 2006",
	"January 2 15:04 2006",
	"January 2 2006",
	"Jan 2 3:04 PM 2006",
	"Jan 2 15:04 2006",
	"Jan 2 2006",
}

var yearlessRe = regexp.MustCompile(`(?i)^[A-Za-z]{3,9}\s+\d{1,2}(\s+\d{1,2}:\d{2}\s*(AM|PM)?)?$`)

// atNoiseRe strips the "at" connective LMS due strings use ("Sep 12 at 11:59 PM").
var atNoiseRe = regexp.MustCompile(`(?i)\bat\b`)

// ParseDate parses a loose date expression into an absolute timestamp.
// Month-day expressions without a year resolve against the current year.
// Returns the zero time when nothing parses.
func ParseDate(s string) time.Time {
	return parseDateAt(s, time.Now())
}

func parseDateAt(s string, now time.Time) time.Time {
	raw := NormalizeText(atNoiseRe.ReplaceAllString(s, " "))
	if raw == "" {
		return time.Time{}
	}

	for _, layout := range datedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}

	if yearlessRe.MatchString(raw) {
		withYear := raw + " " + now.Format("2006")
		for _, layout := range yearlessLayouts {
			if t, err := time.Parse(layout, withYear); err == nil {
				return t.UTC()
			}
		}
	}

	return time.Time{}
}

// dueDateRes locate "due"/"deadline"-prefixed date expressions. Three
// families: month-name with year, month-name without year, and slash dates.
var dueDateRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:due|deadline)\s*[:\-]?\s*([A-Za-z]{3,9}\s+\d{1,2},?\s+\d{2,4}(?:\s+at\s+\d{1,2}:\d{2}\s*(?:AM|PM)?)?)`),
	regexp.MustCompile(`(?i)(?:due|deadline)\s*[:\-]?\s*([A-Za-z]{3,9}\s+\d{1,2}(?:\s+at\s+\d{1,2}:\d{2}\s*(?:AM|PM)?)?)`),
	regexp.MustCompile(`(?i)(?:due|deadline)\s*[:\-]?\s*(\d{1,2}/\d{1,2}/\d{2,4}(?:\s+\d{1,2}:\d{2}\s*(?:AM|PM)?)?)`),
}

// FindDueDate scans free text for a due-date marker and parses it. Returns
// the zero time when no marker parses.
func FindDueDate(text string) time.Time {
	return findDueDateAt(text, time.Now())
}

func findDueDateAt(text string, now time.Time) time.Time {
	compact := NormalizeText(text)
	for _, re := range dueDateRes {
		m := re.FindStringSubmatch(compact)
		if m == nil {
			continue
		}
		if t := parseDateAt(m[1], now); !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

// hasDueMarker reports whether text contains a bare "due" word.
var dueMarkerRe = regexp.MustCompile(`(?i)\bdue\b`)

func hasDueMarker(text string) bool {
	return dueMarkerRe.MatchString(text)
}

// pointsRe matches point/score cues ("10 points", "2.5 pts", "score").
var pointsRe = regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*(points?|pts)\b|\bscore\b`)

func hasPointsMarker(text string) bool {
	return pointsRe.MatchString(text)
}

// strings helpers shared by strategies.
func containsAny(text string, subs ...string) bool {
	t := strings.ToLower(text)
	for _, s := range subs {
		if strings.Contains(t, s) {
			return true
		}
	}
	return false
}
