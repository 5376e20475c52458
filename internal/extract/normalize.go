package extract

import (
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeText canonicalizes whitespace: non-breaking spaces become plain
// spaces, runs collapse to one space, and the result is trimmed.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// navigationLineRes match whole lines of LMS chrome (menus, status rows)
// that should never count as task text.
var navigationLineRes = []*regexp.Regexp{
	regexp.MustCompile(`^skip to main content$`),
	regexp.MustCompile(`^content$`),
	regexp.MustCompile(`^calendar$`),
	regexp.MustCompile(`^gradebook$`),
	regexp.MustCompile(`^messages?$`),
	regexp.MustCompile(`^groups?$`),
	regexp.MustCompile(`^announcements?$`),
	regexp.MustCompile(`^help for current page$`),
	regexp.MustCompile(`^course status open$`),
	regexp.MustCompile(`^open$`),
}

// isNavigationLine reports whether a line is boilerplate navigation. Empty
// lines count as navigation so callers can filter with one predicate.
func isNavigationLine(line string) bool {
	t := strings.ToLower(NormalizeText(line))
	if t == "" {
		return true
	}
	for _, re := range navigationLineRes {
		if re.MatchString(t) {
			return true
		}
	}
	return false
}

// StripNavigation drops boilerplate navigation lines from multi-line text
// and normalizes what remains.
func StripNavigation(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = NormalizeText(line)
		if line == "" || isNavigationLine(line) {
			continue
		}
		kept = append(kept, line)
	}
	return NormalizeText(strings.Join(kept, "\n"))
}

// dedupeStrings normalizes, drops empties and removes duplicates while
// preserving first-seen order.
func dedupeStrings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, s := range items {
		s = NormalizeText(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// countMatches counts how many of the given words occur in text,
// case-insensitively. Each word counts at most once.
func countMatches(text string, words []string) int {
	t := strings.ToLower(text)
	n := 0
	for _, w := range words {
		if strings.Contains(t, strings.ToLower(w)) {
			n++
		}
	}
	return n
}
