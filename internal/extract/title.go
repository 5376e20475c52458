package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	genericTitleRe = regexp.MustCompile(`(?i)^(assignment|test|discussion|content|due|points|status|view|open)$`)
	primaryHrefRe  = regexp.MustCompile(`(?i)assignment|content|launch|attempt|detail|view|quiz|test|assessment`)
	typeVocabRe    = regexp.MustCompile(`(?i)\b(Assignment|Test|Discussion|Content|Due|Points|Status)\b`)
	namedLabelRe   = regexp.MustCompile(`(?i)(title|name)`)
	titleSplitRe   = regexp.MustCompile(`[-|•:]`)
	breadcrumbSel  = `nav a, [aria-label*=breadcrumb] a, .breadcrumb a`
)

// isGenericTitle reports whether text is a bare single-word type label
// ("Assignment", "View", ...) useless as a task title.
func isGenericTitle(text string) bool {
	return genericTitleRe.MatchString(NormalizeText(text))
}

// primaryLink picks the most meaningful link inside a block: first a link
// whose address carries assignment/content/launch markers, otherwise the
// link with the longest visible text.
func primaryLink(block *goquery.Selection) *goquery.Selection {
	links := block.Find("a[href]")
	if links.Length() == 0 {
		return nil
	}

	var keyword *goquery.Selection
	links.EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if primaryHrefRe.MatchString(attrOr(a, "href", "")) {
			keyword = a
			return false
		}
		return true
	})
	if keyword != nil {
		return keyword
	}

	var best *goquery.Selection
	bestLen := -1
	links.Each(func(_ int, a *goquery.Selection) {
		if n := len(labelText(a)); n > bestLen {
			best = a
			bestLen = n
		}
	})
	return best
}

// bestTitle resolves the most specific human-readable title for a block:
// the primary link's label, then the first non-generic heading, then a
// name/title-shaped labeled element, then the first visible line with type
// vocabulary stripped.
func bestTitle(block *goquery.Selection, fallback *goquery.Selection) string {
	primary := primaryLink(block)
	if primary == nil {
		primary = fallback
	}
	if primary != nil {
		if t := labelText(primary); t != "" && !isGenericTitle(t) {
			return t
		}
	}

	var heading string
	block.Find("h1, h2, h3").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		t := NormalizeText(h.Text())
		if t != "" && !isGenericTitle(t) {
			heading = t
			return false
		}
		return true
	})
	if heading != "" {
		return heading
	}

	var named string
	block.Find("[data-testid], [aria-label]").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		t := NormalizeText(attrOr(el, "aria-label", el.Text()))
		if t != "" && namedLabelRe.MatchString(t) && !isGenericTitle(t) {
			named = t
			return false
		}
		return true
	})
	if named != "" {
		return named
	}

	lines := visibleLines(block)
	if len(lines) == 0 {
		return ""
	}
	return NormalizeText(typeVocabRe.ReplaceAllString(lines[0], " "))
}

// inferCourseName derives the course a page belongs to: the last
// breadcrumb that is not the task title, else the top heading, else the
// first segment of the document title.
func inferCourseName(page *Page, taskTitle string) string {
	lowerTitle := strings.ToLower(taskTitle)

	var crumbs []string
	page.Doc.Find(breadcrumbSel).Each(func(_ int, a *goquery.Selection) {
		t := NormalizeText(a.Text())
		if t != "" && strings.ToLower(t) != lowerTitle {
			crumbs = append(crumbs, t)
		}
	})
	if len(crumbs) > 0 {
		return crumbs[len(crumbs)-1]
	}

	topHeading := NormalizeText(page.Doc.Find("h1").First().Text())
	if topHeading != "" && strings.ToLower(topHeading) != lowerTitle {
		return topHeading
	}

	pageTitle := page.Title()
	parts := titleSplitRe.Split(pageTitle, -1)
	var clean []string
	for _, p := range parts {
		if p = NormalizeText(p); p != "" {
			clean = append(clean, p)
		}
	}
	if len(clean) > 1 {
		return clean[0]
	}
	return pageTitle
}
