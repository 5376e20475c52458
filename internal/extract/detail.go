package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DetailPage holds the fields extracted from a single assignment detail
// page: the richest shape a strategy can produce.
type DetailPage struct {
	Course       string    `json:"course,omitempty"`
	Title        string    `json:"title"`
	DueAt        time.Time `json:"due_at,omitzero"`
	PromptText   string    `json:"prompt_text,omitempty"`
	RubricText   string    `json:"rubric_text,omitempty"`
	Requirements []string  `json:"requirements,omitempty"`
}

const (
	// mainMinTextLen is the minimum visible text for a container to be a
	// main-content candidate.
	mainMinTextLen = 180

	// promptSiblingHop bounds how many siblings after an instruction
	// heading are pulled into the prompt.
	promptSiblingHop = 6

	// promptParagraphCap bounds the paragraph fallback.
	promptParagraphCap = 30
)

var (
	mainIDVocabRe   = regexp.MustCompile(`(?i)content|main|region-main|item|details|module|assignment`)
	mainTextVocabRe = regexp.MustCompile(`(?i)assignment|instructions|due|rubric`)
	promptHeaderRe  = regexp.MustCompile(`(?i)instruction|prompt|description|details|task|overview`)
	rubricTextRe    = regexp.MustCompile(`(?i)rubric|criteria|points|performance`)
	headingTagRe    = regexp.MustCompile(`(?i)^h[1-4]$`)
	assignmentWords = []string{"assignment", "instructions", "due", "rubric"}
)

// ExtractDetailPage runs the single-page detail strategy. It fires only
// when a main-content container is found and that container looks like an
// assignment page; otherwise it returns nil.
func ExtractDetailPage(page *Page) *DetailPage {
	main := findMainContainer(page.Doc)
	if main == nil {
		return nil
	}
	if !looksLikeAssignmentPage(main) {
		return nil
	}

	title := detailTitle(main, page)
	due := FindDueDate(visibleText(main))
	if due.IsZero() {
		due = FindDueDate(visibleText(page.Doc.Find("body")))
	}
	course := inferCourseName(page, title)

	rubric := rubricText(main)
	prompt := promptText(main, rubric)
	reqs := requirements(main)

	if title == "" && prompt == "" && rubric == "" {
		return nil
	}

	return &DetailPage{
		Course:       NormalizeText(course),
		Title:        NormalizeText(title),
		DueAt:        due,
		PromptText:   NormalizeText(prompt),
		RubricText:   NormalizeText(rubric),
		Requirements: dedupeStrings(reqs),
	}
}

// findMainContainer scores candidate containers by text length, identifier
// vocabulary, assignment vocabulary and heading presence, returning the
// best or nil.
func findMainContainer(doc *goquery.Document) *goquery.Selection {
	var best *goquery.Selection
	bestScore := -1

	doc.Find(`main, [role="main"], article, section, div[id], div[class]`).
		Each(func(_ int, node *goquery.Selection) {
			text := flatText(node)
			if len(text) < mainMinTextLen {
				return
			}

			idCls := attrOr(node, "id", "") + " " + attrOr(node, "class", "")
			score := 0
			if mainIDVocabRe.MatchString(idCls) {
				score += 5
			}
			if mainTextVocabRe.MatchString(text) {
				score += 6
			}
			if node.Find("h1, h2, h3").Length() > 0 {
				score += 2
			}

			if score > bestScore {
				best = node
				bestScore = score
			}
		})

	return best
}

// looksLikeAssignmentPage tests whether a main container is actually an
// assignment: enough keyword hits in body or headings, or rubric- or
// instruction-shaped markup.
func looksLikeAssignmentPage(main *goquery.Selection) bool {
	text := strings.ToLower(flatText(main))
	var headingParts []string
	main.Find("h1, h2, h3, h4").Each(func(_ int, h *goquery.Selection) {
		headingParts = append(headingParts, h.Text())
	})
	headingText := strings.ToLower(NormalizeText(strings.Join(headingParts, " ")))

	keywordCount := countMatches(text, assignmentWords)
	headingCount := countMatches(headingText, assignmentWords)

	hasRubricUI := hasClassOrID(main, "rubric") || main.Find("table").Length() > 0
	hasInstructionUI := hasClassOrID(main, "instruction") || main.Find("ol, ul").Length() > 0

	return keywordCount >= 2 || headingCount >= 1 || hasRubricUI || hasInstructionUI
}

// hasClassOrID reports whether any descendant carries the substring in its
// class or id attribute, case-insensitively.
func hasClassOrID(root *goquery.Selection, sub string) bool {
	found := false
	root.Find("[class], [id]").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		idCls := strings.ToLower(attrOr(el, "class", "") + " " + attrOr(el, "id", ""))
		if strings.Contains(idCls, sub) {
			found = true
			return false
		}
		return true
	})
	return found
}

// detailTitle picks the page's task title from the first few headings,
// preferring higher heading levels, falling back to the document title.
func detailTitle(main *goquery.Selection, page *Page) string {
	headings := main.Find("h1, h2, h3, h4")
	if headings.Length() == 0 {
		return page.Title()
	}

	top := headings.Slice(0, min(8, headings.Length()))
	for _, tag := range []string{"h1", "h2", "h3", "h4"} {
		var hit string
		top.EachWithBreak(func(_ int, h *goquery.Selection) bool {
			if goquery.NodeName(h) == tag {
				if t := NormalizeText(h.Text()); len(t) >= 3 {
					hit = t
					return false
				}
			}
			return true
		})
		if hit != "" {
			return hit
		}
	}

	if t := NormalizeText(top.First().Text()); t != "" {
		return t
	}
	return page.Title()
}

// promptText extracts instruction/prompt prose: chunks following
// instruction-shaped headers, else the first paragraphs and list items.
// Any leading rubric snippet is removed so the two fields do not overlap.
func promptText(main *goquery.Selection, rubric string) string {
	clone := cloneWithoutChrome(main)

	var sections []string
	clone.Find("h1, h2, h3, h4, strong").Each(func(_ int, header *goquery.Selection) {
		if !promptHeaderRe.MatchString(NormalizeText(header.Text())) {
			return
		}
		chunk := NormalizeText(header.Text())
		next := header.Next()
		for steps := 0; next.Length() > 0 && steps < promptSiblingHop; steps++ {
			if headingTagRe.MatchString(goquery.NodeName(next)) {
				break
			}
			chunk += "\n" + flatText(next)
			next = next.Next()
		}
		sections = append(sections, chunk)
	})

	if len(sections) == 0 {
		var paragraphs []string
		clone.Find("p, li").EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if t := flatText(el); len(t) > 20 {
				paragraphs = append(paragraphs, t)
			}
			return len(paragraphs) < promptParagraphCap
		})
		sections = append(sections, strings.Join(paragraphs, "\n"))
	}

	prompt := strings.TrimSpace(strings.Join(sections, "\n"))
	if rubric != "" {
		snippet := NormalizeText(rubric)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		prompt = strings.TrimSpace(strings.Replace(prompt, snippet, "", 1))
	}

	return StripNavigation(prompt)
}

// rubricText collects rubric-shaped sections: nodes whose text mentions
// rubric/criteria/points/performance.
func rubricText(main *goquery.Selection) string {
	var parts []string
	main.Find("section, article, div, table").Each(func(_ int, node *goquery.Selection) {
		text := flatText(node)
		if !rubricTextRe.MatchString(text) {
			return
		}
		if len(text) > 10 {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return ""
	}
	return StripNavigation(strings.Join(parts, "\n"))
}

// requirements gathers list items and table rows as a requirement list,
// filtering navigation boilerplate.
func requirements(main *goquery.Selection) []string {
	var reqs []string

	main.Find("ul li, ol li").Each(func(_ int, li *goquery.Selection) {
		text := flatText(li)
		if len(text) >= 4 && !isNavigationLine(text) {
			reqs = append(reqs, text)
		}
	})

	main.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			if t := flatText(cell); t != "" {
				cells = append(cells, t)
			}
		})
		if len(cells) == 0 {
			return
		}
		rowText := strings.Join(cells, " | ")
		if !isNavigationLine(rowText) {
			reqs = append(reqs, rowText)
		}
	})

	return dedupeStrings(reqs)
}

// cloneWithoutChrome deep-copies a selection and removes navigation and
// scripting subtrees so prose extraction sees content only.
func cloneWithoutChrome(sel *goquery.Selection) *goquery.Selection {
	clone := sel.Clone()
	clone.Find("nav, aside, header, footer, script, style, button").Remove()
	return clone
}
