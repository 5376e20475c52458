package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Context resolution: LMS pages frequently bury the real content inside an
// embedded frame. ResolveContext scores each accessible frame and extracts
// from the best one, falling back to the top-level document.

const (
	// Provenance tags for where extraction happened.
	SourceTop   = "top"
	SourceFrame = "iframe"
)

var (
	frameMetaVocabRe = regexp.MustCompile(`(?i)assignment|content|launch|attempt|detail|view|course|blackboard|learn|instructions|rubric`)
	frameTextVocabRe = regexp.MustCompile(`(?i)assignment|instructions|due|rubric|points|submission`)
)

// frame scoring thresholds, in rendered-area and text-length units.
const (
	frameAreaLarge   = 450000
	frameAreaMedium  = 180000
	frameAreaSmall   = 60000
	frameTallHeight  = 550
	frameRichTextLen = 400
)

// ResolveContext picks the document to extract from. Frames carrying
// inline srcdoc content are accessible and scored; src-only frames are
// cross-origin from a static scan's point of view and skipped. The
// highest-scoring accessible frame with a non-empty body wins, ties going
// to the first seen. Returns the chosen page and a provenance tag.
func ResolveContext(page *Page) (*Page, string) {
	frames := page.Doc.Find("iframe")
	if frames.Length() == 0 {
		return page, SourceTop
	}

	var best *Page
	bestScore := -1

	frames.Each(func(_ int, sel *goquery.Selection) {
		score := 0

		meta := strings.Join([]string{
			attrOr(sel, "title", ""),
			attrOr(sel, "name", ""),
			attrOr(sel, "id", ""),
			attrOr(sel, "src", ""),
		}, " ")
		if frameMetaVocabRe.MatchString(meta) {
			score += 7
		}

		area := frameDim(sel, "width") * frameDim(sel, "height")
		switch {
		case area > frameAreaLarge:
			score += 7
		case area > frameAreaMedium:
			score += 5
		case area > frameAreaSmall:
			score += 3
		}
		if frameDim(sel, "height") > frameTallHeight {
			score += 2
		}

		srcdoc, ok := sel.Attr("srcdoc")
		if !ok {
			return // inaccessible: no inline document to scan
		}
		frameDoc, err := goquery.NewDocumentFromReader(strings.NewReader(srcdoc))
		if err != nil {
			return
		}
		body := frameDoc.Find("body")
		if body.Length() == 0 || NormalizeText(body.Text()) == "" {
			return
		}

		text := flatText(body)
		if len(text) > frameRichTextLen {
			score += 3
		}
		if frameTextVocabRe.MatchString(text) {
			score += 6
		}
		if frameDoc.Find(`main, [role="main"], h1, h2, table, ul, ol`).Length() > 0 {
			score += 2
		}

		if score > bestScore {
			bestScore = score
			best = &Page{Doc: frameDoc, URL: page.URL}
		}
	})

	if best != nil {
		return best, SourceFrame
	}
	return page, SourceTop
}

// frameDim reads a numeric width/height attribute, tolerating a "px"
// suffix. Missing or unparsable dimensions count as zero.
func frameDim(sel *goquery.Selection, name string) int {
	raw := strings.TrimSuffix(strings.TrimSpace(attrOr(sel, name, "")), "px")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
