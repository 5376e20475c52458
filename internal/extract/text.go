package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// blockTags are elements that introduce a line break in rendered text.
var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"div": true, "dl": true, "dt": true, "dd": true, "fieldset": true,
	"figure": true, "footer": true, "form": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "header": true,
	"hr": true, "li": true, "main": true, "nav": true, "ol": true,
	"p": true, "pre": true, "section": true, "table": true, "tr": true,
	"td": true, "th": true, "ul": true,
}

// skippedTags never contribute visible text.
var skippedTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"iframe": true,
}

// visibleText approximates a browser's innerText for a selection: block
// elements and <br> become newlines, script/style subtrees are skipped.
// goquery's Text() flattens everything into one run, which loses the line
// structure the navigation filter and first-line title fallback rely on.
func visibleText(sel *goquery.Selection) string {
	var sb strings.Builder
	for _, node := range sel.Nodes {
		writeNodeText(&sb, node)
	}
	return sb.String()
}

func writeNodeText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		if skippedTags[n.Data] {
			return
		}
		if n.Data == "br" {
			sb.WriteString("\n")
			return
		}
		if blockTags[n.Data] {
			sb.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeNodeText(sb, c)
		}
		if blockTags[n.Data] {
			sb.WriteString("\n")
		}
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeNodeText(sb, c)
		}
	}
}

// visibleLines returns the normalized non-empty lines of a selection's
// visible text.
func visibleLines(sel *goquery.Selection) []string {
	var lines []string
	for _, line := range strings.Split(visibleText(sel), "\n") {
		line = NormalizeText(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// flatText is visibleText collapsed to a single normalized line.
func flatText(sel *goquery.Selection) string {
	return NormalizeText(visibleText(sel))
}

// attrOr returns the named attribute or a fallback.
func attrOr(sel *goquery.Selection, name, fallback string) string {
	if v, ok := sel.Attr(name); ok {
		return v
	}
	return fallback
}

// labelText returns an element's text, falling back to its aria-label.
func labelText(sel *goquery.Selection) string {
	t := flatText(sel)
	if t != "" {
		return t
	}
	return NormalizeText(attrOr(sel, "aria-label", ""))
}
