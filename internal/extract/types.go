// Package extract turns semi-structured LMS pages into task candidates.
//
// The pipeline runs several independent heuristic strategies against a
// parsed document (assignment detail page, generic listing links, course
// content tiles, quiz/test listings, tabular export summaries), unions
// their output and deduplicates by (URL, normalized title, due date).
// Strategies are total: a strategy that finds nothing, or hits malformed
// markup, contributes an empty result and never aborts the scan.
package extract

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// TaskType is the closed set of type guesses a candidate can carry.
type TaskType string

const (
	TypeAssignment TaskType = "assignment"
	TypeQuizTest   TaskType = "quiz/test"
	TypeExam       TaskType = "exam"
	TypeProject    TaskType = "project"
	TypeDiscussion TaskType = "discussion"
)

// Candidate is a provisionally extracted unit of work. A candidate with an
// empty title never leaves this package.
type Candidate struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	DueAt     time.Time `json:"due_at,omitzero"`
	URL       string    `json:"url,omitempty"`
	Course    string    `json:"course,omitempty"`
	TypeGuess TaskType  `json:"type_guess"`
	ScannedAt time.Time `json:"scanned_at"`

	// UrgencyHint carries an urgency score found in the source document
	// itself (export summary tables). Nil when absent, so the zero value
	// of a Candidate carries no hint.
	UrgencyHint *int `json:"urgency_hint,omitempty"`

	Details *Details `json:"details,omitempty"`
}

// Details holds supporting fields some strategies attach to a candidate.
type Details struct {
	Extractor    string     `json:"extractor"`
	SourceTitle  string     `json:"source_title,omitempty"`
	LinkText     string     `json:"link_text,omitempty"`
	PromptText   string     `json:"prompt_text,omitempty"`
	RubricText   string     `json:"rubric_text,omitempty"`
	Requirements []string   `json:"requirements,omitempty"`
	Indicators   Indicators `json:"indicators,omitzero"`
}

// Indicators records which markers qualified a content tile.
type Indicators struct {
	Due        bool `json:"due,omitempty"`
	Points     bool `json:"points,omitempty"`
	Assessment bool `json:"assessment,omitempty"`
}

// Page is a parsed document plus its location reference. URL may be empty
// for documents with no addressable location (file scans, test fixtures).
type Page struct {
	Doc *goquery.Document
	URL string
}

// ParsePage parses raw HTML into a Page.
func ParsePage(html, url string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return &Page{Doc: doc, URL: url}, nil
}

// Title returns the document <title>, normalized.
func (p *Page) Title() string {
	return NormalizeText(p.Doc.Find("title").First().Text())
}

// makeID derives a candidate ID from its source URL, title and due date.
func makeID(url, title string, due time.Time) string {
	return url + "|" + title + "|" + dueKey(due)
}

// dueKey renders a due date for identity purposes. Zero time stays empty so
// two scans that both failed to find a date still collapse.
func dueKey(due time.Time) string {
	if due.IsZero() {
		return ""
	}
	return due.UTC().Format(time.RFC3339)
}

// GuessType maps lexical cues in the given text to a task type. First match
// wins; anything unrecognized is treated as a plain assignment.
func GuessType(text string) TaskType {
	t := strings.ToLower(NormalizeText(text))
	switch {
	case strings.Contains(t, "discussion"):
		return TypeDiscussion
	case strings.Contains(t, "quiz"), strings.Contains(t, "test"):
		return TypeQuizTest
	case strings.Contains(t, "project"):
		return TypeProject
	case strings.Contains(t, "exam"):
		return TypeExam
	default:
		return TypeAssignment
	}
}
