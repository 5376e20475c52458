package extract

import (
	"strings"
	"testing"
	"time"
)

const exportFixture = `<html><body><table>
<thead><tr><th>Due Date</th><th>Course</th><th>Assignment Title</th><th>Requirements</th><th>Urgency Score</th></tr></thead>
<tbody>
<tr><td>Sep 12, 2026</td><td>ENG 101</td><td>Essay 2</td><td>Write a 5-page analysis; cite 3 sources</td><td>90</td></tr>
<tr><td>Sep 20, 2026</td><td>HIST 210</td><td>Discussions</td><td>Respond to the week 4 prompt with two citations; reply to two peers</td><td>150</td></tr>
<tr><td>-</td><td>MATH 110</td><td>-</td><td>-</td><td></td></tr>
</tbody></table></body></html>`

func TestExtractExportTable(t *testing.T) {
	page := mustPage(t, exportFixture, "https://x.example/export")
	got := extractExportTable(page, time.Now())

	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2: %+v", len(got), got)
	}

	essay := got[0]
	if essay.Title != "Essay 2" {
		t.Errorf("title = %q", essay.Title)
	}
	if essay.Details.SourceTitle != "title-column" {
		t.Errorf("source title = %q", essay.Details.SourceTitle)
	}
	if essay.Course != "ENG 101" {
		t.Errorf("course = %q", essay.Course)
	}
	if essay.UrgencyHint == nil || *essay.UrgencyHint != 90 {
		t.Errorf("urgency hint = %v, want 90", essay.UrgencyHint)
	}
	want := time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)
	if !essay.DueAt.Equal(want) {
		t.Errorf("due = %v, want %v", essay.DueAt, want)
	}

	disc := got[1]
	if disc.Details.SourceTitle != "requirements-fallback" {
		t.Errorf("source title = %q", disc.Details.SourceTitle)
	}
	if disc.Title != "Respond to the week 4 prompt with two citations" {
		t.Errorf("fallback title = %q", disc.Title)
	}
	if disc.UrgencyHint == nil || *disc.UrgencyHint != 100 {
		t.Errorf("urgency hint = %v, want clamped 100", disc.UrgencyHint)
	}
	if disc.TypeGuess != TypeDiscussion {
		t.Errorf("type guess = %q", disc.TypeGuess)
	}
}

// Rows that lead with a th row header are data rows; only the all-th
// header row is skipped.
func TestExtractExportTable_RowHeaderCells(t *testing.T) {
	page := mustPage(t, `<html><body><table>
<thead><tr><th>Due Date</th><th>Course</th><th>Assignment Title</th><th>Requirements</th><th>Urgency Score</th></tr></thead>
<tbody>
<tr><th scope="row">Oct 1, 2026</th><td>ENG 101</td><td>Annotated Bibliography</td><td>-</td><td>60</td></tr>
</tbody></table></body></html>`, "https://x.example/export")
	got := extractExportTable(page, time.Now())

	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1: %+v", len(got), got)
	}
	if got[0].Title != "Annotated Bibliography" {
		t.Errorf("title = %q", got[0].Title)
	}
	want := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	if !got[0].DueAt.Equal(want) {
		t.Errorf("due = %v, want %v", got[0].DueAt, want)
	}
	if got[0].UrgencyHint == nil || *got[0].UrgencyHint != 60 {
		t.Errorf("urgency hint = %v, want 60", got[0].UrgencyHint)
	}
}

func TestExtractExportTable_IgnoresPlainTables(t *testing.T) {
	page := mustPage(t, `<html><body><table>
		<tr><th>Name</th><th>Office</th></tr>
		<tr><td>Dr. Reyes</td><td>H-204</td></tr>
		</table></body></html>`, "")
	if got := extractExportTable(page, time.Now()); len(got) != 0 {
		t.Fatalf("plain table produced candidates: %+v", got)
	}
}

func TestIsGenericExportTitle(t *testing.T) {
	generic := []string{"", "-", "x", "Assignment", "discussions", "Quizzes"}
	for _, s := range generic {
		if !isGenericExportTitle(s) {
			t.Errorf("%q should read as generic", s)
		}
	}
	if isGenericExportTitle("Essay 2") {
		t.Error("real title misread as generic")
	}
}

func TestTitleFromRequirements_Truncation(t *testing.T) {
	long := strings.Repeat("analyze the assigned reading ", 5) // well past 80 chars
	got := titleFromRequirements(long + "; second clause")
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
	if n := len([]rune(got)); n > exportTitleMax+1 {
		t.Fatalf("title length %d exceeds cap", n)
	}
	if strings.Contains(got, ";") {
		t.Fatalf("semicolon segment leaked into %q", got)
	}
}

func TestParseUrgencyScore(t *testing.T) {
	unset := []string{"", "n/a", "high", "%85"}
	for _, in := range unset {
		if got := parseUrgencyScore(in); got != nil {
			t.Errorf("parseUrgencyScore(%q) = %d, want nil", in, *got)
		}
	}

	cases := []struct {
		in   string
		want int
	}{
		{"42", 42},
		{"-5", 0},
		{"150", 100},
		{"85%", 85},
		{"90 pts", 90},
	}
	for _, tc := range cases {
		got := parseUrgencyScore(tc.in)
		if got == nil || *got != tc.want {
			t.Errorf("parseUrgencyScore(%q) = %v, want %d", tc.in, got, tc.want)
		}
	}
}
