package store

import (
	"context"
	"testing"
	"time"

	"github.com/hurttlocker/courseintel/internal/extract"
	"github.com/hurttlocker/courseintel/internal/score"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewStore(StoreConfig{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func task(title, url string, urgency int) score.Task {
	return score.Task{
		Candidate:    extract.Candidate{ID: "x|" + title, Title: title, URL: url},
		UrgencyScore: urgency,
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.Set(ctx, map[string]any{"k1": map[string]int{"n": 7}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	values, err := st.Get(ctx, "k1", "absent")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, ok := values["k1"]; !ok {
		t.Fatal("k1 missing")
	}
	if _, ok := values["absent"]; ok {
		t.Fatal("absent key should not appear")
	}

	// nil value deletes
	if err := st.Set(ctx, map[string]any{"k1": nil}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	values, _ = st.Get(ctx, "k1")
	if len(values) != 0 {
		t.Fatalf("k1 survived deletion: %v", values)
	}
}

func TestMergeTasks_Idempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	batch := []score.Task{
		task("Essay 2", "https://x/essay2", 90),
		task("Quiz 3", "https://x/quiz3", 55),
	}

	first, err := st.MergeTasks(ctx, batch)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if first.Added != 2 || first.Updated != 0 || first.Total != 2 {
		t.Fatalf("first merge = %+v", first)
	}

	second, err := st.MergeTasks(ctx, batch)
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}
	if second.Added != 0 || second.Updated != 2 || second.Total != 2 {
		t.Fatalf("second merge = %+v", second)
	}
}

// Two scans of the same URL collapse to one entry even when titles or
// scores differ; the later write wins.
func TestMergeTasks_SameURLLastWriteWins(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.MergeTasks(ctx, []score.Task{task("Essay 2", "https://x/essay2", 55)}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	res, err := st.MergeTasks(ctx, []score.Task{task("Essay 2 (updated)", "https://x/essay2", 90)})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if res.Total != 1 {
		t.Fatalf("total = %d, want 1", res.Total)
	}

	tasks, err := st.Tasks(ctx)
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	got := tasks["url:https://x/essay2"]
	if got.Title != "Essay 2 (updated)" || got.UrgencyScore != 90 {
		t.Fatalf("stored task = %+v", got)
	}
}

func TestMergeTasks_DropsKeyless(t *testing.T) {
	st := newTestStore(t)
	keyless := score.Task{Candidate: extract.Candidate{Title: "no identity"}}

	res, err := st.MergeTasks(context.Background(), []score.Task{keyless})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if res.Dropped != 1 || res.Added != 0 || res.Total != 0 {
		t.Fatalf("merge = %+v", res)
	}
}

func TestTaskList_Ordering(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	early := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)

	a := task("late due", "https://x/a", 75)
	a.DueAt = late
	b := task("early due", "https://x/b", 75)
	b.DueAt = early
	c := task("undated urgent", "https://x/c", 90)

	if _, err := st.MergeTasks(ctx, []score.Task{a, b, c}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	list, err := st.TaskList(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("list length = %d", len(list))
	}
	if list[0].Title != "undated urgent" || list[1].Title != "early due" || list[2].Title != "late due" {
		t.Fatalf("order = %q, %q, %q", list[0].Title, list[1].Title, list[2].Title)
	}
}

// A corrupted stored record falls back to the empty default rather than
// erroring.
func TestMalformedRecordYieldsDefault(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)`, KeyTasks, `{not json`); err != nil {
		t.Fatalf("seeding corrupt row: %v", err)
	}

	tasks, err := st.Tasks(ctx)
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected empty set, got %v", tasks)
	}
}

func TestSettingsDefaults(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	s, err := st.Settings(ctx)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if s.ConsumerURL != DefaultConsumerURL {
		t.Fatalf("consumer url = %q", s.ConsumerURL)
	}

	s.SeedURL = "https://learn.example.edu"
	if err := st.SetSettings(ctx, s); err != nil {
		t.Fatalf("set settings: %v", err)
	}
	again, err := st.Settings(ctx)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if again.SeedURL != "https://learn.example.edu" {
		t.Fatalf("seed url = %q", again.SeedURL)
	}
}

func TestPendingSyncLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	got, err := st.PendingSync(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no pending payload, got %+v", got)
	}

	saved := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	if err := st.SetPendingSync(ctx, []score.Task{task("Essay 2", "https://x/e2", 90)}, saved); err != nil {
		t.Fatalf("set pending: %v", err)
	}

	got, err = st.PendingSync(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if got == nil || len(got.Tasks) != 1 || !got.SavedAt.Equal(saved) {
		t.Fatalf("pending = %+v", got)
	}

	if err := st.ClearPendingSync(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, _ = st.PendingSync(ctx)
	if got != nil {
		t.Fatalf("payload survived clear: %+v", got)
	}
}

func TestLastAutoRun(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	stamp, err := st.LastAutoRun(ctx)
	if err != nil {
		t.Fatalf("last auto-run: %v", err)
	}
	if !stamp.IsZero() {
		t.Fatalf("expected zero stamp, got %v", stamp)
	}

	at := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	if err := st.SetLastAutoRun(ctx, at); err != nil {
		t.Fatalf("set: %v", err)
	}
	stamp, _ = st.LastAutoRun(ctx)
	if !stamp.Equal(at) {
		t.Fatalf("stamp = %v, want %v", stamp, at)
	}
}
