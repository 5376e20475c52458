// Package importer is the consumer side of the sync protocol: it accepts
// delivered batches, deduplicates them against its own action list by a
// content-derived key, preserves completion state, and re-sorts by
// urgency.
package importer

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hurttlocker/courseintel/internal/score"
)

// Difficulty bands derived from the reward magnitude.
const (
	DifficultyQuickWin   = "quick-win"
	DifficultyStandard   = "standard"
	DifficultyHighImpact = "high-impact"
)

// Action is a consumer-owned record. Its identity is independent of the
// extraction side's; the dedupe key ties the two worlds together.
type Action struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Difficulty  string    `json:"difficulty"`
	XPReward    int       `json:"xp_reward"`
	Completed   bool      `json:"completed"`
	CompletedAt string    `json:"completed_at,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Source      string    `json:"source,omitempty"`
	SourceID    string    `json:"source_id,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
	DueAt       time.Time `json:"due_at,omitzero"`
	Course      string    `json:"course,omitempty"`
	Priority    int       `json:"priority"`
	TypeGuess   string    `json:"type_guess,omitempty"`
}

// DedupeKey derives the action's content identity: preferentially the
// source URL, else the source ID. Empty means no derivable identity.
func (a Action) DedupeKey() string {
	if u := strings.TrimSpace(a.SourceURL); u != "" {
		return "url:" + u
	}
	if id := strings.TrimSpace(a.SourceID); id != "" {
		return "id:" + id
	}
	return ""
}

// FromTask converts a delivered task into a new action. Returns false for
// tasks with no usable title.
func FromTask(t score.Task, now time.Time) (Action, bool) {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return Action{}, false
	}

	name := title
	if course := strings.TrimSpace(t.Course); course != "" {
		name = "[" + course + "] " + title
	}

	id := "li-" + uuid.NewString()
	if strings.TrimSpace(t.ID) != "" {
		id = "li-" + strings.TrimSpace(t.ID)
	}

	return Action{
		ID:         id,
		Name:       name,
		Difficulty: difficultyFor(t.RewardXP),
		XPReward:   t.RewardXP,
		CreatedAt:  now,
		Source:     "lms",
		SourceID:   strings.TrimSpace(t.ID),
		SourceURL:  strings.TrimSpace(t.URL),
		DueAt:      t.DueAt,
		Course:     strings.TrimSpace(t.Course),
		Priority:   t.UrgencyScore,
		TypeGuess:  string(t.TypeGuess),
	}, true
}

// difficultyFor bands a reward magnitude.
func difficultyFor(xp int) string {
	switch {
	case xp <= 30:
		return DifficultyQuickWin
	case xp <= 80:
		return DifficultyStandard
	default:
		return DifficultyHighImpact
	}
}

// ImportBatch admits delivered tasks into the existing action list.
// Incoming entries are deduplicated against existing actions and against
// each other by dedupe key; keyless entries are dropped silently. An
// existing action is never touched: in particular, a completed action is
// never resurrected as incomplete by a re-import of the same key. The
// combined list is re-sorted by urgency. Returns the new list and how
// many records were admitted.
func ImportBatch(existing []Action, tasks []score.Task, now time.Time) ([]Action, int) {
	existingKeys := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		if k := a.DedupeKey(); k != "" {
			existingKeys[k] = struct{}{}
		}
	}

	seenIncoming := make(map[string]struct{})
	var admitted []Action
	for _, t := range tasks {
		action, ok := FromTask(t, now)
		if !ok {
			continue
		}
		key := action.DedupeKey()
		if key == "" {
			continue
		}
		if _, dup := existingKeys[key]; dup {
			continue
		}
		if _, dup := seenIncoming[key]; dup {
			continue
		}
		seenIncoming[key] = struct{}{}
		admitted = append(admitted, action)
	}

	combined := append(admitted, existing...)
	SortByUrgency(combined, now)
	return combined, len(admitted)
}

// SortByUrgency orders actions: overdue first, then by due date
// ascending, dated before undated, then by priority descending.
func SortByUrgency(actions []Action, now time.Time) {
	sort.SliceStable(actions, func(i, j int) bool {
		ai, aj := actions[i], actions[j]
		iOver := !ai.DueAt.IsZero() && ai.DueAt.Before(now)
		jOver := !aj.DueAt.IsZero() && aj.DueAt.Before(now)
		if iOver != jOver {
			return iOver
		}
		if !ai.DueAt.IsZero() && !aj.DueAt.IsZero() && !ai.DueAt.Equal(aj.DueAt) {
			return ai.DueAt.Before(aj.DueAt)
		}
		if ai.DueAt.IsZero() != aj.DueAt.IsZero() {
			return !ai.DueAt.IsZero()
		}
		return ai.Priority > aj.Priority
	})
}
