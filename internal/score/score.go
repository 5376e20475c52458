// Package score annotates extracted candidates with urgency and effort
// estimates and derives the stable identity key used for merging.
package score

import (
	"math"
	"strings"
	"time"

	"github.com/hurttlocker/courseintel/internal/extract"
)

// Urgency buckets by hours until due. A candidate with no due date gets a
// fixed mid-low default rather than the lowest bucket: an undated task is
// unknown, not safe.
const (
	urgencyOverdue  = 100
	urgencyToday    = 90
	urgencyThisWeek = 75
	urgencyNextWeek = 55
	urgencyLater    = 35
	urgencyUndated  = 20
)

// Effort weights from lexical cues in the title.
const (
	effortBase       = 10
	effortExam       = 45
	effortProject    = 35
	effortPaper      = 25
	effortQuiz       = 15
	effortDiscussion = 8
	effortCap        = 100
)

// Task is a candidate plus its scores. This is the unit the merge engine
// stores and the sync queue delivers.
type Task struct {
	extract.Candidate

	UrgencyScore      int `json:"urgency_score"`
	RecommendedEffort int `json:"recommended_effort"`

	// RewardXP is the combined reward magnitude handed to the consumer.
	RewardXP int `json:"reward_xp"`
}

// Score annotates a candidate. An explicit urgency hint from the source
// document is clamped and kept; otherwise urgency derives from the time
// remaining until the due date at the given instant.
func Score(c extract.Candidate, now time.Time) Task {
	urgency := urgencyAt(c, now)
	effort := estimateEffort(c.Title)
	return Task{
		Candidate:         c,
		UrgencyScore:      urgency,
		RecommendedEffort: effort,
		RewardXP:          combineReward(urgency, effort),
	}
}

// ScoreAll scores a batch against one shared instant.
func ScoreAll(candidates []extract.Candidate, now time.Time) []Task {
	tasks := make([]Task, 0, len(candidates))
	for _, c := range candidates {
		tasks = append(tasks, Score(c, now))
	}
	return tasks
}

func urgencyAt(c extract.Candidate, now time.Time) int {
	if c.UrgencyHint != nil {
		return clamp(*c.UrgencyHint, 0, 100)
	}
	if c.DueAt.IsZero() {
		return urgencyUndated
	}

	hours := c.DueAt.Sub(now).Hours()
	switch {
	case hours <= 0:
		return urgencyOverdue
	case hours <= 24:
		return urgencyToday
	case hours <= 72:
		return urgencyThisWeek
	case hours <= 168:
		return urgencyNextWeek
	default:
		return urgencyLater
	}
}

// estimateEffort sums lexical effort cues in the title. Cues stack: a
// "final project" is costlier than either word alone.
func estimateEffort(title string) int {
	t := strings.ToLower(title)
	points := effortBase

	if strings.Contains(t, "exam") || strings.Contains(t, "midterm") || strings.Contains(t, "final") {
		points += effortExam
	}
	if strings.Contains(t, "project") {
		points += effortProject
	}
	if strings.Contains(t, "paper") || strings.Contains(t, "essay") {
		points += effortPaper
	}
	if strings.Contains(t, "quiz") {
		points += effortQuiz
	}
	if strings.Contains(t, "discussion") {
		points += effortDiscussion
	}

	return min(points, effortCap)
}

// combineReward folds urgency and effort into the reward magnitude the
// consumer grants on completion.
func combineReward(urgency, effort int) int {
	return int(math.Round(20 + float64(urgency)*0.8 + float64(effort)*0.6))
}

// Key derives the deterministic identity key for a task: preferentially
// from its source URL, else its source ID. Empty means the task has no
// derivable identity and must be dropped before merge.
func (t Task) Key() string {
	if u := strings.TrimSpace(t.URL); u != "" {
		return "url:" + u
	}
	if id := strings.TrimSpace(t.ID); id != "" {
		return "id:" + id
	}
	return ""
}

func clamp(n, lo, hi int) int {
	return max(lo, min(hi, n))
}
