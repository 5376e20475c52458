package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hurttlocker/courseintel/internal/score"
)

// The authoritative task store: a mapping from identity key to scored
// task. Updated by every successful extraction pass, last-write-wins per
// key. Never pruned automatically; the consumer decides what goes away.

// MergeResult reports what a merge pass did.
type MergeResult struct {
	Added   int
	Updated int
	Dropped int // candidates with no derivable identity key
	Total   int // store size after the merge
}

// Tasks returns the authoritative task set keyed by identity key.
// A missing or malformed record yields an empty set.
func (s *Store) Tasks(ctx context.Context) (map[string]score.Task, error) {
	tasks := make(map[string]score.Task)
	if _, err := s.getJSON(ctx, KeyTasks, &tasks); err != nil {
		return nil, fmt.Errorf("loading task set: %w", err)
	}
	return tasks, nil
}

// TaskList returns the stored tasks ordered for display: most urgent
// first, earlier due dates breaking ties.
func (s *Store) TaskList(ctx context.Context) ([]score.Task, error) {
	byKey, err := s.Tasks(ctx)
	if err != nil {
		return nil, err
	}

	list := make([]score.Task, 0, len(byKey))
	for _, t := range byKey {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].UrgencyScore != list[j].UrgencyScore {
			return list[i].UrgencyScore > list[j].UrgencyScore
		}
		di, dj := list[i].DueAt, list[j].DueAt
		if di.IsZero() != dj.IsZero() {
			return !di.IsZero()
		}
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return list[i].Title < list[j].Title
	})
	return list, nil
}

// MergeTasks reconciles a scored batch with the authoritative store.
// Entries are keyed by identity key; an existing entry is fully replaced.
// Candidates with no derivable key are dropped, not errors. Merging the
// same batch twice yields the same store as merging it once.
func (s *Store) MergeTasks(ctx context.Context, batch []score.Task) (MergeResult, error) {
	var res MergeResult

	current, err := s.Tasks(ctx)
	if err != nil {
		return res, err
	}

	for _, t := range batch {
		key := t.Key()
		if key == "" {
			res.Dropped++
			continue
		}
		if _, exists := current[key]; exists {
			res.Updated++
		} else {
			res.Added++
		}
		current[key] = t
	}

	if err := s.Set(ctx, map[string]any{KeyTasks: current}); err != nil {
		return res, fmt.Errorf("saving task set: %w", err)
	}
	res.Total = len(current)
	return res, nil
}

// LastAutoRun returns when the last auto-collect run completed, or the
// zero time when none has.
func (s *Store) LastAutoRun(ctx context.Context) (time.Time, error) {
	var stamp time.Time
	if _, err := s.getJSON(ctx, KeyLastAutoRun, &stamp); err != nil {
		return time.Time{}, fmt.Errorf("loading last auto-run: %w", err)
	}
	return stamp, nil
}

// SetLastAutoRun records the completion time of an auto-collect run.
func (s *Store) SetLastAutoRun(ctx context.Context, t time.Time) error {
	return s.Set(ctx, map[string]any{KeyLastAutoRun: t.UTC()})
}
