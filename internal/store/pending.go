package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hurttlocker/courseintel/internal/score"
)

// PendingPayload is a queued, not-yet-delivered batch awaiting retry.
// At most one exists at a time; a new failed delivery overwrites it.
type PendingPayload struct {
	Tasks   []score.Task `json:"tasks"`
	SavedAt time.Time    `json:"saved_at"`
}

// PendingSync returns the queued payload, or nil when none exists (or the
// stored record is malformed or empty).
func (s *Store) PendingSync(ctx context.Context) (*PendingPayload, error) {
	var p PendingPayload
	ok, err := s.getJSON(ctx, KeyPendingSync, &p)
	if err != nil {
		return nil, fmt.Errorf("loading pending payload: %w", err)
	}
	if !ok || len(p.Tasks) == 0 {
		return nil, nil
	}
	return &p, nil
}

// SetPendingSync overwrites the queued payload.
func (s *Store) SetPendingSync(ctx context.Context, tasks []score.Task, savedAt time.Time) error {
	p := PendingPayload{Tasks: tasks, SavedAt: savedAt.UTC()}
	if err := s.Set(ctx, map[string]any{KeyPendingSync: p}); err != nil {
		return fmt.Errorf("saving pending payload: %w", err)
	}
	return nil
}

// ClearPendingSync removes the queued payload.
func (s *Store) ClearPendingSync(ctx context.Context) error {
	if err := s.Set(ctx, map[string]any{KeyPendingSync: nil}); err != nil {
		return fmt.Errorf("clearing pending payload: %w", err)
	}
	return nil
}
