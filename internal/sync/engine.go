package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/hurttlocker/courseintel/internal/score"
	"github.com/hurttlocker/courseintel/internal/store"
)

// Result is the structured outcome of a sync or flush attempt.
type Result struct {
	Synced    bool   `json:"synced"`
	Pending   bool   `json:"pending"`
	Delivered int    `json:"delivered"`
	Reason    string `json:"reason,omitempty"`
}

// Engine runs the delivery protocol over one logical channel: deliver
// directly when a consumer is live, otherwise persist the single pending
// payload for a later flush.
type Engine struct {
	store     *store.Store
	deliverer Deliverer
	now       func() time.Time
}

// NewEngine creates a sync engine backed by the given store and deliverer.
func NewEngine(st *store.Store, d Deliverer) *Engine {
	return &Engine{store: st, deliverer: d, now: time.Now}
}

// Sync attempts direct delivery of a batch. When no consumer is
// addressable, or the consumer does not acknowledge, the batch is
// persisted as the pending payload (overwriting any prior one) and the
// attempt resolves to a queued state. A successful delivery clears any
// pending payload. The returned error covers store failures only;
// delivery failures are reported in the Result.
func (e *Engine) Sync(ctx context.Context, tasks []score.Task) (Result, error) {
	if !e.deliverer.Alive(ctx) {
		return e.queue(ctx, tasks, "consumer not addressable")
	}

	if err := e.deliverer.Deliver(ctx, tasks); err != nil {
		return e.queue(ctx, tasks, fmt.Sprintf("delivery failed: %v", err))
	}

	if err := e.store.ClearPendingSync(ctx); err != nil {
		return Result{Synced: true, Delivered: len(tasks)},
			fmt.Errorf("delivered but clearing pending payload failed: %w", err)
	}
	return Result{Synced: true, Delivered: len(tasks)}, nil
}

// SyncStored delivers the authoritative task set.
func (e *Engine) SyncStored(ctx context.Context) (Result, error) {
	tasks, err := e.store.TaskList(ctx)
	if err != nil {
		return Result{}, err
	}
	return e.Sync(ctx, tasks)
}

// FlushPending retries delivery of the queued payload. On success the
// payload is cleared; on failure it is left untouched and the result
// reports continued pending status.
func (e *Engine) FlushPending(ctx context.Context) (Result, error) {
	pending, err := e.store.PendingSync(ctx)
	if err != nil {
		return Result{}, err
	}
	if pending == nil {
		return Result{Reason: "no pending payload"}, nil
	}

	if !e.deliverer.Alive(ctx) {
		return Result{Pending: true, Reason: "consumer not addressable"}, nil
	}
	if err := e.deliverer.Deliver(ctx, pending.Tasks); err != nil {
		return Result{Pending: true, Reason: fmt.Sprintf("delivery failed: %v", err)}, nil
	}

	if err := e.store.ClearPendingSync(ctx); err != nil {
		return Result{Synced: true, Delivered: len(pending.Tasks)},
			fmt.Errorf("delivered but clearing pending payload failed: %w", err)
	}
	return Result{Synced: true, Delivered: len(pending.Tasks)}, nil
}

// queue persists the batch as the pending payload.
func (e *Engine) queue(ctx context.Context, tasks []score.Task, reason string) (Result, error) {
	if err := e.store.SetPendingSync(ctx, tasks, e.now()); err != nil {
		return Result{Pending: true, Reason: reason},
			fmt.Errorf("saving pending payload: %w", err)
	}
	return Result{Pending: true, Reason: reason}, nil
}
