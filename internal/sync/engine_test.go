package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/hurttlocker/courseintel/internal/extract"
	"github.com/hurttlocker/courseintel/internal/score"
	"github.com/hurttlocker/courseintel/internal/store"
)

// fakeDeliverer is a scriptable consumer endpoint.
type fakeDeliverer struct {
	alive      bool
	deliverErr error
	delivered  [][]score.Task
}

func (f *fakeDeliverer) Alive(context.Context) bool { return f.alive }

func (f *fakeDeliverer) Deliver(_ context.Context, tasks []score.Task) error {
	if f.deliverErr != nil {
		return f.deliverErr
	}
	f.delivered = append(f.delivered, tasks)
	return nil
}

func newTestEngine(t *testing.T, d Deliverer) (*Engine, *store.Store) {
	t.Helper()
	st, err := store.NewStore(store.StoreConfig{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewEngine(st, d), st
}

func someTasks() []score.Task {
	return []score.Task{
		{Candidate: extract.Candidate{Title: "Essay 2", URL: "https://x/e2"}, UrgencyScore: 90},
	}
}

func TestSync_DeliversWhenConsumerAlive(t *testing.T) {
	fake := &fakeDeliverer{alive: true}
	engine, st := newTestEngine(t, fake)
	ctx := context.Background()

	res, err := engine.Sync(ctx, someTasks())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !res.Synced || res.Pending || res.Delivered != 1 {
		t.Fatalf("result = %+v", res)
	}
	if len(fake.delivered) != 1 {
		t.Fatalf("delivered %d batches", len(fake.delivered))
	}

	pending, _ := st.PendingSync(ctx)
	if pending != nil {
		t.Fatalf("successful delivery left a pending payload: %+v", pending)
	}
}

// With no consumer addressable the batch is queued, and repeated attempts
// keep exactly one pending payload.
func TestSync_QueuesWhenConsumerAbsent(t *testing.T) {
	fake := &fakeDeliverer{alive: false}
	engine, st := newTestEngine(t, fake)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := engine.Sync(ctx, someTasks())
		if err != nil {
			t.Fatalf("sync %d: %v", i, err)
		}
		if !res.Pending || res.Synced {
			t.Fatalf("result = %+v", res)
		}
		if res.Reason != "consumer not addressable" {
			t.Fatalf("reason = %q", res.Reason)
		}
	}

	pending, err := st.PendingSync(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if pending == nil || len(pending.Tasks) != 1 {
		t.Fatalf("pending = %+v", pending)
	}
}

func TestSync_QueuesOnDeliveryFailure(t *testing.T) {
	fake := &fakeDeliverer{alive: true, deliverErr: errors.New("boom")}
	engine, st := newTestEngine(t, fake)
	ctx := context.Background()

	res, err := engine.Sync(ctx, someTasks())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !res.Pending || res.Reason != "delivery failed: boom" {
		t.Fatalf("result = %+v", res)
	}
	if pending, _ := st.PendingSync(ctx); pending == nil {
		t.Fatal("expected a queued payload")
	}
}

func TestFlushPending_NothingQueued(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeDeliverer{alive: true})

	res, err := engine.FlushPending(context.Background())
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if res.Synced || res.Pending || res.Reason != "no pending payload" {
		t.Fatalf("result = %+v", res)
	}
}

func TestFlushPending_SuccessClearsPayload(t *testing.T) {
	fake := &fakeDeliverer{alive: false}
	engine, st := newTestEngine(t, fake)
	ctx := context.Background()

	if _, err := engine.Sync(ctx, someTasks()); err != nil {
		t.Fatalf("queueing sync: %v", err)
	}

	fake.alive = true
	res, err := engine.FlushPending(ctx)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if !res.Synced || res.Delivered != 1 {
		t.Fatalf("result = %+v", res)
	}
	if pending, _ := st.PendingSync(ctx); pending != nil {
		t.Fatalf("payload survived flush: %+v", pending)
	}
}

// A failed flush leaves the queued payload untouched for the next try.
func TestFlushPending_FailureKeepsPayload(t *testing.T) {
	fake := &fakeDeliverer{alive: false}
	engine, st := newTestEngine(t, fake)
	ctx := context.Background()

	if _, err := engine.Sync(ctx, someTasks()); err != nil {
		t.Fatalf("queueing sync: %v", err)
	}

	res, err := engine.FlushPending(ctx)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if !res.Pending {
		t.Fatalf("result = %+v", res)
	}
	if pending, _ := st.PendingSync(ctx); pending == nil {
		t.Fatal("payload should survive a failed flush")
	}
}
