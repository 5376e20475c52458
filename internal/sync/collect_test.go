package sync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hurttlocker/courseintel/internal/store"
)

const courseHTML = `<html><head><title>ENG 101 - Assignments</title></head><body>
<h1>Assignments</h1>
<ul>
<li><a href="/a/essay2">Essay 2 Assignment</a> Due Sep 12 at 11:59 PM</li>
<li><a href="/a/quiz3">Quiz 3</a> 10 points</li>
</ul>
</body></html>`

// newCampus serves a seed page linking one course page.
func newCampus(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/seed", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><head><title>My Courses</title></head><body><h1>Courses</h1><a href="` +
			srv.URL + `/course1">ENG 101 Course</a></body></html>`))
	})
	mux.HandleFunc("/course1", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(courseHTML))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestCollector(t *testing.T, d Deliverer) (*Collector, *store.Store) {
	t.Helper()
	st, err := store.NewStore(store.StoreConfig{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	fetcher := NewFetcher()
	fetcher.Timeout = 2 * time.Second
	fetcher.PollInterval = 50 * time.Millisecond

	return NewCollector(st, NewEngine(st, d), fetcher), st
}

func TestCollect_ScansSeedAndCourses(t *testing.T) {
	campus := newCampus(t)
	collector, st := newTestCollector(t, &fakeDeliverer{alive: false})

	res, err := collector.Collect(context.Background(), campus.URL+"/seed")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if res.PagesScanned != 2 {
		t.Fatalf("pages scanned = %d, want 2", res.PagesScanned)
	}
	if res.Added != 2 {
		t.Fatalf("added = %d, want 2 (got %+v)", res.Added, res)
	}
	if !res.Sync.Pending {
		t.Fatalf("expected queued sync, got %+v", res.Sync)
	}

	tasks, err := st.Tasks(context.Background())
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("stored %d tasks, want 2", len(tasks))
	}
}

func TestCollect_UnreachablePageIsNonFatal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/seed", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><head><title>My Courses</title></head><body><h1>Courses</h1>` +
			`<a href="http://127.0.0.1:1/dead">Dead Course</a></body></html>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	collector, _ := newTestCollector(t, &fakeDeliverer{alive: false})
	collector.Fetcher.Timeout = 200 * time.Millisecond

	res, err := collector.Collect(context.Background(), srv.URL+"/seed")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if res.PagesScanned != 1 {
		t.Fatalf("pages scanned = %d, want the seed only", res.PagesScanned)
	}
	if len(res.PageErrors) != 1 {
		t.Fatalf("page errors = %v", res.PageErrors)
	}
}

func TestAutoCollect_Cooldown(t *testing.T) {
	campus := newCampus(t)
	collector, _ := newTestCollector(t, &fakeDeliverer{alive: true})

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	collector.now = func() time.Time { return clock }
	collector.Engine.now = func() time.Time { return clock }

	ctx := context.Background()
	seed := campus.URL + "/seed"

	if _, err := collector.AutoCollect(ctx, seed); err != nil {
		t.Fatalf("first auto run: %v", err)
	}

	clock = base.Add(5 * time.Minute)
	if _, err := collector.AutoCollect(ctx, seed); !errors.Is(err, ErrCooldown) {
		t.Fatalf("expected cooldown rejection, got %v", err)
	}

	clock = base.Add(20 * time.Minute)
	if _, err := collector.AutoCollect(ctx, seed); err != nil {
		t.Fatalf("post-cooldown run: %v", err)
	}
}

func TestAutoCollect_InFlightGuard(t *testing.T) {
	collector, _ := newTestCollector(t, &fakeDeliverer{alive: true})
	collector.inFlight.Store(true)

	_, err := collector.AutoCollect(context.Background(), "http://unused.example/seed")
	if !errors.Is(err, ErrCollectInProgress) {
		t.Fatalf("expected in-progress rejection, got %v", err)
	}
}

func TestFetchPage_RetriesUntilBodyAppears(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.Write([]byte(`<html><body></body></html>`)) // still loading
			return
		}
		w.Write([]byte(`<html><body><p>ready</p></body></html>`))
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher()
	f.PollInterval = 10 * time.Millisecond
	f.Timeout = 2 * time.Second

	page, err := f.FetchPage(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := page.Doc.Find("p").Text(); got != "ready" {
		t.Fatalf("body = %q", got)
	}
	if hits.Load() < 3 {
		t.Fatalf("expected at least 3 attempts, got %d", hits.Load())
	}
}

func TestFetchPage_TimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher()
	f.PollInterval = 10 * time.Millisecond
	f.Timeout = 100 * time.Millisecond

	if _, err := f.FetchPage(context.Background(), srv.URL); err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestHTTPConsumer_AliveAndDeliver(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("POST /api/import", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"ok":true,"imported":1}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	consumer := NewHTTPConsumer(srv.URL)
	ctx := context.Background()
	if !consumer.Alive(ctx) {
		t.Fatal("expected live consumer")
	}
	if err := consumer.Deliver(ctx, someTasks()); err != nil {
		t.Fatalf("deliver: %v", err)
	}
}

func TestHTTPConsumer_RejectedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"ok":false,"error":"schema mismatch"}`))
	}))
	t.Cleanup(srv.Close)

	consumer := NewHTTPConsumer(srv.URL)
	if err := consumer.Deliver(context.Background(), someTasks()); err == nil {
		t.Fatal("expected rejection error")
	}
}

func TestHTTPConsumer_DeadPort(t *testing.T) {
	consumer := NewHTTPConsumer("http://127.0.0.1:1")
	if consumer.Alive(context.Background()) {
		t.Fatal("dead port reported alive")
	}
}
