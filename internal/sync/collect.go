package sync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hurttlocker/courseintel/internal/extract"
	"github.com/hurttlocker/courseintel/internal/score"
	"github.com/hurttlocker/courseintel/internal/store"
)

// DefaultCooldown is the minimum interval between unattended auto-collect
// runs.
const DefaultCooldown = 15 * time.Minute

// DefaultMaxCourses bounds how many course pages one run will scan.
const DefaultMaxCourses = 8

var (
	// ErrCollectInProgress rejects a trigger arriving while a run is
	// already in flight. Triggers are rejected, not queued.
	ErrCollectInProgress = errors.New("collect already in progress")

	// ErrCooldown rejects an auto trigger arriving before the cooldown
	// since the last completed run has elapsed.
	ErrCooldown = errors.New("auto-collect cooldown not elapsed")
)

// CollectResult summarizes a collect-and-sync run.
type CollectResult struct {
	PagesScanned int               `json:"pages_scanned"`
	Candidates   int               `json:"candidates"`
	Added        int               `json:"added"`
	Updated      int               `json:"updated"`
	Dropped      int               `json:"dropped"`
	Sync         Result            `json:"sync"`
	PageErrors   map[string]string `json:"page_errors,omitempty"`
}

// Collector wraps the whole collect-and-sync sequence: enumerate course
// links from a seed page, fetch and scan each one sequentially, score,
// merge into the authoritative store, and sync the merged set.
type Collector struct {
	Store      *store.Store
	Engine     *Engine
	Fetcher    *Fetcher
	Cooldown   time.Duration
	MaxCourses int

	now      func() time.Time
	inFlight atomic.Bool
}

// NewCollector creates a collector with default cooldown and bounds.
func NewCollector(st *store.Store, engine *Engine, fetcher *Fetcher) *Collector {
	return &Collector{
		Store:      st,
		Engine:     engine,
		Fetcher:    fetcher,
		Cooldown:   DefaultCooldown,
		MaxCourses: DefaultMaxCourses,
		now:        time.Now,
	}
}

// AutoCollect is the unattended trigger: serialized by an in-flight guard
// and gated by the cooldown since the last completed run. The cooldown
// timestamp advances only after a run completes.
func (c *Collector) AutoCollect(ctx context.Context, seedURL string) (CollectResult, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return CollectResult{}, ErrCollectInProgress
	}
	defer c.inFlight.Store(false)

	last, err := c.Store.LastAutoRun(ctx)
	if err != nil {
		return CollectResult{}, err
	}
	if !last.IsZero() && c.now().Sub(last) < c.cooldown() {
		return CollectResult{}, ErrCooldown
	}

	res, err := c.run(ctx, seedURL)
	if err != nil {
		return res, err
	}
	if err := c.Store.SetLastAutoRun(ctx, c.now()); err != nil {
		return res, fmt.Errorf("recording auto-run time: %w", err)
	}
	return res, nil
}

// Collect is the manual trigger: not subject to the cooldown. It may race
// with an in-progress auto run; each attempt's outcome independently sets
// or clears the single pending slot, so the at-most-one-pending invariant
// holds regardless.
func (c *Collector) Collect(ctx context.Context, seedURL string) (CollectResult, error) {
	return c.run(ctx, seedURL)
}

func (c *Collector) run(ctx context.Context, seedURL string) (CollectResult, error) {
	res := CollectResult{PageErrors: map[string]string{}}

	seed, err := c.Fetcher.FetchPage(ctx, seedURL)
	if err != nil {
		return res, fmt.Errorf("fetching seed page: %w", err)
	}

	pages := []string{seedURL}
	for _, link := range extract.CourseLinks(seed) {
		if link != seedURL {
			pages = append(pages, link)
		}
	}
	if limit := c.maxCourses(); len(pages) > limit {
		pages = pages[:limit]
	}

	var candidates []extract.Candidate
	for i, url := range pages {
		var page *extract.Page
		if i == 0 {
			page = seed
		} else {
			// Pages load strictly one at a time. A timeout abandons this
			// address only.
			page, err = c.Fetcher.FetchPage(ctx, url)
			if err != nil {
				res.PageErrors[url] = err.Error()
				continue
			}
		}
		scan := extract.ScanPage(page)
		candidates = append(candidates, scan.Candidates...)
		res.PagesScanned++
	}
	res.Candidates = len(candidates)

	merge, err := c.Store.MergeTasks(ctx, score.ScoreAll(candidates, c.now()))
	if err != nil {
		return res, fmt.Errorf("merging scan results: %w", err)
	}
	res.Added = merge.Added
	res.Updated = merge.Updated
	res.Dropped = merge.Dropped

	syncRes, err := c.Engine.SyncStored(ctx)
	if err != nil {
		return res, err
	}
	res.Sync = syncRes
	return res, nil
}

func (c *Collector) cooldown() time.Duration {
	if c.Cooldown > 0 {
		return c.Cooldown
	}
	return DefaultCooldown
}

func (c *Collector) maxCourses() int {
	if c.MaxCourses > 0 {
		return c.MaxCourses
	}
	return DefaultMaxCourses
}
