package sync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hurttlocker/courseintel/internal/extract"
)

// Fetch timing defaults. A course page is polled at a short fixed interval
// until it yields a parseable non-empty document, bounded by a timeout
// after which that address is abandoned.
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultFetchTimeout = 15 * time.Second
)

// Fetcher loads remote course pages for scanning. Pages are fetched one
// at a time; the collector never runs two fetches concurrently.
type Fetcher struct {
	Client       *http.Client
	PollInterval time.Duration
	Timeout      time.Duration
}

// NewFetcher creates a fetcher with default timing.
func NewFetcher() *Fetcher {
	return &Fetcher{
		Client:       &http.Client{Timeout: 10 * time.Second},
		PollInterval: DefaultPollInterval,
		Timeout:      DefaultFetchTimeout,
	}
}

// FetchPage fetches and parses the document at url, retrying at the poll
// interval until it parses with a non-empty body or the timeout expires.
// A timeout abandons this address with an explicit error; it never affects
// results already merged from other addresses.
func (f *Fetcher) FetchPage(ctx context.Context, url string) (*extract.Page, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout())
	defer cancel()

	var lastErr error
	for {
		page, err := f.fetchOnce(ctx, url)
		if err == nil {
			return page, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("page %s did not load in time: %w", url, lastErr)
		case <-time.After(f.pollInterval()):
		}
	}
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (*extract.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	page, err := extract.ParsePage(string(body), url)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	if extract.NormalizeText(page.Doc.Find("body").Text()) == "" {
		return nil, fmt.Errorf("document body still empty")
	}
	return page, nil
}

func (f *Fetcher) timeout() time.Duration {
	if f.Timeout > 0 {
		return f.Timeout
	}
	return DefaultFetchTimeout
}

func (f *Fetcher) pollInterval() time.Duration {
	if f.PollInterval > 0 {
		return f.PollInterval
	}
	return DefaultPollInterval
}
