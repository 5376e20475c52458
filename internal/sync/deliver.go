// Package sync implements the store-and-forward delivery protocol between
// the extraction side and the consumer process.
//
// A sync attempt either hands the batch to a live consumer or persists it
// as the single pending payload for a later flush. Delivery failures are
// never fatal: they resolve to a queued state and a structured outcome.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hurttlocker/courseintel/internal/score"
)

// Deliverer abstracts the consumer process: can it be reached right now,
// and can it take a batch.
type Deliverer interface {
	// Alive reports whether a consumer is currently addressable.
	Alive(ctx context.Context) bool

	// Deliver hands a batch to the consumer. An error means the consumer
	// did not acknowledge; the caller queues the payload.
	Deliver(ctx context.Context, tasks []score.Task) error
}

// HTTPConsumer delivers batches to the consumer's HTTP import endpoint.
type HTTPConsumer struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPConsumer creates a deliverer for the consumer at baseURL.
func NewHTTPConsumer(baseURL string) *HTTPConsumer {
	return &HTTPConsumer{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Alive probes the consumer's health endpoint.
func (h *HTTPConsumer) Alive(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.BaseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// importAck is the consumer's acknowledgement shape.
type importAck struct {
	OK       bool   `json:"ok"`
	Imported int    `json:"imported"`
	Error    string `json:"error,omitempty"`
}

// Deliver posts the batch as {"tasks": [...]} and requires {"ok": true}.
func (h *HTTPConsumer) Deliver(ctx context.Context, tasks []score.Task) error {
	body, err := json.Marshal(map[string]any{"tasks": tasks})
	if err != nil {
		return fmt.Errorf("encoding batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		h.BaseURL+"/api/import", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building import request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		return fmt.Errorf("posting batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("consumer returned status %d", resp.StatusCode)
	}

	var ack importAck
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return fmt.Errorf("decoding acknowledgement: %w", err)
	}
	if !ack.OK {
		if ack.Error != "" {
			return fmt.Errorf("consumer rejected batch: %s", ack.Error)
		}
		return fmt.Errorf("consumer did not acknowledge batch")
	}
	return nil
}
