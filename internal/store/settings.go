package store

import (
	"context"
	"fmt"
)

// DefaultConsumerURL is where the consumer process is expected to live
// when nothing is configured.
const DefaultConsumerURL = "http://127.0.0.1:8787"

// Settings is the persisted runtime configuration: where the consumer
// lives and where auto-collect starts enumerating courses.
type Settings struct {
	ConsumerURL string `json:"consumer_url"`
	SeedURL     string `json:"seed_url,omitempty"`
}

// Settings returns the stored settings. Missing or malformed records
// yield defaults, never an error.
func (s *Store) Settings(ctx context.Context) (Settings, error) {
	settings := Settings{ConsumerURL: DefaultConsumerURL}
	if _, err := s.getJSON(ctx, KeySettings, &settings); err != nil {
		return settings, fmt.Errorf("loading settings: %w", err)
	}
	if settings.ConsumerURL == "" {
		settings.ConsumerURL = DefaultConsumerURL
	}
	return settings, nil
}

// SetSettings persists the settings.
func (s *Store) SetSettings(ctx context.Context, settings Settings) error {
	if err := s.Set(ctx, map[string]any{KeySettings: settings}); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
