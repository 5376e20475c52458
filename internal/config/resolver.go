// Package config resolves runtime configuration with the precedence
// CLI flag > environment > config file > default, tracking where each
// value came from.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ValueSource string

const (
	SourceDefault ValueSource = "default"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
)

// ResolvedValue is a configuration value plus its provenance.
type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries CLI-level overrides into resolution.
type ResolveOptions struct {
	ConfigPath     string
	CLIDBPath      string
	CLIConsumerURL string
	CLISeedURL     string
}

// ResolvedConfig is the fully resolved runtime configuration.
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath          ResolvedValue `json:"db_path"`
	ConsumerURL     ResolvedValue `json:"consumer_url"`
	SeedURL         ResolvedValue `json:"seed_url"`
	CooldownMinutes ResolvedValue `json:"cooldown_minutes"`
	FetchTimeoutSec ResolvedValue `json:"fetch_timeout_seconds"`
}

type fileConfig struct {
	DBPath          string `yaml:"db_path"`
	ConsumerURL     string `yaml:"consumer_url"`
	SeedURL         string `yaml:"seed_url"`
	CooldownMinutes int    `yaml:"cooldown_minutes"`
	FetchTimeoutSec int    `yaml:"fetch_timeout_seconds"`
}

// DefaultConfigPath is ~/.courseintel/config.yaml.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".courseintel", "config.yaml")
}

// Resolve loads and layers configuration. A missing config file is fine;
// a malformed one is an error.
func Resolve(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{
		ConfigPath:      path,
		DBPath:          ResolvedValue{Source: SourceDefault},
		ConsumerURL:     ResolvedValue{Value: "http://127.0.0.1:8787", Source: SourceDefault},
		SeedURL:         ResolvedValue{Source: SourceDefault},
		CooldownMinutes: ResolvedValue{Value: "15", Source: SourceDefault},
		FetchTimeoutSec: ResolvedValue{Value: "15", Source: SourceDefault},
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}
	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.ConsumerURL, cfg.ConsumerURL, SourceConfig, path)
		apply(&out.SeedURL, cfg.SeedURL, SourceConfig, path)
		if cfg.CooldownMinutes > 0 {
			apply(&out.CooldownMinutes, strconv.Itoa(cfg.CooldownMinutes), SourceConfig, path)
		}
		if cfg.FetchTimeoutSec > 0 {
			apply(&out.FetchTimeoutSec, strconv.Itoa(cfg.FetchTimeoutSec), SourceConfig, path)
		}
	}

	applyEnv(&out.DBPath, "COURSEINTEL_DB")
	applyEnv(&out.ConsumerURL, "COURSEINTEL_CONSUMER_URL")
	applyEnv(&out.SeedURL, "COURSEINTEL_SEED_URL")
	applyEnv(&out.CooldownMinutes, "COURSEINTEL_COOLDOWN_MINUTES")
	applyEnv(&out.FetchTimeoutSec, "COURSEINTEL_FETCH_TIMEOUT_SECONDS")

	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")
	apply(&out.ConsumerURL, opts.CLIConsumerURL, SourceCLI, "--consumer")
	apply(&out.SeedURL, opts.CLISeedURL, SourceCLI, "--seed")

	return out, nil
}

func loadConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

func apply(dst *ResolvedValue, value string, source ValueSource, from string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = ResolvedValue{Value: v, Source: source, From: from}
	}
}

func applyEnv(dst *ResolvedValue, env string) {
	apply(dst, os.Getenv(env), SourceEnv, env)
}

// Int returns the value parsed as an integer, or fallback.
func (v ResolvedValue) Int(fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v.Value))
	if err != nil {
		return fallback
	}
	return n
}
