package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hurttlocker/courseintel/internal/config"
	"github.com/hurttlocker/courseintel/internal/extract"
	"github.com/hurttlocker/courseintel/internal/importer"
	"github.com/hurttlocker/courseintel/internal/mcp"
	"github.com/hurttlocker/courseintel/internal/score"
	"github.com/hurttlocker/courseintel/internal/store"
	syncer "github.com/hurttlocker/courseintel/internal/sync"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "scan":
		err = runScan(os.Args[2:])
	case "collect":
		err = runCollect(os.Args[2:])
	case "sync":
		err = runSync(os.Args[2:])
	case "pending":
		err = runPending(os.Args[2:])
	case "tasks":
		err = runTasks(os.Args[2:])
	case "links":
		err = runLinks(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "consumer":
		err = runConsumer(os.Args[2:])
	case "config":
		err = runConfig(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("courseintel %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`courseintel — LMS task extraction, scoring and sync

Usage:
  courseintel scan <file|url> [--url <location>] [--dry-run] [--json]
  courseintel collect --seed <url> [--auto]
  courseintel sync
  courseintel pending [--flush]
  courseintel tasks [--json]
  courseintel links <file|url> [--url <location>]
  courseintel serve
  courseintel consumer [--addr <host:port>] [--state <path>]
  courseintel config
  courseintel version

Global flags (scan/collect/sync/pending/tasks/serve):
  --db <path>        database path
  --consumer <url>   consumer base URL
  --config <path>    config file path`)
}

// cliFlags are the shared flags most subcommands accept.
type cliFlags struct {
	configPath  string
	dbPath      string
	consumerURL string
	seedURL     string
	pageURL     string
	rest        []string
	bools       map[string]bool
}

// parseFlags splits args into flag values and positional arguments.
// Unknown --flags with no value slot land in bools.
func parseFlags(args []string) cliFlags {
	f := cliFlags{bools: map[string]bool{}}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		next := func() string {
			if i+1 < len(args) {
				i++
				return args[i]
			}
			return ""
		}
		switch {
		case arg == "--config":
			f.configPath = next()
		case arg == "--db":
			f.dbPath = next()
		case arg == "--consumer":
			f.consumerURL = next()
		case arg == "--seed":
			f.seedURL = next()
		case arg == "--url":
			f.pageURL = next()
		case strings.HasPrefix(arg, "--"):
			f.bools[strings.TrimPrefix(arg, "--")] = true
		default:
			f.rest = append(f.rest, arg)
		}
	}
	return f
}

// openPipeline resolves config and wires the store, sync engine, fetcher
// and collector.
func openPipeline(f cliFlags) (*store.Store, *syncer.Engine, *syncer.Collector, config.ResolvedConfig, error) {
	cfg, err := config.Resolve(config.ResolveOptions{
		ConfigPath:     f.configPath,
		CLIDBPath:      f.dbPath,
		CLIConsumerURL: f.consumerURL,
		CLISeedURL:     f.seedURL,
	})
	if err != nil {
		return nil, nil, nil, cfg, err
	}

	st, err := store.NewStore(store.StoreConfig{DBPath: cfg.DBPath.Value})
	if err != nil {
		return nil, nil, nil, cfg, fmt.Errorf("opening store: %w", err)
	}

	consumerURL := cfg.ConsumerURL.Value
	if settings, err := st.Settings(context.Background()); err == nil && f.consumerURL == "" {
		if settings.ConsumerURL != "" && cfg.ConsumerURL.Source == config.SourceDefault {
			consumerURL = settings.ConsumerURL
		}
	}

	engine := syncer.NewEngine(st, syncer.NewHTTPConsumer(consumerURL))
	fetcher := syncer.NewFetcher()
	fetcher.Timeout = time.Duration(cfg.FetchTimeoutSec.Int(15)) * time.Second
	collector := syncer.NewCollector(st, engine, fetcher)
	collector.Cooldown = time.Duration(cfg.CooldownMinutes.Int(15)) * time.Minute

	return st, engine, collector, cfg, nil
}

// loadPage reads a page from a local file or an HTTP address.
func loadPage(ctx context.Context, target, urlOverride string) (*extract.Page, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		fetcher := syncer.NewFetcher()
		return fetcher.FetchPage(ctx, target)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", target, err)
	}
	pageURL := urlOverride
	return extract.ParsePage(string(data), pageURL)
}

func runScan(args []string) error {
	f := parseFlags(args)
	if len(f.rest) == 0 {
		return fmt.Errorf("usage: courseintel scan <file|url> [--url <location>] [--dry-run] [--json]")
	}

	ctx := context.Background()
	page, err := loadPage(ctx, f.rest[0], f.pageURL)
	if err != nil {
		return err
	}

	scan := extract.ScanPage(page)
	tasks := score.ScoreAll(scan.Candidates, time.Now())

	if f.bools["json"] {
		out := map[string]any{"source": scan.Source, "tasks": tasks}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
	} else {
		fmt.Printf("Scanned %s (%s): %d candidates\n", f.rest[0], scan.Source, len(tasks))
		for _, t := range tasks {
			due := "no due date"
			if !t.DueAt.IsZero() {
				due = t.DueAt.Format("Jan 2 15:04")
			}
			fmt.Printf("  [%3d] %-10s %s (%s)\n", t.UrgencyScore, t.TypeGuess, t.Title, due)
		}
	}

	if f.bools["dry-run"] {
		return nil
	}

	st, _, _, _, err := openPipeline(f)
	if err != nil {
		return err
	}
	defer st.Close()

	merge, err := st.MergeTasks(ctx, tasks)
	if err != nil {
		return err
	}
	fmt.Printf("Merged: %d added, %d updated, %d dropped (store: %d)\n",
		merge.Added, merge.Updated, merge.Dropped, merge.Total)
	return nil
}

func runCollect(args []string) error {
	f := parseFlags(args)
	st, _, collector, cfg, err := openPipeline(f)
	if err != nil {
		return err
	}
	defer st.Close()

	seed := cfg.SeedURL.Value
	if seed == "" {
		return fmt.Errorf("no seed URL: pass --seed or set seed_url in config")
	}

	ctx := context.Background()
	var res syncer.CollectResult
	if f.bools["auto"] {
		res, err = collector.AutoCollect(ctx, seed)
	} else {
		res, err = collector.Collect(ctx, seed)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Scanned %d pages, %d candidates (%d added, %d updated)\n",
		res.PagesScanned, res.Candidates, res.Added, res.Updated)
	for url, msg := range res.PageErrors {
		fmt.Fprintf(os.Stderr, "  warning: %s: %s\n", url, msg)
	}
	printSyncResult(res.Sync)
	return nil
}

func runSync(args []string) error {
	f := parseFlags(args)
	st, engine, _, _, err := openPipeline(f)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := engine.SyncStored(context.Background())
	if err != nil {
		return err
	}
	printSyncResult(res)
	return nil
}

func runPending(args []string) error {
	f := parseFlags(args)
	st, engine, _, _, err := openPipeline(f)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	if f.bools["flush"] {
		res, err := engine.FlushPending(ctx)
		if err != nil {
			return err
		}
		printSyncResult(res)
		return nil
	}

	pending, err := st.PendingSync(ctx)
	if err != nil {
		return err
	}
	if pending == nil {
		fmt.Println("No pending payload.")
		return nil
	}
	fmt.Printf("Pending payload: %d tasks, saved %s\n",
		len(pending.Tasks), pending.SavedAt.Format(time.RFC3339))
	return nil
}

func runTasks(args []string) error {
	f := parseFlags(args)
	st, _, _, _, err := openPipeline(f)
	if err != nil {
		return err
	}
	defer st.Close()

	tasks, err := st.TaskList(context.Background())
	if err != nil {
		return err
	}

	if f.bools["json"] {
		data, _ := json.MarshalIndent(tasks, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("%d tasks\n", len(tasks))
	for _, t := range tasks {
		due := "-"
		if !t.DueAt.IsZero() {
			due = t.DueAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("  [%3d] %-16s %-10s %s\n", t.UrgencyScore, due, t.TypeGuess, t.Title)
	}
	return nil
}

func runLinks(args []string) error {
	f := parseFlags(args)
	if len(f.rest) == 0 {
		return fmt.Errorf("usage: courseintel links <file|url>")
	}

	page, err := loadPage(context.Background(), f.rest[0], f.pageURL)
	if err != nil {
		return err
	}
	for _, link := range extract.CourseLinks(page) {
		fmt.Println(link)
	}
	return nil
}

func runServe(args []string) error {
	f := parseFlags(args)
	st, engine, collector, _, err := openPipeline(f)
	if err != nil {
		return err
	}
	defer st.Close()

	return mcp.ServeStdio(mcp.ServerConfig{
		Store:     st,
		Engine:    engine,
		Collector: collector,
		Version:   version,
	})
}

func runConsumer(args []string) error {
	addr := ":8787"
	statePath := ""
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--addr":
			if i+1 < len(args) {
				i++
				addr = args[i]
			}
		case "--state":
			if i+1 < len(args) {
				i++
				statePath = args[i]
			}
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}
	if statePath == "" {
		home, _ := os.UserHomeDir()
		statePath = home + "/.courseintel/consumer.json"
	}

	srv := importer.NewServer(importer.NewJSONStore(statePath))
	fmt.Printf("Consumer listening on %s (state: %s)\n", addr, statePath)
	return http.ListenAndServe(addr, srv.Handler())
}

func runConfig(args []string) error {
	f := parseFlags(args)
	cfg, err := config.Resolve(config.ResolveOptions{
		ConfigPath:     f.configPath,
		CLIDBPath:      f.dbPath,
		CLIConsumerURL: f.consumerURL,
		CLISeedURL:     f.seedURL,
	})
	if err != nil {
		return err
	}
	data, _ := json.MarshalIndent(cfg, "", "  ")
	fmt.Println(string(data))
	return nil
}

func printSyncResult(res syncer.Result) {
	switch {
	case res.Synced:
		fmt.Printf("Synced %d tasks to consumer.\n", res.Delivered)
	case res.Pending:
		fmt.Printf("Consumer unavailable, payload queued (%s). Run 'courseintel pending --flush' later.\n", res.Reason)
	default:
		fmt.Printf("Nothing to sync: %s\n", res.Reason)
	}
}
