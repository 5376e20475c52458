// Package mcp exposes the extraction pipeline as a Model Context Protocol
// server over stdio.
//
// Each tool maps one message type of the cross-context contract: page
// scanning, single-page detail extraction, course-link enumeration,
// delivery to the consumer, pending flush, and the full collect-and-sync
// run. Domain failures come back as structured tool results, never as
// transport errors.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hurttlocker/courseintel/internal/extract"
	"github.com/hurttlocker/courseintel/internal/score"
	"github.com/hurttlocker/courseintel/internal/store"
	syncer "github.com/hurttlocker/courseintel/internal/sync"
)

// ServerConfig holds the pipeline handles the tools operate on.
type ServerConfig struct {
	Store     *store.Store
	Engine    *syncer.Engine
	Collector *syncer.Collector
	Version   string
}

// storeMu serializes tool handlers. The mcp-go library dispatches handlers
// concurrently via goroutines; SQLite supports one writer at a time, and a
// scan's merge must land before a subsequent sync reads the task set.
var storeMu sync.Mutex

// boolArg reads a flag argument. Clients send either a native JSON
// boolean or the string "true"; both count.
func boolArg(req mcp.CallToolRequest, name string) bool {
	if b, err := req.RequireBool(name); err == nil {
		return b
	}
	if s, err := req.RequireString(name); err == nil {
		return s == "true"
	}
	return false
}

// NewServer creates a configured MCP server with all courseintel tools.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"courseintel",
		ver,
		server.WithToolCapabilities(false),
	)

	registerScanTool(s, cfg.Store)
	registerDetailTool(s)
	registerCourseLinksTool(s)
	registerSyncTool(s, cfg.Engine)
	registerFlushTool(s, cfg.Engine)
	registerCollectTool(s, cfg.Collector)
	registerListTasksTool(s, cfg.Store)

	return s
}

// registerScanTool handles page-scan requests: extract candidates from
// raw HTML, score them, and merge them into the authoritative store.
func registerScanTool(s *server.MCPServer, st *store.Store) {
	tool := mcp.NewTool("scan_page",
		mcp.WithDescription("Scan an LMS page for task candidates (assignments, quizzes, exams, projects, discussions). Candidates are scored and merged into the authoritative task store."),
		mcp.WithString("html",
			mcp.Required(),
			mcp.Description("Raw HTML of the page to scan"),
		),
		mcp.WithString("url",
			mcp.Description("The page's location, used for page-type signals and identity keys"),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Extract and score without merging into the store (default: false)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		storeMu.Lock()
		defer storeMu.Unlock()

		html, err := req.RequireString("html")
		if err != nil {
			return mcp.NewToolResultError("html is required"), nil
		}
		url := ""
		if u, err := req.RequireString("url"); err == nil && u != "" {
			url = u
		}
		dryRun := boolArg(req, "dry_run")

		page, err := extract.ParsePage(html, url)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("parsing page: %v", err)), nil
		}

		scan := extract.ScanPage(page)
		tasks := score.ScoreAll(scan.Candidates, time.Now())

		out := map[string]any{
			"source":     scan.Source,
			"candidates": len(tasks),
			"tasks":      tasks,
		}
		if !dryRun {
			merge, err := st.MergeTasks(ctx, tasks)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("merging: %v", err)), nil
			}
			out["merge"] = merge
		}

		data, _ := json.MarshalIndent(out, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

// registerDetailTool handles single-assignment-detail extraction requests.
func registerDetailTool(s *server.MCPServer) {
	tool := mcp.NewTool("extract_detail",
		mcp.WithDescription("Run the single-page assignment-detail extractor against raw HTML. Returns the detail fields (title, due date, prompt, rubric, requirements) or a miss."),
		mcp.WithString("html",
			mcp.Required(),
			mcp.Description("Raw HTML of the page"),
		),
		mcp.WithString("url",
			mcp.Description("The page's location"),
		),
	)

	s.AddTool(tool, func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		html, err := req.RequireString("html")
		if err != nil {
			return mcp.NewToolResultError("html is required"), nil
		}

		url := ""
		if u, err := req.RequireString("url"); err == nil && u != "" {
			url = u
		}
		page, err := extract.ParsePage(html, url)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("parsing page: %v", err)), nil
		}

		doc, source := extract.ResolveContext(page)
		detail := extract.ExtractDetailPage(doc)

		data, _ := json.MarshalIndent(map[string]any{
			"source":      source,
			"detail_page": detail,
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

// registerCourseLinksTool handles course-link-enumeration requests.
func registerCourseLinksTool(s *server.MCPServer) {
	tool := mcp.NewTool("course_links",
		mcp.WithDescription("Enumerate links on a page that look like course entry points."),
		mcp.WithString("html",
			mcp.Required(),
			mcp.Description("Raw HTML of the page"),
		),
		mcp.WithString("url",
			mcp.Description("The page's location"),
		),
	)

	s.AddTool(tool, func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		html, err := req.RequireString("html")
		if err != nil {
			return mcp.NewToolResultError("html is required"), nil
		}

		url := ""
		if u, err := req.RequireString("url"); err == nil && u != "" {
			url = u
		}
		page, err := extract.ParsePage(html, url)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("parsing page: %v", err)), nil
		}

		data, _ := json.MarshalIndent(map[string]any{
			"course_links": extract.CourseLinks(page),
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

// registerSyncTool handles deliver-to-consumer requests.
func registerSyncTool(s *server.MCPServer, engine *syncer.Engine) {
	tool := mcp.NewTool("sync_tasks",
		mcp.WithDescription("Deliver the authoritative task set to the consumer. When no consumer is addressable the batch is queued as the pending payload."),
	)

	s.AddTool(tool, func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		storeMu.Lock()
		defer storeMu.Unlock()

		res, err := engine.SyncStored(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("sync error: %v", err)), nil
		}
		data, _ := json.MarshalIndent(res, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

// registerFlushTool handles flush-pending requests.
func registerFlushTool(s *server.MCPServer, engine *syncer.Engine) {
	tool := mcp.NewTool("flush_pending",
		mcp.WithDescription("Retry delivery of the queued pending payload. On success the payload is cleared; on failure it is left untouched."),
	)

	s.AddTool(tool, func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		storeMu.Lock()
		defer storeMu.Unlock()

		res, err := engine.FlushPending(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("flush error: %v", err)), nil
		}
		data, _ := json.MarshalIndent(res, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

// registerCollectTool handles run-full-collect-and-sync requests.
func registerCollectTool(s *server.MCPServer, collector *syncer.Collector) {
	tool := mcp.NewTool("collect_sync",
		mcp.WithDescription("Run the full collect-and-sync sequence: enumerate course links from a seed page, scan each course, merge, and deliver. Set auto=true to apply the unattended cooldown gate."),
		mcp.WithString("seed_url",
			mcp.Required(),
			mcp.Description("Page to start course enumeration from"),
		),
		mcp.WithBoolean("auto",
			mcp.Description("Treat this as an unattended trigger: rejected while another run is in flight or within the cooldown (default: false)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		storeMu.Lock()
		defer storeMu.Unlock()

		seedURL, err := req.RequireString("seed_url")
		if err != nil {
			return mcp.NewToolResultError("seed_url is required"), nil
		}

		auto := boolArg(req, "auto")

		var res syncer.CollectResult
		if auto {
			res, err = collector.AutoCollect(ctx, seedURL)
		} else {
			res, err = collector.Collect(ctx, seedURL)
		}
		if err != nil {
			if errors.Is(err, syncer.ErrCooldown) || errors.Is(err, syncer.ErrCollectInProgress) {
				return mcp.NewToolResultText(fmt.Sprintf(`{"skipped": true, "reason": %q}`, err.Error())), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("collect error: %v", err)), nil
		}

		data, _ := json.MarshalIndent(res, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

// registerListTasksTool exposes the authoritative task set.
func registerListTasksTool(s *server.MCPServer, st *store.Store) {
	tool := mcp.NewTool("list_tasks",
		mcp.WithDescription("List the merged task store, most urgent first."),
	)

	s.AddTool(tool, func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		storeMu.Lock()
		defer storeMu.Unlock()

		tasks, err := st.TaskList(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("listing tasks: %v", err)), nil
		}
		data, _ := json.MarshalIndent(map[string]any{
			"count": len(tasks),
			"tasks": tasks,
		}, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

// ServeStdio runs the server on stdin/stdout until the client disconnects.
func ServeStdio(cfg ServerConfig) error {
	return server.ServeStdio(NewServer(cfg))
}
