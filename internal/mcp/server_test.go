package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hurttlocker/courseintel/internal/store"
	syncer "github.com/hurttlocker/courseintel/internal/sync"
)

const listingHTML = `<html><body><ul>
<li><a href="https://lms.example.edu/assignments/77">Essay 2 Assignment</a> Due: Sep 12, 2026 11:59 PM</li>
</ul></body></html>`

func newTestServer(t *testing.T) (*server.MCPServer, *store.Store) {
	t.Helper()
	st, err := store.NewStore(store.StoreConfig{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	engine := syncer.NewEngine(st, syncer.NewHTTPConsumer("http://127.0.0.1:1"))
	collector := syncer.NewCollector(st, engine, syncer.NewFetcher())
	srv := NewServer(ServerConfig{Store: st, Engine: engine, Collector: collector, Version: "test"})
	return srv, st
}

// callTool invokes an MCP tool through the server's JSON-RPC dispatch, so
// arguments arrive exactly as a client would send them.
func callTool(t *testing.T, srv *server.MCPServer, name string, args map[string]any) string {
	t.Helper()

	raw, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      name,
			"arguments": args,
		},
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	result := srv.HandleMessage(context.Background(), raw)
	respBytes, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}

	var resp struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, string(respBytes))
	}
	if resp.Error != nil {
		t.Fatalf("JSON-RPC error: %d %s", resp.Error.Code, resp.Error.Message)
	}
	if resp.Result.IsError {
		t.Fatalf("tool error: %+v", resp.Result.Content)
	}
	if len(resp.Result.Content) == 0 {
		t.Fatal("no content in result")
	}
	return resp.Result.Content[0].Text
}

func storedTaskCount(t *testing.T, st *store.Store) int {
	t.Helper()
	tasks, err := st.TaskList(context.Background())
	if err != nil {
		t.Fatalf("listing tasks: %v", err)
	}
	return len(tasks)
}

func TestScanPageMergesByDefault(t *testing.T) {
	srv, st := newTestServer(t)

	text := callTool(t, srv, "scan_page", map[string]any{"html": listingHTML})
	if !strings.Contains(text, `"merge"`) {
		t.Errorf("expected a merge summary in %s", text)
	}
	if n := storedTaskCount(t, st); n != 1 {
		t.Errorf("stored %d tasks, want 1", n)
	}
}

// dry_run must hold whether the client sends a native boolean or the
// string form.
func TestScanPageDryRun(t *testing.T) {
	for name, value := range map[string]any{"native": true, "string": "true"} {
		t.Run(name, func(t *testing.T) {
			srv, st := newTestServer(t)

			text := callTool(t, srv, "scan_page", map[string]any{
				"html":    listingHTML,
				"dry_run": value,
			})
			if strings.Contains(text, `"merge"`) {
				t.Errorf("dry run produced a merge summary: %s", text)
			}
			if n := storedTaskCount(t, st); n != 0 {
				t.Errorf("dry run stored %d tasks, want 0", n)
			}
		})
	}
}

func TestBoolArg(t *testing.T) {
	mk := func(args map[string]any) mcplib.CallToolRequest {
		req := mcplib.CallToolRequest{}
		req.Params.Arguments = args
		return req
	}

	cases := []struct {
		name string
		args map[string]any
		want bool
	}{
		{"native true", map[string]any{"auto": true}, true},
		{"native false", map[string]any{"auto": false}, false},
		{"string true", map[string]any{"auto": "true"}, true},
		{"string false", map[string]any{"auto": "false"}, false},
		{"absent", map[string]any{}, false},
	}
	for _, tc := range cases {
		if got := boolArg(mk(tc.args), "auto"); got != tc.want {
			t.Errorf("%s: boolArg = %v, want %v", tc.name, got, tc.want)
		}
	}
}
