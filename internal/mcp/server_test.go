package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/magloop/internal/knowledge"
	"github.com/nvandessel/magloop/internal/models"
	"github.com/nvandessel/magloop/internal/store"
)

type stubRunner struct {
	gotText string
	gotMax  int
}

func (r *stubRunner) Run(_ context.Context, text string, maxIterations int) models.RunResult {
	r.gotText, r.gotMax = text, maxIterations
	res := models.RunResult{
		RunID:     "run-1",
		Request:   models.Request{Text: text},
		Status:    models.StatusSuccess,
		FinalCode: "from cmtj import Junction",
		Retrieved: []string{"rule-imports"},
	}
	res.Trace.Append(models.Attempt{
		Artifact: models.CandidateArtifact{Code: "x", Iteration: 0},
		Outcome:  models.Unrunnable("missing required construct: one of Junction, Layer"),
	})
	res.Trace.Append(models.Attempt{
		Artifact: models.CandidateArtifact{Code: res.FinalCode, Iteration: 1},
		Outcome:  models.Valid(),
	})
	return res
}

type stubJournal struct {
	runs map[string]models.RunResult
}

func (j *stubJournal) ListRuns(_ context.Context, limit int) ([]store.RunSummary, error) {
	var out []store.RunSummary
	for _, r := range j.runs {
		out = append(out, store.RunSummary{RunID: r.RunID, Request: r.Request.Text, Status: r.Status, Iterations: r.Iterations()})
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (j *stubJournal) GetRun(_ context.Context, id string) (*models.RunResult, error) {
	r, ok := j.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, store.ErrRunNotFound)
	}
	return &r, nil
}

type closeCounter struct{ n int }

func (c *closeCounter) Close() error {
	c.n++
	return nil
}

func testKnowledge(t *testing.T) *knowledge.Store {
	t.Helper()
	s, err := knowledge.NewStore([]models.KnowledgeEntry{
		{ID: "rule-units", Kind: models.EntryKindRule, Title: "SI units", Body: "Ms in Tesla.", Tags: []string{"units"}},
		{ID: "term-pimm", Kind: models.EntryKindGlossary, Title: "PIMM", Body: "Pulse-induced microwave magnetometry.", Tags: []string{"pimm"}},
		{ID: "example-pimm", Kind: models.EntryKindExample, Title: "PIMM spectrum", Body: "junction.runSimulation(5e-9)", Tags: []string{"pimm"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func newTestServer(t *testing.T, journal Journal) (*Server, *stubRunner) {
	t.Helper()
	runner := &stubRunner{}
	srv, err := NewServer(&Config{Runner: runner, Knowledge: testKnowledge(t), Journal: journal})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv, runner
}

func connectInMemory(t *testing.T, ctx context.Context, srv *Server) *sdkmcp.ClientSession {
	t.Helper()
	t1, t2 := sdkmcp.NewInMemoryTransports()
	ss, err := srv.MCPServer().Connect(ctx, t1, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}
	t.Cleanup(func() {
		session.Close()
		ss.Wait()
	})
	return session
}

func callTool(t *testing.T, ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any, out any) {
	t.Helper()
	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	text := toolText(res)
	if res.IsError {
		t.Fatalf("CallTool(%s) returned error: %s", name, text)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		t.Fatalf("unmarshal %s result: %v (text: %s)", name, err, text)
	}
}

func callToolExpectError(t *testing.T, ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return err.Error()
	}
	if !res.IsError {
		t.Fatalf("CallTool(%s): expected error, got %s", name, toolText(res))
	}
	return toolText(res)
}

func toolText(res *sdkmcp.CallToolResult) string {
	for _, c := range res.Content {
		if tc, ok := c.(*sdkmcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestNewServer_RequiresCollaborators(t *testing.T) {
	if _, err := NewServer(&Config{Knowledge: testKnowledge(t)}); err == nil {
		t.Error("expected error without runner")
	}
	if _, err := NewServer(&Config{Runner: &stubRunner{}}); err == nil {
		t.Error("expected error without knowledge store")
	}
}

func TestServer_ToolDiscovery(t *testing.T) {
	tests := []struct {
		name    string
		journal Journal
		want    []string
	}{
		{"without journal", nil, []string{"generate_simulation", "search_knowledge"}},
		{"with journal", &stubJournal{}, []string{"generate_simulation", "get_run", "list_runs", "search_knowledge"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.journal)
			ctx := context.Background()
			session := connectInMemory(t, ctx, srv)

			tools, err := session.ListTools(ctx, nil)
			if err != nil {
				t.Fatalf("ListTools: %v", err)
			}
			got := map[string]bool{}
			for _, tool := range tools.Tools {
				got[tool.Name] = true
			}
			if len(got) != len(tt.want) {
				t.Errorf("got %d tools, want %d", len(got), len(tt.want))
			}
			for _, name := range tt.want {
				if !got[name] {
					t.Errorf("expected tool %q not found", name)
				}
			}
		})
	}
}

func TestGenerateSimulation(t *testing.T) {
	srv, runner := newTestServer(t, nil)
	ctx := context.Background()
	session := connectInMemory(t, ctx, srv)

	var out generateOutput
	callTool(t, ctx, session, "generate_simulation", map[string]any{
		"request":        "PIMM spectrum of a PMA layer",
		"max_iterations": 3,
	}, &out)

	if runner.gotText != "PIMM spectrum of a PMA layer" || runner.gotMax != 3 {
		t.Errorf("runner got %q/%d", runner.gotText, runner.gotMax)
	}
	if out.Status != "success" || out.RunID != "run-1" || out.FinalCode == "" {
		t.Errorf("unexpected output: %+v", out)
	}
	if len(out.Attempts) != 2 || !strings.HasPrefix(out.Attempts[0].Outcome, "unrunnable: missing required construct") {
		t.Errorf("attempts = %+v", out.Attempts)
	}
	if out.Attempts[1].Outcome != "valid" {
		t.Errorf("last attempt = %+v, want valid", out.Attempts[1])
	}
}

func TestGenerateSimulation_EmptyRequest(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	ctx := context.Background()
	session := connectInMemory(t, ctx, srv)

	msg := callToolExpectError(t, ctx, session, "generate_simulation", map[string]any{"request": "  "})
	if !strings.Contains(msg, "request is required") {
		t.Errorf("error = %q", msg)
	}
}

func TestSearchKnowledge(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	ctx := context.Background()
	session := connectInMemory(t, ctx, srv)

	tests := []struct {
		name    string
		args    map[string]any
		wantIDs []string
		total   int
	}{
		{"regex across kinds", map[string]any{"pattern": "pimm"}, []string{"term-pimm", "example-pimm"}, 2},
		{"kind filter", map[string]any{"pattern": "pimm", "kind": "example"}, []string{"example-pimm"}, 1},
		{"limit", map[string]any{"pattern": ".", "limit": 1}, []string{"rule-units"}, 3},
		{"no match", map[string]any{"pattern": "skyrmion"}, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out searchOutput
			callTool(t, ctx, session, "search_knowledge", tt.args, &out)
			var ids []string
			for _, e := range out.Entries {
				ids = append(ids, e.ID)
			}
			if strings.Join(ids, ",") != strings.Join(tt.wantIDs, ",") || out.Total != tt.total {
				t.Errorf("got %v (total %d), want %v (total %d)", ids, out.Total, tt.wantIDs, tt.total)
			}
		})
	}

	for _, args := range []map[string]any{
		{"pattern": "("},
		{"pattern": "pimm", "kind": "tutorial"},
		{"pattern": ""},
	} {
		callToolExpectError(t, ctx, session, "search_knowledge", args)
	}
}

func TestRunTools(t *testing.T) {
	recorded := models.RunResult{
		RunID:      "run-7",
		Request:    models.Request{Text: "FMR"},
		Status:     models.StatusExhausted,
		FinalCode:  "raise ValueError",
		StartedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		FinishedAt: time.Date(2026, 1, 2, 3, 4, 9, 0, time.UTC),
	}
	failed := models.Invalid(models.Diagnostic{ErrorType: "ValueError", Message: "bad"}, models.CategoryRuntime)
	recorded.Diagnostic = &failed
	recorded.Trace.Append(models.Attempt{Artifact: models.CandidateArtifact{Code: recorded.FinalCode}, Outcome: failed})

	srv, _ := newTestServer(t, &stubJournal{runs: map[string]models.RunResult{"run-7": recorded}})
	ctx := context.Background()
	session := connectInMemory(t, ctx, srv)

	var list listRunsOutput
	callTool(t, ctx, session, "list_runs", map[string]any{}, &list)
	if len(list.Runs) != 1 || list.Runs[0].RunID != "run-7" || list.Runs[0].Iterations != 1 {
		t.Errorf("list_runs = %+v", list.Runs)
	}

	var got getRunOutput
	callTool(t, ctx, session, "get_run", map[string]any{"run_id": "run-7"}, &got)
	if got.Run.Status != "exhausted" || got.Run.StartedAt != "2026-01-02T03:04:05Z" {
		t.Errorf("get_run summary = %+v", got.Run)
	}
	if got.Diagnostic != failed.Summary() || len(got.Attempts) != 1 {
		t.Errorf("get_run = %+v", got)
	}

	msg := callToolExpectError(t, ctx, session, "get_run", map[string]any{"run_id": "nope"})
	if !strings.Contains(msg, store.ErrRunNotFound.Error()) {
		t.Errorf("error = %q", msg)
	}
}

func TestClose_Idempotent(t *testing.T) {
	c := &closeCounter{}
	srv, err := NewServer(&Config{Runner: &stubRunner{}, Knowledge: testKnowledge(t), Closer: c})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := srv.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}
	if c.n != 1 {
		t.Errorf("closer called %d times, want 1", c.n)
	}
}
