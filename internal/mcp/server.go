// Package mcp exposes simulation generation and knowledge search as MCP tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/nvandessel/magloop/internal/knowledge"
	"github.com/nvandessel/magloop/internal/models"
	"github.com/nvandessel/magloop/internal/store"
)

// DefaultSearchLimit caps search_knowledge results when no limit is given.
const DefaultSearchLimit = 20

// Runner runs one request through the correction loop.
type Runner interface {
	Run(ctx context.Context, text string, maxIterations int) models.RunResult
}

// Journal reads recorded runs.
type Journal interface {
	ListRuns(ctx context.Context, limit int) ([]store.RunSummary, error)
	GetRun(ctx context.Context, id string) (*models.RunResult, error)
}

// Config configures the MCP server.
type Config struct {
	Name    string
	Version string

	Runner    Runner
	Knowledge *knowledge.Store

	// Journal is optional; without it the run tools are not registered.
	Journal Journal

	// Closer is released by Close.
	Closer io.Closer

	Logger *zap.Logger
}

// Server wraps the MCP SDK server.
type Server struct {
	server    *sdkmcp.Server
	runner    Runner
	knowledge *knowledge.Store
	journal   Journal
	closer    io.Closer
	logger    *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewServer creates a server with its tools registered.
func NewServer(cfg *Config) (*Server, error) {
	if cfg.Runner == nil {
		return nil, errors.New("mcp: runner is required")
	}
	if cfg.Knowledge == nil {
		return nil, errors.New("mcp: knowledge store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	name, version := cfg.Name, cfg.Version
	if name == "" {
		name = "magloop"
	}
	if version == "" {
		version = "dev"
	}

	s := &Server{
		server:    sdkmcp.NewServer(&sdkmcp.Implementation{Name: name, Version: version}, nil),
		runner:    cfg.Runner,
		knowledge: cfg.Knowledge,
		journal:   cfg.Journal,
		closer:    cfg.Closer,
		logger:    logger,
	}
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying SDK server, for connecting custom transports.
func (s *Server) MCPServer() *sdkmcp.Server { return s.server }

// Run serves over stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &sdkmcp.StdioTransport{})
}

// Close releases the configured closer. It is safe to call more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		if s.closer != nil {
			s.closeErr = s.closer.Close()
		}
	})
	return s.closeErr
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        "generate_simulation",
		Description: "Generate a cmtj simulation program for a natural-language request. The program is validated by running it and repaired until it runs or the iteration budget is spent.",
	}, s.handleGenerate)

	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        "search_knowledge",
		Description: "Search the knowledge base (rules, glossary, examples) with a case-insensitive regular expression.",
	}, s.handleSearch)

	if s.journal != nil {
		sdkmcp.AddTool(s.server, &sdkmcp.Tool{
			Name:        "list_runs",
			Description: "List recently recorded generation runs, newest first.",
		}, s.handleListRuns)

		sdkmcp.AddTool(s.server, &sdkmcp.Tool{
			Name:        "get_run",
			Description: "Get a recorded run with its full attempt trace.",
		}, s.handleGetRun)
	}
}

// --- Tool input/output types ---

type generateInput struct {
	Request       string `json:"request" jsonschema:"what to simulate, in plain language"`
	MaxIterations int    `json:"max_iterations,omitempty" jsonschema:"attempt budget (default 4, at most 10)"`
}

type attemptSummary struct {
	Iteration int    `json:"iteration"`
	Outcome   string `json:"outcome"`
}

type generateOutput struct {
	RunID      string           `json:"run_id"`
	Status     string           `json:"status"`
	FinalCode  string           `json:"final_code,omitempty"`
	Diagnostic string           `json:"diagnostic,omitempty"`
	Error      string           `json:"error,omitempty"`
	Retrieved  []string         `json:"retrieved,omitempty"`
	Attempts   []attemptSummary `json:"attempts"`
}

type searchInput struct {
	Pattern string `json:"pattern" jsonschema:"regular expression matched against id, title, tags and body"`
	Kind    string `json:"kind,omitempty" jsonschema:"only entries of this kind (rule, example, glossary)"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of entries (default 20)"`
}

type searchOutput struct {
	Entries []models.KnowledgeEntry `json:"entries"`
	Total   int                     `json:"total"`
}

type listRunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs (default 20)"`
}

type runSummary struct {
	RunID      string `json:"run_id"`
	Request    string `json:"request"`
	Status     string `json:"status"`
	Iterations int    `json:"iterations"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
}

type listRunsOutput struct {
	Runs []runSummary `json:"runs"`
}

type getRunInput struct {
	RunID string `json:"run_id" jsonschema:"run ID returned by generate_simulation or list_runs"`
}

type getRunOutput struct {
	Run        runSummary       `json:"run"`
	FinalCode  string           `json:"final_code,omitempty"`
	Diagnostic string           `json:"diagnostic,omitempty"`
	Retrieved  []string         `json:"retrieved,omitempty"`
	Attempts   []models.Attempt `json:"attempts"`
}

// --- Tool handlers ---

func (s *Server) handleGenerate(ctx context.Context, _ *sdkmcp.CallToolRequest, in generateInput) (*sdkmcp.CallToolResult, generateOutput, error) {
	if strings.TrimSpace(in.Request) == "" {
		return nil, generateOutput{}, errors.New("request is required")
	}
	res := s.runner.Run(ctx, in.Request, in.MaxIterations)
	s.logger.Info("generate_simulation finished",
		zap.String("run_id", res.RunID),
		zap.String("status", string(res.Status)))

	out := generateOutput{
		RunID:     res.RunID,
		Status:    string(res.Status),
		FinalCode: res.FinalCode,
		Error:     res.Error,
		Retrieved: res.Retrieved,
		Attempts:  []attemptSummary{},
	}
	if res.Diagnostic != nil {
		out.Diagnostic = res.Diagnostic.Summary()
	}
	for _, a := range res.Trace.Attempts() {
		out.Attempts = append(out.Attempts, attemptSummary{Iteration: a.Artifact.Iteration, Outcome: a.Outcome.Summary()})
	}
	return nil, out, nil
}

func (s *Server) handleSearch(_ context.Context, _ *sdkmcp.CallToolRequest, in searchInput) (*sdkmcp.CallToolResult, searchOutput, error) {
	if strings.TrimSpace(in.Pattern) == "" {
		return nil, searchOutput{}, errors.New("pattern is required")
	}
	var kind models.EntryKind
	if in.Kind != "" {
		k, err := models.ParseEntryKind(in.Kind)
		if err != nil {
			return nil, searchOutput{}, err
		}
		kind = k
	}
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	matches, err := s.knowledge.Search(in.Pattern)
	if err != nil {
		return nil, searchOutput{}, err
	}
	out := searchOutput{Entries: []models.KnowledgeEntry{}}
	for _, e := range matches {
		if kind != "" && e.Kind != kind {
			continue
		}
		out.Total++
		if len(out.Entries) < limit {
			out.Entries = append(out.Entries, *e)
		}
	}
	return nil, out, nil
}

func (s *Server) handleListRuns(ctx context.Context, _ *sdkmcp.CallToolRequest, in listRunsInput) (*sdkmcp.CallToolResult, listRunsOutput, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	runs, err := s.journal.ListRuns(ctx, limit)
	if err != nil {
		return nil, listRunsOutput{}, fmt.Errorf("listing runs: %w", err)
	}
	out := listRunsOutput{Runs: make([]runSummary, 0, len(runs))}
	for _, r := range runs {
		out.Runs = append(out.Runs, runSummary{
			RunID:      r.RunID,
			Request:    r.Request,
			Status:     string(r.Status),
			Iterations: r.Iterations,
			Error:      r.Error,
			StartedAt:  r.StartedAt.Format(time.RFC3339),
			FinishedAt: r.FinishedAt.Format(time.RFC3339),
		})
	}
	return nil, out, nil
}

func (s *Server) handleGetRun(ctx context.Context, _ *sdkmcp.CallToolRequest, in getRunInput) (*sdkmcp.CallToolResult, getRunOutput, error) {
	if in.RunID == "" {
		return nil, getRunOutput{}, errors.New("run_id is required")
	}
	res, err := s.journal.GetRun(ctx, in.RunID)
	if err != nil {
		return nil, getRunOutput{}, err
	}
	out := getRunOutput{
		Run: runSummary{
			RunID:      res.RunID,
			Request:    res.Request.Text,
			Status:     string(res.Status),
			Iterations: res.Iterations(),
			Error:      res.Error,
			StartedAt:  res.StartedAt.Format(time.RFC3339),
			FinishedAt: res.FinishedAt.Format(time.RFC3339),
		},
		FinalCode: res.FinalCode,
		Retrieved: res.Retrieved,
		Attempts:  res.Trace.Attempts(),
	}
	if res.Diagnostic != nil {
		out.Diagnostic = res.Diagnostic.Summary()
	}
	return nil, out, nil
}
