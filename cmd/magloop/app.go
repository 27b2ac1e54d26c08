package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nvandessel/magloop/internal/assembly"
	"github.com/nvandessel/magloop/internal/config"
	"github.com/nvandessel/magloop/internal/knowledge"
	"github.com/nvandessel/magloop/internal/llm"
	"github.com/nvandessel/magloop/internal/logging"
	"github.com/nvandessel/magloop/internal/loop"
	"github.com/nvandessel/magloop/internal/ranking"
	"github.com/nvandessel/magloop/internal/retrieval"
	"github.com/nvandessel/magloop/internal/seed"
	"github.com/nvandessel/magloop/internal/store"
	"github.com/nvandessel/magloop/internal/synth"
	"github.com/nvandessel/magloop/internal/tagging"
	"github.com/nvandessel/magloop/internal/validate"
)

// env is the configuration and logger every command starts from.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

// loadEnv resolves the config file and applies flag overrides.
func loadEnv(cmd *cobra.Command) (*env, error) {
	configPath, _ := cmd.Flags().GetString("config")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	knowledgeDir, _ := cmd.Flags().GetString("knowledge")
	debug, _ := cmd.Flags().GetBool("debug")

	lookupDir := dataDir
	if lookupDir == "" {
		if d, err := store.DefaultDataDir(); err == nil {
			lookupDir = d
		}
	}
	cfg, err := config.Resolve(configPath, lookupDir)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if knowledgeDir != "" {
		cfg.KnowledgeDir = knowledgeDir
	}
	if debug {
		cfg.Debug = true
	}

	logger, err := logging.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return &env{cfg: cfg, logger: logger}, nil
}

// loadKnowledge loads the knowledge directory. The built-in seeds stand in
// only when no directory was configured and the default one has not been
// created yet; a configured directory that is missing is a load error.
func (e *env) loadKnowledge() (*knowledge.Store, error) {
	dict := tagging.NewDictionary()
	dir := e.cfg.KnowledgeDirOrDefault()
	if _, err := os.Stat(dir); e.cfg.KnowledgeDir == "" && errors.Is(err, os.ErrNotExist) {
		e.logger.Debug("knowledge directory missing, using built-in seeds", zap.String("dir", dir))
		return seed.CoreStore(dict)
	}
	kb, err := knowledge.Load(dir, dict)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("knowledge loaded", zap.String("dir", dir), zap.Int("entries", kb.Len()))
	return kb, nil
}

// openStore opens the journal and cache database in the data directory.
func (e *env) openStore() (*store.SQLiteStore, error) {
	if err := store.EnsureDataDir(e.cfg.DataDir); err != nil {
		return nil, fmt.Errorf("failed to prepare data directory: %w", err)
	}
	return store.Open(filepath.Join(e.cfg.DataDir, store.DatabaseName))
}

// pipeline is a fully wired correction loop and the resources it holds.
type pipeline struct {
	loop      *loop.CorrectionLoop
	knowledge *knowledge.Store
	db        *store.SQLiteStore
	retriever *retrieval.Retriever
}

func (p *pipeline) Close() error {
	return errors.Join(p.retriever.Close(), p.db.Close())
}

// buildPipeline wires knowledge, retrieval, the backend, the sandbox and the
// run journal into a correction loop.
func (e *env) buildPipeline(ctx context.Context) (*pipeline, error) {
	cfg := e.cfg

	kb, err := e.loadKnowledge()
	if err != nil {
		return nil, err
	}

	exec, err := validate.NewPythonExecutor(validate.ExecutorConfig{
		Command:        cfg.Sandbox.Command,
		MaxOutputBytes: cfg.Sandbox.MaxOutputBytes,
	})
	if err != nil {
		return nil, err
	}
	if !exec.Available() {
		return nil, fmt.Errorf("python interpreter not found for sandbox command %q", cfg.Sandbox.Command)
	}

	db, err := e.openStore()
	if err != nil {
		return nil, err
	}

	var cache llm.Cache
	if cfg.Backend.CacheEnabled() {
		cache = db
	}
	backend, err := llm.New(ctx, llm.Config{
		Provider: cfg.Backend.Provider,
		Model:    cfg.Backend.Model,
		CLIPath:  cfg.Backend.CLIPath,
		APIKey:   cfg.Backend.APIKey(),
		Timeout:  cfg.Backend.Timeout,
	}, cache, e.logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	retriever, err := retrieval.New(kb, retrieval.Config{
		TopK: cfg.Loop.TopK,
		Scorer: ranking.ScorerConfig{
			TagWeight:      cfg.Retrieval.TagWeight,
			TextWeight:     cfg.Retrieval.TextWeight,
			PriorityWeight: cfg.Retrieval.PriorityWeight,
			MinRelevance:   cfg.Retrieval.MinRelevance,
		},
	}, e.logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	l := loop.New(loop.Deps{
		Retriever: retriever,
		Synthesizer: synth.New(backend, synth.Config{
			PromptTokenBudget: cfg.Synth.PromptTokenBudget,
			Groups:            assembly.DefaultGroupConfig(),
		}, e.logger),
		Validator: validate.New(exec, validate.Config{
			RequiredConstructs: cfg.Sandbox.RequiredConstructs,
			BenignPatterns:     cfg.Sandbox.BenignPatterns,
			Timeout:            cfg.Sandbox.Timeout,
		}, e.logger),
		Tags:     tagging.NewDictionary(),
		Recorder: db,
		Logger:   e.logger,
	}, loop.Config{
		MaxIterations: cfg.Loop.MaxIterations,
		TopK:          cfg.Loop.TopK,
	})

	return &pipeline{loop: l, knowledge: kb, db: db, retriever: retriever}, nil
}
