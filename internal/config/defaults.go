package config

import (
	"os"
	"path/filepath"
	"time"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.DataDir = filepath.Join(home, ".magloop")
		} else {
			cfg.DataDir = ".magloop"
		}
	}
	if cfg.Loop.MaxIterations == 0 {
		cfg.Loop.MaxIterations = 4
	}
	if cfg.Loop.TopK == 0 {
		cfg.Loop.TopK = 6
	}
	if cfg.Loop.Concurrency == 0 {
		cfg.Loop.Concurrency = 2
	}
	r := &cfg.Retrieval
	if r.TagWeight == 0 && r.TextWeight == 0 && r.PriorityWeight == 0 {
		r.TagWeight, r.TextWeight, r.PriorityWeight = 0.5, 0.4, 0.1
	}
	if r.MinRelevance == 0 {
		r.MinRelevance = 0.15
	}
	if cfg.Backend.Provider == "" {
		cfg.Backend.Provider = "subagent"
	}
	if cfg.Backend.APIKeyEnv == "" && cfg.Backend.Provider == "gemini" {
		cfg.Backend.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 2 * time.Minute
	}
	if cfg.Sandbox.Command == "" {
		cfg.Sandbox.Command = "python3 -I -B"
	}
	if cfg.Sandbox.Timeout == 0 {
		cfg.Sandbox.Timeout = 60 * time.Second
	}
	if cfg.Sandbox.MaxOutputBytes == 0 {
		cfg.Sandbox.MaxOutputBytes = 1 << 20
	}
	if cfg.Sandbox.RequiredConstructs == nil {
		cfg.Sandbox.RequiredConstructs = []string{"Junction", "Layer"}
	}
	if cfg.Sandbox.BenignPatterns == nil {
		cfg.Sandbox.BenignPatterns = []string{"display", "gui", "x11", "tkinter", "qt"}
	}
	if cfg.Synth.PromptTokenBudget == 0 {
		cfg.Synth.PromptTokenBudget = 6000
	}
}
