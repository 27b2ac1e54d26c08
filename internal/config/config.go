// Package config loads the magloop configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that points at a config file.
const EnvConfigPath = "MAGLOOP_CONFIG"

// FileName is the config file looked up in the data directory.
const FileName = "config.yaml"

// Config holds all configuration for magloop.
type Config struct {
	Debug        bool            `yaml:"debug"`
	KnowledgeDir string          `yaml:"knowledge_dir"`
	DataDir      string          `yaml:"data_dir"`
	Loop         LoopConfig      `yaml:"loop"`
	Retrieval    RetrievalConfig `yaml:"retrieval"`
	Backend      BackendConfig   `yaml:"backend"`
	Sandbox      SandboxConfig   `yaml:"sandbox"`
	Synth        SynthConfig     `yaml:"synth"`
}

// LoopConfig holds correction loop settings.
type LoopConfig struct {
	MaxIterations int `yaml:"max_iterations"`
	TopK          int `yaml:"top_k"`
	Concurrency   int `yaml:"concurrency"`
}

// RetrievalConfig holds relevance scoring weights.
type RetrievalConfig struct {
	TagWeight      float64 `yaml:"tag_weight"`
	TextWeight     float64 `yaml:"text_weight"`
	PriorityWeight float64 `yaml:"priority_weight"`
	MinRelevance   float64 `yaml:"min_relevance"`
}

// BackendConfig selects and configures the generative backend.
type BackendConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	CLIPath  string `yaml:"cli_path"`

	// APIKeyEnv names the environment variable holding the API key.
	// The key itself is never stored in the file.
	APIKeyEnv string        `yaml:"api_key_env"`
	Timeout   time.Duration `yaml:"timeout"`
	Cache     *bool         `yaml:"cache"`
}

// CacheEnabled reports whether completions are cached; defaults to true when unset.
func (b *BackendConfig) CacheEnabled() bool {
	if b.Cache != nil {
		return *b.Cache
	}
	return true
}

// APIKey resolves the key from the environment.
func (b *BackendConfig) APIKey() string {
	if b.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(b.APIKeyEnv)
}

// SandboxConfig configures candidate execution and validation.
type SandboxConfig struct {
	Command            string        `yaml:"command"`
	Timeout            time.Duration `yaml:"timeout"`
	MaxOutputBytes     int           `yaml:"max_output_bytes"`
	RequiredConstructs []string      `yaml:"required_constructs"`
	BenignPatterns     []string      `yaml:"benign_patterns"`
}

// SynthConfig configures prompt assembly.
type SynthConfig struct {
	PromptTokenBudget int `yaml:"prompt_token_budget"`
}

// Default returns a config with every default applied and paths under the
// user's home directory.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// Load reads and parses the config file at path, applies defaults and
// expands paths relative to the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	configDir := filepath.Dir(path)
	cfg.KnowledgeDir = expandPath(cfg.KnowledgeDir, configDir)
	cfg.DataDir = expandPath(cfg.DataDir, configDir)
	ApplyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Resolve loads the config named by explicit, else by MAGLOOP_CONFIG, else
// dataDir/config.yaml if it exists. With no file at all it returns Default().
func Resolve(explicit, dataDir string) (*Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return Load(env)
	}
	if dataDir != "" {
		path := filepath.Join(dataDir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("checking %s: %w", path, err)
		}
	}
	return Default(), nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.Backend.Provider {
	case "subagent", "gemini":
	default:
		return fmt.Errorf("backend.provider: unknown provider %q (want subagent or gemini)", c.Backend.Provider)
	}
	if c.Loop.MaxIterations < 0 {
		return fmt.Errorf("loop.max_iterations: must not be negative, got %d", c.Loop.MaxIterations)
	}
	if c.Loop.TopK < 0 {
		return fmt.Errorf("loop.top_k: must not be negative, got %d", c.Loop.TopK)
	}
	r := c.Retrieval
	if r.TagWeight < 0 || r.TextWeight < 0 || r.PriorityWeight < 0 {
		return errors.New("retrieval: weights must not be negative")
	}
	if r.MinRelevance < 0 || r.MinRelevance > 1 {
		return fmt.Errorf("retrieval.min_relevance: must be within [0,1], got %g", r.MinRelevance)
	}
	if c.Backend.Timeout < 0 || c.Sandbox.Timeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if strings.TrimSpace(c.Sandbox.Command) == "" {
		return errors.New("sandbox.command: must not be empty")
	}
	return nil
}

// KnowledgeDirOrDefault returns the configured knowledge directory, or
// "knowledge" under the data directory.
func (c *Config) KnowledgeDirOrDefault() string {
	if c.KnowledgeDir != "" {
		return c.KnowledgeDir
	}
	return filepath.Join(c.DataDir, "knowledge")
}

// expandPath converts a path to absolute. "~/" is the home directory; other
// relative paths are relative to configDir.
func expandPath(path, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
		return path
	}
	return filepath.Join(configDir, path)
}
