package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// SubagentBackend completes prompts by running an agent CLI in print mode.
// It reuses whatever authentication the CLI already has.
type SubagentBackend struct {
	// cliPath is the path to the CLI executable (e.g., "claude")
	cliPath string

	// model specifies which model to use for subagent requests
	model string

	once      sync.Once
	available bool
}

// SubagentConfig configures the subagent backend.
type SubagentConfig struct {
	// CLIPath overrides the default CLI path detection
	CLIPath string

	// Model specifies the model to use (default: "sonnet")
	Model string
}

// NewSubagentBackend creates a SubagentBackend with the given configuration.
func NewSubagentBackend(cfg SubagentConfig) *SubagentBackend {
	if cfg.Model == "" {
		cfg.Model = "sonnet"
	}
	return &SubagentBackend{
		cliPath: cfg.CLIPath,
		model:   cfg.Model,
	}
}

// Available reports whether an agent CLI could be located.
func (s *SubagentBackend) Available() bool {
	s.once.Do(func() {
		if path := findCLI(s.cliPath); path != "" {
			s.cliPath = path
			s.available = true
		}
	})
	return s.available
}

// findCLI locates the CLI executable.
func findCLI(configured string) string {
	// If explicitly configured, use that
	if configured != "" {
		if path, err := exec.LookPath(configured); err == nil {
			return path
		}
		return ""
	}

	for _, name := range []string{"claude", "opencode", "codex"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// Complete runs the CLI with the prompt and returns its trimmed stdout.
func (s *SubagentBackend) Complete(ctx context.Context, prompt string) (string, error) {
	if !s.Available() {
		return "", &BackendError{Provider: ProviderSubagent, Err: errors.New("no agent CLI found on PATH")}
	}

	// --print for non-interactive output, -p for the prompt
	args := []string{
		"--print",
		"-p", prompt,
		"--model", s.model,
	}
	cmd := exec.CommandContext(ctx, s.cliPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", &BackendError{Provider: ProviderSubagent, Err: fmt.Errorf("subagent interrupted: %w", ctxErr)}
		}
		return "", &BackendError{Provider: ProviderSubagent, Err: fmt.Errorf("subagent failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))}
	}

	response := strings.TrimSpace(stdout.String())
	if response == "" {
		return "", &BackendError{Provider: ProviderSubagent, Err: ErrEmptyResponse}
	}
	return response, nil
}
