// Package llm provides the generative backends that turn a prompt into text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Backend completes a prompt. Implementations must honour ctx cancellation
// and make no assumption about latency or determinism of the remote side.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// BackendError reports a network, auth, timeout or empty-response failure
// from a provider.
type BackendError struct {
	Provider string
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Provider, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("empty response")

// Provider names accepted by New.
const (
	ProviderSubagent = "subagent"
	ProviderGemini   = "gemini"
)

// Config selects and configures a backend.
type Config struct {
	// Provider is "subagent" or "gemini".
	Provider string

	// Model is passed to the provider as-is.
	Model string

	// CLIPath overrides CLI detection for the subagent provider.
	CLIPath string

	// APIKey authenticates the gemini provider.
	APIKey string

	// Timeout bounds every Complete call (default: 2m).
	Timeout time.Duration
}

// DefaultConfig returns a Config using the subagent provider.
func DefaultConfig() Config {
	return Config{
		Provider: ProviderSubagent,
		Model:    "sonnet",
		Timeout:  2 * time.Minute,
	}
}

// New builds the configured backend, wrapped with its timeout and, when
// cache is non-nil, a completion cache.
func New(ctx context.Context, cfg Config, cache Cache, logger *zap.Logger) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	var b Backend
	switch cfg.Provider {
	case ProviderSubagent, "":
		sub := NewSubagentBackend(SubagentConfig{CLIPath: cfg.CLIPath, Model: cfg.Model})
		if !sub.Available() {
			return nil, &BackendError{Provider: ProviderSubagent, Err: errors.New("no agent CLI found on PATH")}
		}
		b = sub
	case ProviderGemini:
		g, err := NewGenAIBackend(ctx, GenAIConfig{APIKey: cfg.APIKey, Model: cfg.Model})
		if err != nil {
			return nil, err
		}
		b = g
	default:
		return nil, fmt.Errorf("unknown backend provider %q", cfg.Provider)
	}

	b = WithTimeout(b, cfg.Timeout)
	if cache != nil {
		b = NewCachedBackend(b, cache, cfg.Provider+"/"+cfg.Model, logger)
	}
	logger.Debug("backend ready", zap.String("provider", cfg.Provider), zap.String("model", cfg.Model))
	return b, nil
}

type timeoutBackend struct {
	next    Backend
	timeout time.Duration
}

// WithTimeout bounds every call to b by d. A call that runs past d fails with
// a *BackendError wrapping context.DeadlineExceeded.
func WithTimeout(b Backend, d time.Duration) Backend {
	if d <= 0 {
		return b
	}
	return &timeoutBackend{next: b, timeout: d}
}

func (t *timeoutBackend) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	out, err := t.next.Complete(ctx, prompt)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			var be *BackendError
			if !errors.As(err, &be) {
				return "", &BackendError{Provider: "timeout", Err: fmt.Errorf("no response after %v: %w", t.timeout, context.DeadlineExceeded)}
			}
		}
		return "", err
	}
	return out, nil
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f BackendFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
