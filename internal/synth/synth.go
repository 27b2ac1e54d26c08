// Package synth turns a request and its retrieved knowledge into a candidate
// program by prompting a generative backend.
package synth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nvandessel/magloop/internal/assembly"
	"github.com/nvandessel/magloop/internal/llm"
	"github.com/nvandessel/magloop/internal/models"
)

// DefaultPromptTokenBudget bounds the prompt size. Only reference examples
// are dropped to meet it.
const DefaultPromptTokenBudget = 6000

// ErrNoCode is wrapped in a SynthesisError when the backend reply holds no program.
var ErrNoCode = errors.New("backend returned no code")

// SynthesisError reports that no candidate could be produced. It is never
// retried by the synthesizer.
type SynthesisError struct {
	Iteration int
	Err       error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed at iteration %d: %v", e.Iteration, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Config configures a Synthesizer.
type Config struct {
	PromptTokenBudget int
	Groups            assembly.GroupConfig
}

// DefaultConfig returns the default synthesis configuration.
func DefaultConfig() Config {
	return Config{
		PromptTokenBudget: DefaultPromptTokenBudget,
		Groups:            assembly.DefaultGroupConfig(),
	}
}

// Input is everything one synthesis call conditions on.
type Input struct {
	Request   models.Request
	Retrieval models.RetrievalResult

	// Prior is the attempt being repaired; nil on the first iteration.
	Prior *models.Attempt

	Iteration int
}

// Synthesizer builds prompts and extracts candidate programs. It holds no
// per-run state.
type Synthesizer struct {
	backend  llm.Backend
	compiler *assembly.Compiler
	groups   assembly.GroupConfig
	logger   *zap.Logger
}

// New creates a Synthesizer. A nil logger is replaced by a no-op logger.
func New(backend llm.Backend, cfg Config, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		backend:  backend,
		compiler: assembly.NewCompiler(cfg.PromptTokenBudget),
		groups:   cfg.Groups,
		logger:   logger,
	}
}

// Synthesize produces one candidate. Backend failures and unusable replies
// come back as *SynthesisError.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) (models.CandidateArtifact, error) {
	prompt := s.BuildPrompt(in)
	s.logger.Debug("prompt built",
		zap.Int("iteration", in.Iteration),
		zap.Int("tokens", prompt.TotalTokens),
		zap.Int("dropped_examples", prompt.Dropped))

	reply, err := s.backend.Complete(ctx, prompt.Text)
	if err != nil {
		return models.CandidateArtifact{}, &SynthesisError{Iteration: in.Iteration, Err: err}
	}

	code := ExtractCode(reply)
	if code == "" {
		return models.CandidateArtifact{}, &SynthesisError{Iteration: in.Iteration, Err: ErrNoCode}
	}

	artifact := models.CandidateArtifact{Code: code, Iteration: in.Iteration}
	if in.Iteration > 0 && in.Prior != nil {
		parent := in.Prior.Outcome
		artifact.ParentFailure = &parent
	}
	return artifact, nil
}
