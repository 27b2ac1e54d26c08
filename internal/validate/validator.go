// Package validate decides whether a candidate program is acceptable by
// checking its structure and running it in a sandbox.
package validate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nvandessel/magloop/internal/models"
)

// Config configures a Validator.
type Config struct {
	// RequiredConstructs lists names of which at least one must appear in
	// the code outside comments.
	RequiredConstructs []string

	// BenignPatterns are words that mark an error as a display or GUI
	// backend problem. Such errors count as valid.
	BenignPatterns []string

	// Timeout bounds each execution.
	Timeout time.Duration
}

// DefaultConfig returns the default validation configuration.
func DefaultConfig() Config {
	return Config{
		RequiredConstructs: []string{"Junction", "Layer"},
		BenignPatterns:     []string{"display", "gui", "x11", "tkinter", "qt"},
		Timeout:            60 * time.Second,
	}
}

// Validator produces a ValidationOutcome for each candidate. It never
// returns an error; every failure mode is folded into the outcome.
type Validator struct {
	exec     Executor
	required []string
	reqRe    *regexp.Regexp
	benignRe *regexp.Regexp
	timeout  time.Duration
	logger   *zap.Logger
}

// New creates a Validator. A nil logger is replaced by a no-op logger.
func New(exec Executor, cfg Config, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Validator{
		exec:     exec,
		required: cfg.RequiredConstructs,
		reqRe:    wordsRegexp(cfg.RequiredConstructs, false),
		benignRe: wordsRegexp(cfg.BenignPatterns, true),
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

func wordsRegexp(words []string, foldCase bool) *regexp.Regexp {
	var quoted []string
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	if len(quoted) == 0 {
		return nil
	}
	prefix := ""
	if foldCase {
		prefix = "(?i)"
	}
	return regexp.MustCompile(prefix + `(?:^|[^A-Za-z0-9_])(?:` + strings.Join(quoted, "|") + `)(?:$|[^A-Za-z0-9_])`)
}

// Validate checks the artifact's structure, then executes it.
func (v *Validator) Validate(ctx context.Context, artifact models.CandidateArtifact) (outcome models.ValidationOutcome) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("executor panicked", zap.Any("panic", r))
			outcome = models.Unrunnable(fmt.Sprintf("executor panic: %v", r))
		}
	}()

	if ctx.Err() != nil {
		return models.Unrunnable("cancelled")
	}

	if v.reqRe != nil && !v.reqRe.MatchString(StripComments(artifact.Code)) {
		return models.Unrunnable("missing required construct: one of " + strings.Join(v.required, ", "))
	}

	res, err := v.exec.Execute(ctx, artifact.Code, v.timeout)
	switch {
	case errors.Is(err, ErrTimeout):
		return models.Unrunnable("timeout")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), err != nil && ctx.Err() != nil:
		return models.Unrunnable("cancelled")
	case err != nil:
		return models.Unrunnable(err.Error())
	}

	if !res.Raised() {
		return models.Valid()
	}

	diag, category := Classify(res.Stderr)
	if diag.Message == "" && diag.ErrorType == "" {
		diag.Message = fmt.Sprintf("exit status %d", res.ExitCode)
	}
	if v.benign(diag) {
		v.logger.Warn("ignoring display-related error",
			zap.Int("iteration", artifact.Iteration),
			zap.String("error", diag.String()))
		return models.Valid()
	}
	return models.Invalid(diag, category)
}

func (v *Validator) benign(d models.Diagnostic) bool {
	if v.benignRe == nil {
		return false
	}
	return v.benignRe.MatchString(d.ErrorType + ": " + d.Message)
}

// StripComments removes Python "#" comments, leaving string literals intact.
func StripComments(code string) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return strings.Join(lines, "\n")
}

func stripLineComment(line string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0 && c == '\\':
			i++
		case quote != 0 && c == quote:
			quote = 0
		case quote == 0 && (c == '"' || c == '\''):
			quote = c
		case quote == 0 && c == '#':
			return line[:i]
		}
	}
	return line
}
