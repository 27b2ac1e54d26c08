package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CandidateArtifact is one generated program.
type CandidateArtifact struct {
	Code      string `json:"code"`
	Iteration int    `json:"iteration"`

	// ParentFailure is the outcome that prompted this repair attempt.
	// Nil for the first iteration.
	ParentFailure *ValidationOutcome `json:"parent_failure,omitempty"`
}

// OutcomeKind discriminates ValidationOutcome variants.
type OutcomeKind string

const (
	OutcomeValid      OutcomeKind = "valid"
	OutcomeInvalid    OutcomeKind = "invalid"
	OutcomeUnrunnable OutcomeKind = "unrunnable"
)

// Category classifies an Invalid outcome.
type Category string

const (
	CategorySyntax            Category = "syntax"
	CategoryMissingDependency Category = "missing_dependency"
	CategoryRuntime           Category = "runtime"
	CategoryNumeric           Category = "numeric"
	CategoryUnitMismatch      Category = "unit_mismatch"
	CategoryUnknown           Category = "unknown"
)

// Diagnostic describes why a candidate failed to execute.
type Diagnostic struct {
	// ErrorType is the exception class name, e.g. "ZeroDivisionError".
	ErrorType string `json:"error_type,omitempty"`
	Message   string `json:"message"`

	// Line and Column are 1-based; zero means unknown.
	Line   int `json:"line,omitempty"`
	Column int `json:"column,omitempty"`

	Traceback string `json:"traceback,omitempty"`
}

// String renders the diagnostic the way it is fed back for repair,
// e.g. "SyntaxError at Line 3, Column 7: invalid syntax".
func (d Diagnostic) String() string {
	var b strings.Builder
	if d.ErrorType != "" {
		b.WriteString(d.ErrorType)
	}
	if d.Line > 0 {
		if b.Len() > 0 {
			b.WriteString(" at ")
		}
		fmt.Fprintf(&b, "Line %d", d.Line)
		if d.Column > 0 {
			fmt.Fprintf(&b, ", Column %d", d.Column)
		}
	}
	if d.Message != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(d.Message)
	}
	return b.String()
}

// ValidationOutcome is the result of validating one candidate.
// Exactly one of the variants is meaningful, selected by Kind.
type ValidationOutcome struct {
	Kind OutcomeKind `json:"kind"`

	// Invalid only.
	Diagnostic *Diagnostic `json:"diagnostic,omitempty"`
	Category   Category    `json:"category,omitempty"`

	// Unrunnable only.
	Reason string `json:"reason,omitempty"`
}

// Valid returns the outcome for a program that ran to completion.
func Valid() ValidationOutcome {
	return ValidationOutcome{Kind: OutcomeValid}
}

// Invalid returns the outcome for a program that raised an error.
func Invalid(diag Diagnostic, category Category) ValidationOutcome {
	if category == "" {
		category = CategoryUnknown
	}
	return ValidationOutcome{Kind: OutcomeInvalid, Diagnostic: &diag, Category: category}
}

// Unrunnable returns the outcome for a program that could not be executed at all.
func Unrunnable(reason string) ValidationOutcome {
	return ValidationOutcome{Kind: OutcomeUnrunnable, Reason: reason}
}

// IsValid reports whether the outcome is Valid.
func (o ValidationOutcome) IsValid() bool { return o.Kind == OutcomeValid }

// Summary is a single line describing the outcome.
func (o ValidationOutcome) Summary() string {
	switch o.Kind {
	case OutcomeValid:
		return "valid"
	case OutcomeInvalid:
		msg := ""
		if o.Diagnostic != nil {
			msg = o.Diagnostic.String()
		}
		return fmt.Sprintf("invalid (%s): %s", o.Category, msg)
	case OutcomeUnrunnable:
		return "unrunnable: " + o.Reason
	default:
		return string(o.Kind)
	}
}

// Attempt records one candidate and the verdict it received.
type Attempt struct {
	Artifact CandidateArtifact `json:"artifact"`
	Outcome  ValidationOutcome `json:"outcome"`
}

// SessionTrace is the append-only history of one run.
// Attempts are never removed or rewritten.
type SessionTrace struct {
	attempts []Attempt
}

// Append adds an attempt to the end of the trace.
func (t *SessionTrace) Append(a Attempt) {
	t.attempts = append(t.attempts, a)
}

// Len returns the number of recorded attempts.
func (t *SessionTrace) Len() int { return len(t.attempts) }

// Attempts returns a copy of the recorded attempts.
func (t *SessionTrace) Attempts() []Attempt {
	out := make([]Attempt, len(t.attempts))
	copy(out, t.attempts)
	return out
}

// Last returns the most recent attempt, or nil if the trace is empty.
func (t *SessionTrace) Last() *Attempt {
	if len(t.attempts) == 0 {
		return nil
	}
	a := t.attempts[len(t.attempts)-1]
	return &a
}

// MarshalJSON encodes the trace as a list of attempts.
func (t SessionTrace) MarshalJSON() ([]byte, error) {
	if t.attempts == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.attempts)
}

// UnmarshalJSON decodes a list of attempts.
func (t *SessionTrace) UnmarshalJSON(data []byte) error {
	var attempts []Attempt
	if err := json.Unmarshal(data, &attempts); err != nil {
		return err
	}
	t.attempts = attempts
	return nil
}

// NewSessionTrace builds a trace from previously recorded attempts.
func NewSessionTrace(attempts []Attempt) SessionTrace {
	out := make([]Attempt, len(attempts))
	copy(out, attempts)
	return SessionTrace{attempts: out}
}
