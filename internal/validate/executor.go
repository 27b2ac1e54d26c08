package validate

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by executors when the program outlives its timeout.
var ErrTimeout = errors.New("execution timed out")

// ExecResult is what a finished program left behind.
type ExecResult struct {
	Stdout string
	Stderr string

	// ExitCode is non-zero when the program raised.
	ExitCode int

	// Truncated is set when output went over the cap.
	Truncated bool

	Duration time.Duration
}

// Raised reports whether the program terminated with an error.
func (r ExecResult) Raised() bool { return r.ExitCode != 0 }

// Executor runs candidate code in an isolated, time-bounded context.
//
// Execute returns an error only for infrastructure failures: ErrTimeout when
// the timeout fires, the context error when ctx is done, or anything that
// kept the program from starting. A program that raises is a successful
// execution with a non-zero ExitCode. Every resource created for the call is
// released before Execute returns.
type Executor interface {
	Execute(ctx context.Context, code string, timeout time.Duration) (ExecResult, error)
}
