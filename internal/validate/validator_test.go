package validate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/nvandessel/magloop/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubExecutor returns a canned result and counts calls.
type stubExecutor struct {
	res   ExecResult
	err   error
	panic any
	calls int
}

func (s *stubExecutor) Execute(ctx context.Context, code string, timeout time.Duration) (ExecResult, error) {
	s.calls++
	if s.panic != nil {
		panic(s.panic)
	}
	return s.res, s.err
}

func candidate(code string) models.CandidateArtifact {
	return models.CandidateArtifact{Code: code}
}

const validCode = "from cmtj import Junction, Layer\nj = Junction([Layer('free')])\n"

func TestValidate_Outcomes(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		exec       *stubExecutor
		wantKind   models.OutcomeKind
		wantReason string
		wantCat    models.Category
		wantCalls  int
	}{
		{
			name:     "clean exit",
			code:     validCode,
			exec:     &stubExecutor{res: ExecResult{Stderr: "UserWarning: something"}},
			wantKind: models.OutcomeValid, wantCalls: 1,
		},
		{
			name:       "missing construct",
			code:       "import numpy as np\nprint(np.pi)",
			exec:       &stubExecutor{},
			wantKind:   models.OutcomeUnrunnable,
			wantReason: "missing required construct: one of Junction, Layer",
		},
		{
			name:       "construct only in a comment",
			code:       "# build a Junction here\nprint('todo')",
			exec:       &stubExecutor{},
			wantKind:   models.OutcomeUnrunnable,
			wantReason: "missing required construct: one of Junction, Layer",
		},
		{
			name:       "timeout",
			code:       validCode,
			exec:       &stubExecutor{err: ErrTimeout},
			wantKind:   models.OutcomeUnrunnable,
			wantReason: "timeout", wantCalls: 1,
		},
		{
			name:       "interpreter missing",
			code:       validCode,
			exec:       &stubExecutor{err: errors.New(`running python3: exec: "python3": executable file not found in $PATH`)},
			wantKind:   models.OutcomeUnrunnable,
			wantReason: `running python3: exec: "python3": executable file not found in $PATH`, wantCalls: 1,
		},
		{
			name:       "executor panic",
			code:       validCode,
			exec:       &stubExecutor{panic: "boom"},
			wantKind:   models.OutcomeUnrunnable,
			wantReason: "executor panic: boom", wantCalls: 1,
		},
		{
			name: "raised error",
			code: validCode,
			exec: &stubExecutor{res: ExecResult{ExitCode: 1, Stderr: "Traceback (most recent call last):\n" +
				"  File \"candidate.py\", line 2, in <module>\nNameError: name 'Layer' is not defined\n"}},
			wantKind: models.OutcomeInvalid, wantCat: models.CategoryRuntime, wantCalls: 1,
		},
		{
			name: "display error is benign",
			code: validCode,
			exec: &stubExecutor{res: ExecResult{ExitCode: 1, Stderr: "Traceback (most recent call last):\n" +
				"_tkinter.TclError: no display name and no $DISPLAY environment variable\n"}},
			wantKind: models.OutcomeValid, wantCalls: 1,
		},
		{
			name:     "silent non-zero exit",
			code:     validCode,
			exec:     &stubExecutor{res: ExecResult{ExitCode: 3}},
			wantKind: models.OutcomeInvalid, wantCat: models.CategoryUnknown, wantCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(tt.exec, DefaultConfig(), nil)
			got := v.Validate(context.Background(), candidate(tt.code))

			if got.Kind != tt.wantKind {
				t.Fatalf("Kind = %s, want %s (%s)", got.Kind, tt.wantKind, got.Summary())
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
			if got.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", got.Category, tt.wantCat)
			}
			if tt.exec.calls != tt.wantCalls {
				t.Errorf("executor calls = %d, want %d", tt.exec.calls, tt.wantCalls)
			}
		})
	}
}

func TestValidate_SilentExitMessage(t *testing.T) {
	v := New(&stubExecutor{res: ExecResult{ExitCode: 3}}, DefaultConfig(), nil)
	got := v.Validate(context.Background(), candidate(validCode))
	if got.Diagnostic == nil || got.Diagnostic.Message != "exit status 3" {
		t.Errorf("Diagnostic = %+v, want message 'exit status 3'", got.Diagnostic)
	}
}

func TestValidate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &stubExecutor{}
	got := New(exec, DefaultConfig(), nil).Validate(ctx, candidate(validCode))
	if got.Kind != models.OutcomeUnrunnable || got.Reason != "cancelled" {
		t.Errorf("got %s, want unrunnable: cancelled", got.Summary())
	}
	if exec.calls != 0 {
		t.Error("executor must not run for a cancelled context")
	}

	exec = &stubExecutor{err: context.Canceled}
	got = New(exec, DefaultConfig(), nil).Validate(context.Background(), candidate(validCode))
	if got.Reason != "cancelled" {
		t.Errorf("executor cancellation: got %s", got.Summary())
	}
}

func TestValidate_CustomConstructs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequiredConstructs = []string{"Stack"}
	v := New(&stubExecutor{}, cfg, nil)

	if got := v.Validate(context.Background(), candidate(validCode)); !strings.Contains(got.Reason, "one of Stack") {
		t.Errorf("got %s, want missing Stack", got.Summary())
	}
	if got := v.Validate(context.Background(), candidate("s = cmtj.Stack([])")); !got.IsValid() {
		t.Errorf("got %s, want valid", got.Summary())
	}
}

func TestValidate_NoRequiredConstructs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequiredConstructs = nil
	if got := New(&stubExecutor{}, cfg, nil).Validate(context.Background(), candidate("print(1)")); !got.IsValid() {
		t.Errorf("got %s, want valid", got.Summary())
	}
}

func TestWordsRegexp(t *testing.T) {
	re := wordsRegexp([]string{"Junction", "Layer"}, false)
	for text, want := range map[string]bool{
		"Junction(":         true,
		"cmtj.Layer":        true,
		"JunctionBuilder()": false,
		"my_Layer = 1":      false,
		"junction":          false,
	} {
		if got := re.MatchString(text); got != want {
			t.Errorf("match %q = %v, want %v", text, got, want)
		}
	}
	if wordsRegexp([]string{" ", ""}, true) != nil {
		t.Error("blank words should produce no regexp")
	}
}
