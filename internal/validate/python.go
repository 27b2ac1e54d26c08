package validate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
)

// DefaultPythonCommand runs the interpreter isolated from user site-packages
// and environment variables, without writing bytecode.
const DefaultPythonCommand = "python3 -I -B"

// DefaultMaxOutputBytes caps captured stdout and stderr, each.
const DefaultMaxOutputBytes = 1 << 20

// candidateFile is the script name inside the per-candidate directory.
const candidateFile = "candidate.py"

// aggPreamble forces a non-interactive matplotlib backend when matplotlib is installed.
const aggPreamble = `try:
    import matplotlib
    matplotlib.use("Agg", force=True)
except ImportError:
    pass
`

var preambleLines = strings.Count(aggPreamble, "\n")

var reCandidateLine = regexp.MustCompile(`(File "[^"]*` + regexp.QuoteMeta(candidateFile) + `", line )(\d+)`)

// ExecutorConfig configures a PythonExecutor.
type ExecutorConfig struct {
	// Command is the interpreter invocation, shell-quoted (default: "python3 -I -B").
	Command string

	// MaxOutputBytes caps each output stream (default: 1 MiB).
	MaxOutputBytes int

	// WaitDelay bounds how long output pipes are drained after the process is killed.
	WaitDelay time.Duration
}

// DefaultExecutorConfig returns the default interpreter configuration.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		Command:        DefaultPythonCommand,
		MaxOutputBytes: DefaultMaxOutputBytes,
		WaitDelay:      2 * time.Second,
	}
}

// PythonExecutor runs candidates with a local Python interpreter. Each call
// gets a fresh temporary directory as its working directory and HOME; the
// directory is removed on every exit path.
type PythonExecutor struct {
	argv      []string
	maxOutput int
	waitDelay time.Duration
}

// NewPythonExecutor parses the interpreter command.
func NewPythonExecutor(cfg ExecutorConfig) (*PythonExecutor, error) {
	def := DefaultExecutorConfig()
	if strings.TrimSpace(cfg.Command) == "" {
		cfg.Command = def.Command
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = def.MaxOutputBytes
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = def.WaitDelay
	}

	argv, err := shellwords.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parsing interpreter command %q: %w", cfg.Command, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("interpreter command %q is empty", cfg.Command)
	}
	return &PythonExecutor{argv: argv, maxOutput: cfg.MaxOutputBytes, waitDelay: cfg.WaitDelay}, nil
}

// Available reports whether the interpreter can be found.
func (p *PythonExecutor) Available() bool {
	_, err := exec.LookPath(p.argv[0])
	return err == nil
}

// Execute implements Executor.
func (p *PythonExecutor) Execute(ctx context.Context, code string, timeout time.Duration) (ExecResult, error) {
	if err := ctx.Err(); err != nil {
		return ExecResult{}, err
	}

	dir, err := os.MkdirTemp("", "magloop-candidate-*")
	if err != nil {
		return ExecResult{}, fmt.Errorf("creating work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, candidateFile), []byte(aggPreamble+code), 0o600); err != nil {
		return ExecResult{}, fmt.Errorf("writing candidate: %w", err)
	}

	execCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	args := append(append([]string{}, p.argv[1:]...), candidateFile)
	cmd := exec.CommandContext(execCtx, p.argv[0], args...)
	cmd.Dir = dir
	cmd.Env = []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + dir,
		"MPLBACKEND=Agg",
		"PYTHONDONTWRITEBYTECODE=1",
	}
	setupProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = p.waitDelay

	var stdoutBuf, stderrBuf bytes.Buffer
	stdout := &limitedWriter{w: &stdoutBuf, max: p.maxOutput}
	stderr := &limitedWriter{w: &stderrBuf, max: p.maxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	runErr := cmd.Run()
	res := ExecResult{
		Stdout:    stdoutBuf.String(),
		Stderr:    shiftLines(stderrBuf.String()),
		Truncated: stdout.truncated || stderr.truncated,
		Duration:  time.Since(start),
	}

	if runErr == nil {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("after %v: %w", timeout, ErrTimeout)
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, fmt.Errorf("running %s: %w", p.argv[0], runErr)
}

// shiftLines maps candidate.py line numbers back past the preamble so they
// point into the code the backend wrote.
func shiftLines(stderr string) string {
	return reCandidateLine.ReplaceAllStringFunc(stderr, func(m string) string {
		sub := reCandidateLine.FindStringSubmatch(m)
		n, err := strconv.Atoi(sub[2])
		if err != nil || n <= preambleLines {
			return m
		}
		return sub[1] + strconv.Itoa(n-preambleLines)
	})
}

// limitedWriter keeps the first max bytes and silently discards the rest.
type limitedWriter struct {
	w         *bytes.Buffer
	max       int
	truncated bool
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	room := l.max - l.w.Len()
	if room <= 0 {
		l.truncated = len(p) > 0 || l.truncated
		return len(p), nil
	}
	if len(p) > room {
		l.w.Write(p[:room])
		l.truncated = true
		return len(p), nil
	}
	return l.w.Write(p)
}
