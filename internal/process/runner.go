// Package process runs the external toolchain (TeX compiler, PDF merger) behind a
// small Runner interface so the build pipeline can be exercised without the binaries.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"git.home.luguber.info/inful/coverpack/internal/logfields"
)

var (
	// ErrNonZeroExit indicates the process ran but exited with a non-zero status.
	ErrNonZeroExit = errors.New("process exited with non-zero status")
	// ErrLaunchFailed indicates the process could not be started (binary missing, permissions, ...).
	ErrLaunchFailed = errors.New("process launch failed")
)

// Command describes one external process invocation.
type Command struct {
	// Name is the binary to run, looked up on PATH when not absolute.
	Name string
	Args []string
	// Dir is the working directory; empty inherits the current one.
	Dir string
	// Env entries in KEY=value form appended to the parent environment.
	Env []string
	// Timeout of zero means no limit beyond the context.
	Timeout time.Duration
}

// CommandLine renders the command for logs and error messages.
func (c Command) CommandLine() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	parts = append(parts, c.Args...)
	return strings.Join(parts, " ")
}

// Result holds the captured output of a finished process.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Output returns stderr, stdout or both, whichever is non-empty.
func (r *Result) Output() string {
	if r == nil {
		return ""
	}
	out := strings.TrimSpace(string(r.Stdout))
	errOut := strings.TrimSpace(string(r.Stderr))
	switch {
	case errOut == "":
		return out
	case out == "":
		return errOut
	default:
		return out + "\n" + errOut
	}
}

// Runner executes a Command.
//
// A non-zero exit is reported through Result.ExitCode, not as an error. Errors are
// reserved for launch failures, timeouts and cancellation.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// RunnerFunc adapts a plain function to Runner.
type RunnerFunc func(ctx context.Context, cmd Command) (*Result, error)

func (f RunnerFunc) Run(ctx context.Context, cmd Command) (*Result, error) { return f(ctx, cmd) }

// ExecRunner runs commands with os/exec. Cancelling the context kills the process.
type ExecRunner struct {
	Logger *slog.Logger
}

// NewExecRunner returns an ExecRunner logging to slog.Default.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Logger: slog.Default()}
}

func (r *ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	if c.Name == "" {
		return nil, fmt.Errorf("%w: command name is required", ErrLaunchFailed)
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("Running external command", logfields.Command(c.CommandLine()), logfields.Path(c.Dir))
	start := time.Now()
	err := cmd.Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("%s: %w", c.Name, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	res.ExitCode = -1
	return res, fmt.Errorf("%w: %s: %w", ErrLaunchFailed, c.Name, err)
}

// RunChecked runs cmd and converts a non-zero exit into an error wrapping
// ErrNonZeroExit with the exit code and captured output.
func RunChecked(ctx context.Context, runner Runner, cmd Command) (*Result, error) {
	res, err := runner.Run(ctx, cmd)
	if err != nil {
		return res, err
	}
	if res != nil && res.ExitCode != 0 {
		if out := res.Output(); out != "" {
			return res, fmt.Errorf("%w (%d): %s", ErrNonZeroExit, res.ExitCode, out)
		}
		return res, fmt.Errorf("%w (%d)", ErrNonZeroExit, res.ExitCode)
	}
	return res, nil
}

// LookPath reports the resolved path of a binary on PATH.
func LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("binary %q not found in PATH: %w", name, err)
	}
	return path, nil
}
