package transform

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	ferrors "git.home.luguber.info/inful/coverpack/internal/foundation/errors"
	"git.home.luguber.info/inful/coverpack/internal/logfields"
	"git.home.luguber.info/inful/coverpack/internal/process"
	"git.home.luguber.info/inful/coverpack/internal/staleness"
)

// LatexCompiler compiles a TeX source with pdflatex unless its PDF is already fresh.
type LatexCompiler struct {
	Binary    string
	Args      []string
	Extension string
	Timeout   time.Duration

	runner process.Runner
	oracle *staleness.Oracle
	logger *slog.Logger
}

// NewLatexCompiler returns a compiler running "pdflatex <source>" through runner.
func NewLatexCompiler(runner process.Runner) *LatexCompiler {
	if runner == nil {
		runner = process.NewExecRunner()
	}
	return &LatexCompiler{
		Binary:    "pdflatex",
		Extension: DefaultExtension,
		runner:    runner,
		oracle:    staleness.NewOracle(),
		logger:    slog.Default(),
	}
}

// WithOracle replaces the staleness oracle. Nil keeps the current one.
func (c *LatexCompiler) WithOracle(o *staleness.Oracle) *LatexCompiler {
	if o != nil {
		c.oracle = o
	}
	return c
}

// WithLogger sets a custom logger.
func (c *LatexCompiler) WithLogger(l *slog.Logger) *LatexCompiler {
	if l != nil {
		c.logger = l
	}
	return c
}

func (c *LatexCompiler) Compile(ctx context.Context, source string) (string, error) {
	artifact, _, err := c.CompileCached(ctx, source)
	return artifact, err
}

// CompileCached returns the derived artifact path for source, running the compiler
// only when the artifact is missing or older than the source. The compiler runs in
// the source's directory so co-located class and style files resolve.
func (c *LatexCompiler) CompileCached(ctx context.Context, source string) (string, bool, error) {
	artifact := staleness.DerivedPath(source, c.Extension)

	fresh, err := c.oracle.IsFresh(source, artifact)
	if err != nil {
		return "", false, err
	}
	if fresh {
		c.logger.Debug("Derived artifact is fresh; skipping compile",
			logfields.Source(source), logfields.Artifact(artifact), logfields.CacheHit(true))
		return artifact, true, nil
	}

	args := make([]string, 0, len(c.Args)+1)
	args = append(args, c.Args...)
	args = append(args, filepath.Base(source))
	cmd := process.Command{
		Name:    c.Binary,
		Args:    args,
		Dir:     filepath.Dir(source),
		Timeout: c.Timeout,
	}

	c.logger.Info("Compiling source document",
		logfields.Source(source), logfields.Command(cmd.CommandLine()), logfields.CacheHit(false))
	res, err := process.RunChecked(ctx, c.runner, cmd)
	if err != nil {
		b := ferrors.CompileError("compile source document").
			WithCause(fmt.Errorf("%w: %w", ErrCompileFailed, err)).
			WithContext("source", source).
			WithContext("command", cmd.CommandLine())
		if res != nil {
			b = b.WithContext("exit_code", res.ExitCode)
		}
		return "", false, b.Build()
	}
	c.logger.Debug("Compiled source document",
		logfields.Artifact(artifact), logfields.DurationMS(float64(res.Duration.Milliseconds())))
	return artifact, false, nil
}
