package composer

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/coverpack/internal/fingerprint"
	ferrors "git.home.luguber.info/inful/coverpack/internal/foundation/errors"
	"git.home.luguber.info/inful/coverpack/internal/journal"
	"git.home.luguber.info/inful/coverpack/internal/logfields"
	"git.home.luguber.info/inful/coverpack/internal/metrics"
	"git.home.luguber.info/inful/coverpack/internal/transform"
)

// Request names the two sources of a package. Primary always comes first in the
// merged artifact.
type Request struct {
	Label     string
	Primary   string
	Secondary string
}

// Package is the outcome of one build invocation. It is not persisted by the composer.
type Package struct {
	ID        string
	Name      string
	Label     string
	Sources   []string
	Artifacts []string
	Output    string
	CacheHits int
	State     State
	StartedAt time.Time
	Duration  time.Duration
}

// Composer runs the compile/merge pipeline with injected strategies.
// A Composer holds no per-build state and may be shared between goroutines.
type Composer struct {
	compiler  transform.Compiler
	merger    transform.Merger
	namer     Namer
	recorder  metrics.Recorder
	logger    *slog.Logger
	journal   journal.Recorder
	publisher Publisher
	observers []Observer
}

// New returns a Composer using pdflatex and Ghostscript unless overridden.
func New(opts ...Option) *Composer {
	c := &Composer{
		compiler: transform.NewLatexCompiler(nil),
		merger:   transform.NewGhostscriptMerger(nil),
		namer:    fingerprint.NewGenerator(),
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type compileResult struct {
	index    int
	artifact string
	cacheHit bool
	err      error
}

// run tracks the state of a single pipeline invocation.
type run struct {
	c     *Composer
	state State
}

func (r *run) transition(to State) {
	from := r.state
	r.state = to
	r.c.logger.Debug("Pipeline state change", slog.String("from", string(from)), logfields.State(string(to)))
	for _, o := range r.c.observers {
		o(from, to)
	}
}

// Compose compiles both sources concurrently and merges the results in request order.
// It returns the first error encountered without waiting for the other compile.
func (c *Composer) Compose(ctx context.Context, req Request) (*Package, error) {
	r := &run{c: c, state: StateNotStarted}
	pkg := &Package{Label: req.Label, State: StateNotStarted, StartedAt: time.Now()}
	err := c.compose(ctx, r, req, pkg)
	pkg.Duration = time.Since(pkg.StartedAt)
	pkg.State = r.state
	if err != nil {
		return nil, err
	}
	return pkg, nil
}

func (c *Composer) compose(ctx context.Context, r *run, req Request, pkg *Package) error {
	sources, err := normalizeRequest(req)
	if err != nil {
		r.transition(StateFailed)
		return err
	}
	pkg.Sources = sources

	r.transition(StateCompiling)
	artifacts, hits, err := c.compileAll(ctx, sources)
	if err != nil {
		r.transition(StateFailed)
		return err
	}
	pkg.Artifacts = artifacts
	pkg.CacheHits = hits

	// the merger writes next to the first artifact; it must never replace one
	if _, err := transform.MergedPath(req.Label, artifacts, filepath.Ext(artifacts[0])); err != nil {
		c.logger.Error("Refusing to merge", logfields.Label(req.Label), logfields.Error(err))
		r.transition(StateFailed)
		return err
	}

	r.transition(StateMerging)
	start := time.Now()
	output, err := c.merger.Merge(ctx, req.Label, artifacts)
	c.recorder.ObserveStageDuration(metrics.StageMerge, time.Since(start))
	if err != nil {
		c.recorder.IncStageResult(metrics.StageMerge, resultLabel(err))
		c.logger.Error("Merge failed", logfields.Label(req.Label), logfields.Error(err))
		r.transition(StateFailed)
		return err
	}
	c.recorder.IncStageResult(metrics.StageMerge, metrics.ResultSuccess)
	pkg.Output = output

	r.transition(StateDone)
	c.logger.Info("Package composed", logfields.Output(output), slog.Int("cache_hits", hits))
	return nil
}

// compileAll fans out one goroutine per source and joins them. Artifacts keep the
// order of sources regardless of completion order.
func (c *Composer) compileAll(ctx context.Context, sources []string) ([]string, int, error) {
	compileCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// buffered so a discarded sibling never blocks on send
	results := make(chan compileResult, len(sources))
	for i, src := range sources {
		go func() {
			start := time.Now()
			artifact, hit, known, err := c.compileOne(compileCtx, src)
			c.recorder.ObserveStageDuration(metrics.StageCompile, time.Since(start))
			if err != nil {
				c.recorder.IncStageResult(metrics.StageCompile, resultLabel(err))
			} else {
				c.recorder.IncStageResult(metrics.StageCompile, metrics.ResultSuccess)
				if known {
					c.recorder.IncCacheResult(hit)
				}
			}
			results <- compileResult{index: i, artifact: artifact, cacheHit: hit, err: err}
		}()
	}

	artifacts := make([]string, len(sources))
	hits := 0
	for range sources {
		select {
		case res := <-results:
			if res.err != nil {
				c.logger.Error("Compile failed; abandoning sibling",
					logfields.Source(sources[res.index]), logfields.Error(res.err))
				return nil, 0, res.err
			}
			artifacts[res.index] = res.artifact
			if res.cacheHit {
				hits++
			}
		case <-ctx.Done():
			return nil, 0, ferrors.RuntimeError("build canceled").WithCause(ctx.Err()).Build()
		}
	}
	return artifacts, hits, nil
}

func (c *Composer) compileOne(ctx context.Context, src string) (artifact string, hit, known bool, err error) {
	if cc, ok := c.compiler.(transform.CachingCompiler); ok {
		artifact, hit, err = cc.CompileCached(ctx, src)
		return artifact, hit, err == nil, err
	}
	artifact, err = c.compiler.Compile(ctx, src)
	return artifact, false, false, err
}

// Build names the package from the content of its sources, composes it, records the
// outcome in the journal and hands it to the publisher.
func (c *Composer) Build(ctx context.Context, req Request) (*Package, error) {
	started := time.Now()
	id := uuid.NewString()
	logger := c.logger.With(logfields.BuildID(id))

	pkg, name, err := c.build(ctx, req, logger)
	if pkg == nil {
		pkg = &Package{Label: req.Label, State: StateFailed, StartedAt: started}
	}
	pkg.ID = id
	pkg.Name = name
	pkg.StartedAt = started
	pkg.Duration = time.Since(started)

	c.recorder.ObserveBuildDuration(pkg.Duration)
	if err != nil {
		c.recorder.IncBuildOutcome(resultLabel(err))
		logger.Error("Package build failed", logfields.Package(name), logfields.Error(err))
	} else {
		c.recorder.IncBuildOutcome(metrics.ResultSuccess)
		logger.Info("Package built", logfields.Package(name), logfields.Output(pkg.Output),
			logfields.DurationMS(float64(pkg.Duration.Milliseconds())))
	}
	c.recordJournal(ctx, pkg, err, logger)

	if err != nil {
		return nil, err
	}
	return pkg, nil
}

func (c *Composer) build(ctx context.Context, req Request, logger *slog.Logger) (*Package, string, error) {
	sources, err := normalizeRequest(req)
	if err != nil {
		return nil, "", err
	}

	start := time.Now()
	name, err := c.namer.PackageName(ctx, req.Label, sources)
	c.recorder.ObserveStageDuration(metrics.StageFingerprint, time.Since(start))
	if err != nil {
		c.recorder.IncStageResult(metrics.StageFingerprint, resultLabel(err))
		return nil, "", err
	}
	c.recorder.IncStageResult(metrics.StageFingerprint, metrics.ResultSuccess)
	logger.Info("Building package", logfields.Package(name), logfields.Label(req.Label))

	pkg, err := c.Compose(ctx, req)
	if err != nil {
		return nil, name, err
	}
	pkg.Name = name

	if c.publisher != nil {
		if err := c.publisher.Publish(ctx, pkg); err != nil {
			return pkg, name, ferrors.RuntimeError("publish package").
				WithCause(err).
				WithContext("package", name).
				Build()
		}
	}
	return pkg, name, nil
}

func (c *Composer) recordJournal(ctx context.Context, pkg *Package, buildErr error, logger *slog.Logger) {
	if c.journal == nil {
		return
	}
	entry := journal.Entry{
		ID:        pkg.ID,
		Package:   pkg.Name,
		Label:     pkg.Label,
		Output:    pkg.Output,
		Status:    journal.StatusSuccess,
		CacheHits: pkg.CacheHits,
		StartedAt: pkg.StartedAt,
		Duration:  pkg.Duration,
	}
	if buildErr != nil {
		entry.Status = journal.StatusFailed
		entry.Error = buildErr.Error()
	}
	// the journal is best effort; a build never fails because of it
	if err := c.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		jerr := ferrors.JournalError("record build").WithCause(err).Build()
		logger.Log(ctx, ferrors.LogLevel(jerr), "Failed to record build in journal", logfields.Error(jerr))
	}
}

func normalizeRequest(req Request) ([]string, error) {
	if req.Label == "" {
		return nil, ferrors.ValidationError("recipient label is required").Build()
	}
	if req.Primary == "" || req.Secondary == "" {
		return nil, ferrors.ValidationError("exactly two source documents are required").
			WithContext("primary", req.Primary).
			WithContext("secondary", req.Secondary).
			Build()
	}
	sources := make([]string, 0, 2)
	for _, p := range []string{req.Primary, req.Secondary} {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, ferrors.IOError("resolve source path").WithCause(err).WithContext("path", p).Build()
		}
		sources = append(sources, abs)
	}
	return sources, nil
}

func resultLabel(err error) metrics.ResultLabel {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return metrics.ResultCanceled
	}
	return metrics.ResultFailed
}
