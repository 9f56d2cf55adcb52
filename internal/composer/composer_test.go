package composer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/coverpack/internal/foundation/errors"
	"git.home.luguber.info/inful/coverpack/internal/journal"
	"git.home.luguber.info/inful/coverpack/internal/metrics"
	"git.home.luguber.info/inful/coverpack/internal/process"
	"git.home.luguber.info/inful/coverpack/internal/testutil"
	"git.home.luguber.info/inful/coverpack/internal/transform"
)

// recordingRunner records commands and reports success without running anything.
type recordingRunner struct {
	mu       sync.Mutex
	commands []process.Command
}

func (r *recordingRunner) Run(_ context.Context, cmd process.Command) (*process.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
	return &process.Result{}, nil
}

func (r *recordingRunner) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.commands))
	for _, c := range r.commands {
		out = append(out, c.Name)
	}
	return out
}

type mergeCall struct {
	label     string
	artifacts []string
}

// spyMerger records its inputs and returns the conventional output path.
type spyMerger struct {
	mu    sync.Mutex
	calls []mergeCall
	err   error
}

func (s *spyMerger) Merge(ctx context.Context, label string, artifacts []string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, mergeCall{label: label, artifacts: append([]string(nil), artifacts...)})
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return transform.NoopMerger{}.Merge(ctx, label, artifacts)
}

func (s *spyMerger) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func TestCompose_StartsBothCompilesConcurrently(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2)
	allStarted := make(chan struct{})
	go func() {
		wg.Wait()
		close(allStarted)
	}()

	compiler := transform.CompilerFunc(func(ctx context.Context, src string) (string, error) {
		wg.Done()
		// neither compile may finish before the other has started
		select {
		case <-allStarted:
		case <-time.After(5 * time.Second):
			return "", errors.New("sibling compile never started")
		}
		return transform.NoopCompiler{}.Compile(ctx, src)
	})

	pkg, err := New(WithCompiler(compiler), WithMerger(transform.NoopMerger{})).
		Compose(context.Background(), Request{Label: "Test", Primary: "/docs/coverletter.tex", Secondary: "/docs/resume.tex"})
	require.NoError(t, err)
	assert.Equal(t, StateDone, pkg.State)
}

func TestCompose_MergeReceivesRequestOrder(t *testing.T) {
	secondaryDone := make(chan struct{})
	compiler := transform.CompilerFunc(func(ctx context.Context, src string) (string, error) {
		if filepath.Base(src) == "coverletter.tex" {
			// finish after the secondary
			<-secondaryDone
		} else {
			defer close(secondaryDone)
		}
		return transform.NoopCompiler{}.Compile(ctx, src)
	})
	merger := &spyMerger{}

	dir := t.TempDir()
	letter := filepath.Join(dir, "letters", "coverletter.tex")
	resume := filepath.Join(dir, "resume", "resume.tex")

	pkg, err := New(WithCompiler(compiler), WithMerger(merger)).
		Compose(context.Background(), Request{Label: "Test", Primary: letter, Secondary: resume})
	require.NoError(t, err)

	require.Equal(t, 1, merger.callCount())
	call := merger.calls[0]
	assert.Equal(t, "Test", call.label)
	assert.Equal(t, []string{
		filepath.Join(dir, "letters", "coverletter.pdf"),
		filepath.Join(dir, "resume", "resume.pdf"),
	}, call.artifacts)
	assert.Equal(t, filepath.Join(dir, "letters", "test.pdf"), pkg.Output)
	assert.Equal(t, call.artifacts, pkg.Artifacts)
	assert.Equal(t, []string{letter, resume}, pkg.Sources)
}

func TestCompose_FailFast(t *testing.T) {
	compileErr := ferrors.CompileError("compile source document").Build()
	siblingCanceled := make(chan struct{})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	compiler := transform.CompilerFunc(func(ctx context.Context, src string) (string, error) {
		if filepath.Base(src) == "resume.tex" {
			return "", compileErr
		}
		select {
		case <-ctx.Done():
			close(siblingCanceled)
		case <-release:
		}
		return "", ctx.Err()
	})
	merger := &spyMerger{}

	var transitions []State
	pkg, err := New(
		WithCompiler(compiler),
		WithMerger(merger),
		WithObserver(func(_, to State) { transitions = append(transitions, to) }),
	).Compose(context.Background(), Request{Label: "Test", Primary: "/d/coverletter.tex", Secondary: "/d/resume.tex"})

	require.Error(t, err)
	assert.Nil(t, pkg)
	assert.Same(t, compileErr, err, "the original error is returned unchanged")
	assert.Zero(t, merger.callCount(), "merge must not run after a compile failure")
	assert.Equal(t, []State{StateCompiling, StateFailed}, transitions)

	select {
	case <-siblingCanceled:
	case <-time.After(5 * time.Second):
		t.Fatal("sibling compile was not canceled")
	}
}

func TestCompose_FailFastDoesNotWaitForSibling(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	compiler := transform.CompilerFunc(func(_ context.Context, src string) (string, error) {
		if filepath.Base(src) == "resume.tex" {
			return "", errors.New("boom")
		}
		// ignores cancellation entirely
		<-release
		return "late.pdf", nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := New(WithCompiler(compiler), WithMerger(&spyMerger{})).
			Compose(context.Background(), Request{Label: "Test", Primary: "/d/coverletter.tex", Secondary: "/d/resume.tex"})
		done <- err
	}()

	select {
	case err := <-done:
		assert.EqualError(t, err, "boom")
	case <-time.After(5 * time.Second):
		t.Fatal("Compose waited for the abandoned sibling")
	}
}

func TestCompose_MergeFailure(t *testing.T) {
	mergeErr := ferrors.MergeError("merge artifacts").Build()
	var transitions []State

	_, err := New(
		WithCompiler(transform.NoopCompiler{}),
		WithMerger(&spyMerger{err: mergeErr}),
		WithObserver(func(_, to State) { transitions = append(transitions, to) }),
	).Compose(context.Background(), Request{Label: "Test", Primary: "/d/a.tex", Secondary: "/d/b.tex"})

	assert.Same(t, mergeErr, err)
	assert.Equal(t, []State{StateCompiling, StateMerging, StateFailed}, transitions)
}

func TestCompose_OutputCollidingWithArtifact(t *testing.T) {
	dir := t.TempDir()
	merger := &spyMerger{}
	var transitions []State

	pkg, err := New(
		WithCompiler(transform.NoopCompiler{}),
		WithMerger(merger),
		WithObserver(func(_, to State) { transitions = append(transitions, to) }),
	).Compose(context.Background(), Request{
		Label:     "Cover Letter",
		Primary:   filepath.Join(dir, "cover-letter.tex"),
		Secondary: filepath.Join(dir, "resume.tex"),
	})

	require.Error(t, err)
	assert.Nil(t, pkg)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	assert.Zero(t, merger.callCount(), "the merger must not be handed a colliding package")
	assert.Equal(t, []State{StateCompiling, StateFailed}, transitions)
}

func TestCompose_Validation(t *testing.T) {
	c := New(WithCompiler(transform.NoopCompiler{}), WithMerger(transform.NoopMerger{}))

	for _, req := range []Request{
		{Label: "", Primary: "a.tex", Secondary: "b.tex"},
		{Label: "Test", Primary: "a.tex"},
		{Label: "Test", Secondary: "b.tex"},
	} {
		_, err := c.Compose(context.Background(), req)
		require.Error(t, err)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	}
}

func TestCompose_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	compiler := transform.CompilerFunc(func(context.Context, string) (string, error) {
		cancel()
		<-release
		return "", nil
	})

	_, err := New(WithCompiler(compiler), WithMerger(&spyMerger{})).
		Compose(ctx, Request{Label: "Test", Primary: "/d/a.tex", Secondary: "/d/b.tex"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryRuntime))
}

func TestCompose_DefaultStrategiesHonourStaleness(t *testing.T) {
	longAgo := time.Date(1986, time.August, 25, 0, 30, 0, 0, time.UTC)
	recent := time.Now().Add(-time.Minute).Truncate(time.Second)

	tests := []struct {
		name         string
		sourceTime   time.Time
		artifactTime time.Time
		wantCommands []string
		wantHits     int
	}{
		{"artifacts newer", longAgo, recent, []string{"gs"}, 2},
		{"artifacts older", recent, longAgo, []string{"pdflatex", "pdflatex", "gs"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := testutil.NewWorkspace(t)
			dir := ws.Dir
			letter := ws.WriteFileAt("fileA.tex", "tex", tt.sourceTime)
			resume := ws.WriteFileAt("fileB.tex", "tex", tt.sourceTime)
			ws.WriteFileAt("fileA.pdf", "pdf", tt.artifactTime)
			ws.WriteFileAt("fileB.pdf", "pdf", tt.artifactTime)

			runner := &recordingRunner{}
			c := New(
				WithCompiler(transform.NewLatexCompiler(runner)),
				WithMerger(transform.NewGhostscriptMerger(runner)),
			)
			pkg, err := c.Compose(context.Background(), Request{Label: "Test", Primary: letter, Secondary: resume})
			require.NoError(t, err)

			assert.Equal(t, tt.wantCommands, runner.names())
			assert.Equal(t, tt.wantHits, pkg.CacheHits)
			assert.Equal(t, filepath.Join(dir, "test.pdf"), pkg.Output)

			last := runner.commands[len(runner.commands)-1]
			assert.Equal(t, []string{
				"-dBATCH", "-dNOPAUSE", "-sDEVICE=pdfwrite",
				"-sOutputFile=" + filepath.Join(dir, "test.pdf"),
				filepath.Join(dir, "fileA.pdf"),
				filepath.Join(dir, "fileB.pdf"),
			}, last.Args)
		})
	}
}

// cacheRecorder counts cache results and ignores everything else.
type cacheRecorder struct {
	metrics.NoopRecorder
	mu     sync.Mutex
	hits   int
	misses int
}

func (r *cacheRecorder) IncCacheResult(hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func TestCompose_ReportsCacheResults(t *testing.T) {
	longAgo := time.Date(1986, time.August, 25, 0, 30, 0, 0, time.UTC)
	recent := time.Now().Add(-time.Minute).Truncate(time.Second)

	ws := testutil.NewWorkspace(t)
	letter := ws.WriteFileAt("coverletter.tex", "tex", longAgo)
	ws.WriteFileAt("coverletter.pdf", "pdf", recent)
	resume := ws.WriteFileAt("resume.tex", "tex", recent)
	ws.WriteFileAt("resume.pdf", "pdf", longAgo)

	recorder := &cacheRecorder{}
	runner := &recordingRunner{}
	pkg, err := New(
		WithCompiler(transform.NewLatexCompiler(runner)),
		WithMerger(transform.NoopMerger{}),
		WithRecorder(recorder),
	).Compose(context.Background(), Request{Label: "Test", Primary: letter, Secondary: resume})
	require.NoError(t, err)

	assert.Equal(t, 1, recorder.hits)
	assert.Equal(t, 1, recorder.misses)
	assert.Equal(t, 1, pkg.CacheHits)
	assert.Equal(t, []string{"pdflatex"}, runner.names())
}

func TestCompose_MissingArtifactsTriggerCompile(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	letter := ws.WriteFile("coverletter.tex", "a")
	resume := ws.WriteFile("resume.tex", "b")

	runner := &recordingRunner{}
	_, err := New(WithCompiler(transform.NewLatexCompiler(runner)), WithMerger(transform.NoopMerger{})).
		Compose(context.Background(), Request{Label: "Test", Primary: letter, Secondary: resume})
	require.NoError(t, err)
	assert.Equal(t, []string{"pdflatex", "pdflatex"}, runner.names())
}

type fakePublisher struct {
	got *Package
	err error
}

func (f *fakePublisher) Publish(_ context.Context, pkg *Package) error {
	f.got = pkg
	return f.err
}

func TestBuild_EndToEnd(t *testing.T) {
	letter, resume := testutil.NewWorkspace(t).WriteFixtures()
	store, err := journal.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	pub := &fakePublisher{}

	c := New(
		WithCompiler(transform.NoopCompiler{}),
		WithMerger(transform.NoopMerger{}),
		WithJournal(store),
		WithPublisher(pub),
	)
	pkg, err := c.Build(context.Background(), Request{Label: "Test", Primary: letter, Secondary: resume})
	require.NoError(t, err)

	assert.Equal(t, testutil.GoldenPackageName, pkg.Name)
	assert.NotEmpty(t, pkg.ID)
	assert.Equal(t, filepath.Join(filepath.Dir(letter), "test.pdf"), pkg.Output)
	assert.Same(t, pkg, pub.got)

	entries, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, pkg.ID, entries[0].ID)
	assert.Equal(t, testutil.GoldenPackageName, entries[0].Package)
	assert.Equal(t, journal.StatusSuccess, entries[0].Status)
}

func TestBuild_FailuresAreJournaled(t *testing.T) {
	letter, resume := testutil.NewWorkspace(t).WriteFixtures()
	store, err := journal.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	compileErr := ferrors.CompileError("compile source document").Build()
	c := New(
		WithCompiler(transform.CompilerFunc(func(context.Context, string) (string, error) { return "", compileErr })),
		WithMerger(transform.NoopMerger{}),
		WithJournal(store),
	)
	_, err = c.Build(context.Background(), Request{Label: "Test", Primary: letter, Secondary: resume})
	assert.Same(t, compileErr, err)

	entries, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, journal.StatusFailed, entries[0].Status)
	assert.Equal(t, testutil.GoldenPackageName, entries[0].Package)
	assert.Contains(t, entries[0].Error, "compile source document")
}

func TestBuild_UnreadableSource(t *testing.T) {
	dir := t.TempDir()
	merger := &spyMerger{}
	_, err := New(WithCompiler(transform.NoopCompiler{}), WithMerger(merger)).
		Build(context.Background(), Request{Label: "Test", Primary: filepath.Join(dir, "a.tex"), Secondary: filepath.Join(dir, "b.tex")})

	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
	assert.Zero(t, merger.callCount())
}

func TestBuild_PublisherError(t *testing.T) {
	letter, resume := testutil.NewWorkspace(t).WriteFixtures()
	upstream := errors.New("upload rejected")

	_, err := New(
		WithCompiler(transform.NoopCompiler{}),
		WithMerger(transform.NoopMerger{}),
		WithPublisher(&fakePublisher{err: upstream}),
	).Build(context.Background(), Request{Label: "Test", Primary: letter, Secondary: resume})

	require.Error(t, err)
	assert.ErrorIs(t, err, upstream)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryRuntime))
}

type failingJournal struct{}

func (failingJournal) Record(context.Context, journal.Entry) error { return errors.New("disk full") }

func TestBuild_JournalFailureDoesNotFailBuild(t *testing.T) {
	letter, resume := testutil.NewWorkspace(t).WriteFixtures()
	var logs bytes.Buffer
	pkg, err := New(
		WithCompiler(transform.NoopCompiler{}),
		WithMerger(transform.NoopMerger{}),
		WithJournal(failingJournal{}),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	).Build(context.Background(), Request{Label: "Test", Primary: letter, Secondary: resume})

	require.NoError(t, err)
	assert.Equal(t, StateDone, pkg.State)
	assert.Contains(t, logs.String(), `level=WARN msg="Failed to record build in journal"`)
}
