// Package watch rebuilds a package whenever one of its source documents changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	ferrors "git.home.luguber.info/inful/coverpack/internal/foundation/errors"
	"git.home.luguber.info/inful/coverpack/internal/logfields"
)

// DefaultDebounce is the quiet period after the last relevant event before a rebuild starts.
const DefaultDebounce = 300 * time.Millisecond

// supportExtensions are TeX support files that affect the output when edited next
// to a source document.
var supportExtensions = []string{".cls", ".sty", ".bib"}

// RebuildFunc runs one build. Its error is logged and does not stop watching.
type RebuildFunc func(ctx context.Context) error

// Watcher watches the directories of a set of source documents.
type Watcher struct {
	sources  []string
	dirs     []string
	rebuild  RebuildFunc
	debounce time.Duration
	logger   *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New returns a Watcher for sources. rebuild must not be nil.
func New(sources []string, rebuild RebuildFunc, opts ...Option) (*Watcher, error) {
	if len(sources) == 0 {
		return nil, ferrors.ValidationError("watch requires at least one source").Build()
	}
	if rebuild == nil {
		return nil, ferrors.InternalError("watch requires a rebuild function").Build()
	}
	w := &Watcher{rebuild: rebuild, debounce: DefaultDebounce, logger: slog.Default()}
	for _, src := range sources {
		abs, err := filepath.Abs(src)
		if err != nil {
			return nil, ferrors.IOError("resolve source path").WithCause(err).WithContext("path", src).Build()
		}
		w.sources = append(w.sources, abs)
		if dir := filepath.Dir(abs); !slices.Contains(w.dirs, dir) {
			w.dirs = append(w.dirs, dir)
		}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Relevant reports whether a change to path should trigger a rebuild.
func (w *Watcher) Relevant(path string) bool {
	clean := filepath.Clean(path)
	if slices.Contains(w.sources, clean) {
		return true
	}
	if !slices.Contains(w.dirs, filepath.Dir(clean)) {
		return false
	}
	return slices.Contains(supportExtensions, strings.ToLower(filepath.Ext(clean)))
}

// Run builds once, then rebuilds after every debounced burst of relevant changes
// until ctx is canceled. A change arriving while a build runs queues exactly one
// follow-up build.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return ferrors.RuntimeError("create file watcher").WithCause(fmt.Errorf("fsnotify: %w", err)).Build()
	}
	defer func() { _ = fsw.Close() }()

	for _, dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			return ferrors.IOError("watch directory").WithCause(err).WithContext("path", dir).Build()
		}
	}

	requests := make(chan struct{}, 1)
	deb := newDebouncer(w.debounce, requests)
	defer deb.stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.worker(ctx, requests)
	}()
	defer wg.Wait()

	// initial build
	requests <- struct{}{}
	w.logger.Info("Watching for changes", slog.Any("dirs", w.dirs))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopped watching")
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod || !w.Relevant(ev.Name) {
				continue
			}
			w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			deb.trigger()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// worker serializes rebuilds. Requests that arrive during a build collapse into
// the single slot of requests.
func (w *Watcher) worker(ctx context.Context, requests <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-requests:
			if ctx.Err() != nil {
				return
			}
			w.logger.Info("Change detected; rebuilding package")
			if err := w.rebuild(ctx); err != nil {
				w.logger.Warn("Rebuild failed", logfields.Error(err))
			}
		}
	}
}

// debouncer delivers one signal on out after delay has passed without a trigger.
type debouncer struct {
	mu    sync.Mutex
	timer *time.Timer
	delay time.Duration
	out   chan<- struct{}
}

func newDebouncer(delay time.Duration, out chan<- struct{}) *debouncer {
	return &debouncer{delay: delay, out: out}
}

func (d *debouncer) trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		select {
		case d.out <- struct{}{}:
		default:
		}
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
