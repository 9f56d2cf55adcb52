package composer

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/coverpack/internal/journal"
	"git.home.luguber.info/inful/coverpack/internal/metrics"
	"git.home.luguber.info/inful/coverpack/internal/transform"
)

// Namer computes the package name for a label and a set of source files.
type Namer interface {
	PackageName(ctx context.Context, label string, paths []string) (string, error)
}

// Publisher hands a finished package to an external collaborator (upload, link
// shortening, ...). It runs only after a successful merge.
type Publisher interface {
	Publish(ctx context.Context, pkg *Package) error
}

// Option configures a Composer. Nil arguments keep the default.
type Option func(*Composer)

// WithCompiler replaces the compile strategy.
func WithCompiler(c transform.Compiler) Option {
	return func(cp *Composer) {
		if c != nil {
			cp.compiler = c
		}
	}
}

// WithMerger replaces the merge strategy.
func WithMerger(m transform.Merger) Option {
	return func(cp *Composer) {
		if m != nil {
			cp.merger = m
		}
	}
}

// WithNamer replaces the package name generator used by Build.
func WithNamer(n Namer) Option {
	return func(cp *Composer) {
		if n != nil {
			cp.namer = n
		}
	}
}

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(cp *Composer) {
		if r != nil {
			cp.recorder = r
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(cp *Composer) {
		if l != nil {
			cp.logger = l
		}
	}
}

// WithJournal records every Build outcome.
func WithJournal(j journal.Recorder) Option {
	return func(cp *Composer) {
		if j != nil {
			cp.journal = j
		}
	}
}

// WithPublisher hands successful packages to p.
func WithPublisher(p Publisher) Option {
	return func(cp *Composer) {
		if p != nil {
			cp.publisher = p
		}
	}
}

// WithObserver registers a state transition callback.
func WithObserver(o Observer) Option {
	return func(cp *Composer) {
		if o != nil {
			cp.observers = append(cp.observers, o)
		}
	}
}
