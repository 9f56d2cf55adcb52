// Package transform holds the two pluggable build steps: compiling one source document
// into one derived artifact, and merging an ordered list of artifacts into one.
//
// The defaults shell out to pdflatex and Ghostscript through a process.Runner. Callers
// swap either step as a whole (a different toolchain, a no-op for tests) without the
// orchestrator knowing.
package transform

import (
	"context"
	"errors"
)

// DefaultExtension is the derived artifact extension used by the default toolchain.
const DefaultExtension = "pdf"

var (
	// ErrCompileFailed is wrapped by every error returned from LatexCompiler.
	ErrCompileFailed = errors.New("compile failed")
	// ErrMergeFailed is wrapped by every error returned from GhostscriptMerger.
	ErrMergeFailed = errors.New("merge failed")
)

// Compiler turns one source document into one derived artifact and returns its path.
type Compiler interface {
	Compile(ctx context.Context, source string) (string, error)
}

// CachingCompiler is implemented by compilers that can report whether the artifact
// was reused instead of rebuilt.
type CachingCompiler interface {
	Compiler
	CompileCached(ctx context.Context, source string) (artifact string, cacheHit bool, err error)
}

// Merger combines an ordered list of artifacts into one artifact named after label.
type Merger interface {
	Merge(ctx context.Context, label string, artifacts []string) (string, error)
}

// CompilerFunc adapts a plain function to Compiler.
type CompilerFunc func(ctx context.Context, source string) (string, error)

func (f CompilerFunc) Compile(ctx context.Context, source string) (string, error) {
	return f(ctx, source)
}

// MergerFunc adapts a plain function to Merger.
type MergerFunc func(ctx context.Context, label string, artifacts []string) (string, error)

func (f MergerFunc) Merge(ctx context.Context, label string, artifacts []string) (string, error) {
	return f(ctx, label, artifacts)
}
