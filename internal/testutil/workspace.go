// Package testutil contains fixtures shared by package and command tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const (
	// testDirPermissions is the permission mode for creating test directories.
	testDirPermissions = 0o750

	// testFilePermissions is the permission mode for creating test files.
	testFilePermissions = 0o600
)

// Fixture documents and the package name they produce under the label GoldenLabel.
const (
	LetterFixture     = "Dear hiring manager,\n"
	ResumeFixture     = "Jane Doe - Resume\n"
	GoldenLabel       = "Test"
	GoldenPackageName = "test_7e36968a54"
)

// Workspace is a temporary directory holding source documents and their artifacts.
type Workspace struct {
	t   *testing.T
	Dir string
}

// NewWorkspace creates an empty workspace removed at the end of the test.
func NewWorkspace(t *testing.T) *Workspace {
	t.Helper()
	return &Workspace{t: t, Dir: t.TempDir()}
}

// Path returns the absolute path of rel inside the workspace.
func (w *Workspace) Path(rel string) string {
	return filepath.Join(w.Dir, rel)
}

// WriteFile writes content to rel, creating parent directories, and returns its path.
func (w *Workspace) WriteFile(rel, content string) string {
	w.t.Helper()
	p := w.Path(rel)
	if err := os.MkdirAll(filepath.Dir(p), testDirPermissions); err != nil {
		w.t.Fatalf("create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(p, []byte(content), testFilePermissions); err != nil {
		w.t.Fatalf("write %s: %v", rel, err)
	}
	return p
}

// WriteFileAt writes rel and sets its modification time.
func (w *Workspace) WriteFileAt(rel, content string, mtime time.Time) string {
	w.t.Helper()
	p := w.WriteFile(rel, content)
	if err := os.Chtimes(p, mtime, mtime); err != nil {
		w.t.Fatalf("set mtime of %s: %v", rel, err)
	}
	return p
}

// WriteFixtures writes the golden cover letter and resume and returns their paths.
func (w *Workspace) WriteFixtures() (letter, resume string) {
	w.t.Helper()
	return w.WriteFile("coverletter.tex", LetterFixture), w.WriteFile("resume.tex", ResumeFixture)
}
