package transform

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/coverpack/internal/foundation/errors"
	"git.home.luguber.info/inful/coverpack/internal/foundation/normalization"
	"git.home.luguber.info/inful/coverpack/internal/logfields"
	"git.home.luguber.info/inful/coverpack/internal/process"
)

// GhostscriptMerger concatenates PDFs with gs's pdfwrite device.
type GhostscriptMerger struct {
	Binary    string
	Extension string
	Timeout   time.Duration

	runner process.Runner
	logger *slog.Logger
}

// NewGhostscriptMerger returns a merger running gs through runner.
func NewGhostscriptMerger(runner process.Runner) *GhostscriptMerger {
	if runner == nil {
		runner = process.NewExecRunner()
	}
	return &GhostscriptMerger{
		Binary:    "gs",
		Extension: DefaultExtension,
		runner:    runner,
		logger:    slog.Default(),
	}
}

// WithLogger sets a custom logger.
func (m *GhostscriptMerger) WithLogger(l *slog.Logger) *GhostscriptMerger {
	if l != nil {
		m.logger = l
	}
	return m
}

// Merge writes artifacts, in order, to "<dir of first artifact>/<param-case label>.<ext>".
func (m *GhostscriptMerger) Merge(ctx context.Context, label string, artifacts []string) (string, error) {
	output, err := MergedPath(label, artifacts, m.Extension)
	if err != nil {
		return "", err
	}

	args := []string{"-dBATCH", "-dNOPAUSE", "-sDEVICE=pdfwrite", "-sOutputFile=" + output}
	args = append(args, artifacts...)
	cmd := process.Command{Name: m.Binary, Args: args, Timeout: m.Timeout}

	m.logger.Info("Merging artifacts", logfields.Output(output), logfields.Command(cmd.CommandLine()))
	if _, err := process.RunChecked(ctx, m.runner, cmd); err != nil {
		return "", ferrors.MergeError("merge artifacts").
			WithCause(fmt.Errorf("%w: %w", ErrMergeFailed, err)).
			WithContext("output", output).
			WithContext("command", cmd.CommandLine()).
			Build()
	}
	return output, nil
}

// MergedPath is the conventional merge output path for label and artifacts. It is a
// validation error for the output to coincide with one of the artifacts.
func MergedPath(label string, artifacts []string, ext string) (string, error) {
	if len(artifacts) == 0 {
		return "", ferrors.ValidationError("merge requires at least one artifact").Build()
	}
	name := normalization.ParamCase(label)
	if name == "" {
		return "", ferrors.ValidationError("recipient label is empty after normalization").
			WithContext("label", label).
			Build()
	}
	if ext == "" {
		ext = DefaultExtension
	}
	output := filepath.Join(filepath.Dir(artifacts[0]), name+"."+strings.TrimPrefix(ext, "."))
	for _, a := range artifacts {
		if filepath.Clean(a) == output {
			return "", ferrors.ValidationError("merge output would overwrite an input artifact").
				WithContext("label", label).
				WithContext("output", output).
				Build()
		}
	}
	return output, nil
}
