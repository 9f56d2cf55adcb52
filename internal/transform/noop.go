package transform

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/coverpack/internal/logfields"
	"git.home.luguber.info/inful/coverpack/internal/staleness"
)

// NoopCompiler resolves to the conventional derived path without running anything.
type NoopCompiler struct {
	Extension string
}

func (n NoopCompiler) Compile(_ context.Context, source string) (string, error) {
	ext := n.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	artifact := staleness.DerivedPath(source, ext)
	slog.Debug("NoopCompiler skipping compile", logfields.Source(source), logfields.Artifact(artifact))
	return artifact, nil
}

// NoopMerger resolves to the conventional merge output path without running anything.
type NoopMerger struct {
	Extension string
}

func (n NoopMerger) Merge(_ context.Context, label string, artifacts []string) (string, error) {
	output, err := MergedPath(label, artifacts, n.Extension)
	if err != nil {
		return "", err
	}
	slog.Debug("NoopMerger skipping merge", logfields.Output(output), slog.Int("inputs", len(artifacts)))
	return output, nil
}
