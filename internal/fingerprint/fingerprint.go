// Package fingerprint derives a package identity from the content of its source files.
//
// The digest is order independent over the set of paths: paths are sorted before their
// bytes are fed into a single SHA-1 accumulator, so any permutation of the same files
// yields the same digest and any changed byte yields a different one. Nothing is cached;
// every call re-reads the files.
package fingerprint

import (
	"context"
	"crypto/sha1" //nolint:gosec // identity, not security; keeps names stable with earlier packages
	"encoding/hex"
	"os"
	"slices"

	"golang.org/x/sync/errgroup"

	ferrors "git.home.luguber.info/inful/coverpack/internal/foundation/errors"
	"git.home.luguber.info/inful/coverpack/internal/foundation/normalization"
)

// NameLength is the number of hex digest characters kept in a package name.
const NameLength = 10

// Generator computes content digests for sets of files.
type Generator struct {
	// ReadConcurrency bounds concurrent file reads. Zero reads all files at once.
	ReadConcurrency int

	readFile func(string) ([]byte, error)
}

// NewGenerator returns a Generator reading from the local filesystem.
func NewGenerator() *Generator {
	return &Generator{readFile: os.ReadFile}
}

// Digest returns the full lowercase hex SHA-1 of the contents of paths, taken in
// lexicographic path order. Reads overlap; hashing is strictly sequential.
func (g *Generator) Digest(ctx context.Context, paths []string) (string, error) {
	if len(paths) == 0 {
		return "", ferrors.ValidationError("fingerprint requires at least one file").Build()
	}
	ordered := slices.Clone(paths)
	slices.Sort(ordered)

	readFile := g.readFile
	if readFile == nil {
		readFile = os.ReadFile
	}

	contents := make([][]byte, len(ordered))
	eg, egCtx := errgroup.WithContext(ctx)
	if g.ReadConcurrency > 0 {
		eg.SetLimit(g.ReadConcurrency)
	}
	for i, path := range ordered {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			data, err := readFile(path)
			if err != nil {
				return ferrors.IOError("read source file").
					WithCause(err).
					WithContext("path", path).
					Build()
			}
			contents[i] = data
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return "", err
	}

	h := sha1.New() //nolint:gosec
	for _, data := range contents {
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// PackageName returns "<param-case label>_<first NameLength digest chars>".
func (g *Generator) PackageName(ctx context.Context, label string, paths []string) (string, error) {
	digest, err := g.Digest(ctx, paths)
	if err != nil {
		return "", err
	}
	return Name(label, digest)
}

// Name composes a package name from a recipient label and a full digest.
func Name(label, digest string) (string, error) {
	prefix := normalization.ParamCase(label)
	if prefix == "" {
		return "", ferrors.ValidationError("recipient label is empty after normalization").
			WithContext("label", label).
			Build()
	}
	if len(digest) < NameLength {
		return "", ferrors.InternalError("digest shorter than package name hash").
			WithContext("digest", digest).
			Build()
	}
	return prefix + "_" + digest[:NameLength], nil
}
