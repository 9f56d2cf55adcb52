// Package staleness decides whether a derived artifact is up to date with its source.
package staleness

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/coverpack/internal/foundation/errors"
)

// StatFunc returns file info for a path; os.Stat by default.
type StatFunc func(name string) (fs.FileInfo, error)

// Oracle compares source and artifact modification times.
// It holds no state besides the stat function and is safe for concurrent use.
type Oracle struct {
	stat StatFunc
}

// NewOracle returns an Oracle backed by os.Stat.
func NewOracle() *Oracle {
	return &Oracle{stat: os.Stat}
}

// WithStat replaces the stat function. Nil keeps the current one.
func (o *Oracle) WithStat(stat StatFunc) *Oracle {
	if stat != nil {
		o.stat = stat
	}
	return o
}

// IsFresh reports whether artifact exists and its modification time is not older
// than source's. Equal timestamps count as fresh.
//
// A missing artifact is the normal "needs build" case and returns (false, nil).
// Any other stat failure, or a source that cannot be stat'ed, is a filesystem error.
func (o *Oracle) IsFresh(source, artifact string) (bool, error) {
	stat := o.stat
	if stat == nil {
		stat = os.Stat
	}

	artifactInfo, err := stat(artifact)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, ferrors.IOError("stat derived artifact").
			WithCause(err).
			WithContext("path", artifact).
			Build()
	}

	sourceInfo, err := stat(source)
	if err != nil {
		return false, ferrors.IOError("stat source document").
			WithCause(err).
			WithContext("path", source).
			Build()
	}

	return !sourceInfo.ModTime().After(artifactInfo.ModTime()), nil
}

// DerivedPath returns source with its extension replaced by ext, in the same directory.
// ext may be given with or without the leading dot.
func DerivedPath(source, ext string) string {
	ext = "." + strings.TrimPrefix(ext, ".")
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(filepath.Dir(source), base+ext)
}
