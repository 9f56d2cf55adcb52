// Package version holds build metadata injected at link time:
//
//	go build -ldflags "-X git.home.luguber.info/inful/coverpack/internal/version.Version=v1.0.0"
package version

import "fmt"

// Version is the release version of the coverpack binary.
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by --version.
func String() string {
	return fmt.Sprintf("coverpack %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
