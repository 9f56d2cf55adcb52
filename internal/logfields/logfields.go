package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyPackage    = "package"
	KeyLabel      = "label"
	KeySource     = "source"
	KeyArtifact   = "artifact"
	KeyOutput     = "output"
	KeyStage      = "stage"
	KeyState      = "state"
	KeyCommand    = "command"
	KeyExitCode   = "exit_code"
	KeyCacheHit   = "cache_hit"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Package(name string) slog.Attr   { return slog.String(KeyPackage, name) }
func Label(l string) slog.Attr        { return slog.String(KeyLabel, l) }
func Source(p string) slog.Attr       { return slog.String(KeySource, p) }
func Artifact(p string) slog.Attr     { return slog.String(KeyArtifact, p) }
func Output(p string) slog.Attr       { return slog.String(KeyOutput, p) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func State(s string) slog.Attr        { return slog.String(KeyState, s) }
func Command(c string) slog.Attr      { return slog.String(KeyCommand, c) }
func ExitCode(code int) slog.Attr     { return slog.Int(KeyExitCode, code) }
func CacheHit(hit bool) slog.Attr     { return slog.Bool(KeyCacheHit, hit) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
