package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/coverpack/internal/foundation/errors"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "coverpack.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_ResolvesRelativePathsAndDefaults(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, dir, `
version: "1.0"
recipient: "  Acme Corp  "
files:
  letter: letters/acme/coverletter.tex
  resume: /abs/resume.tex
toolchain:
  compiler:
    args: ["-interaction=nonstopmode"]
    timeout: 90s
journal:
  path: state/journal.db
logging:
  level: DEBUG
`)

	cfg, err := Load(p)
	require.NoError(t, err)

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", cfg.Recipient)
	assert.Equal(t, filepath.Join(abs, "letters", "acme", "coverletter.tex"), cfg.Files.Letter)
	assert.Equal(t, "/abs/resume.tex", cfg.Files.Resume)
	assert.Equal(t, filepath.Join(abs, "state", "journal.db"), cfg.Journal.Path)
	assert.Equal(t, DefaultCompilerBinary, cfg.Toolchain.Compiler.Binary)
	assert.Equal(t, DefaultMergerBinary, cfg.Toolchain.Merger.Binary)
	assert.Equal(t, DefaultOutputExtension, cfg.Toolchain.OutputExtension)
	assert.Equal(t, 90*time.Second, cfg.Toolchain.Compiler.TimeoutDuration())
	assert.Zero(t, cfg.Toolchain.Merger.TimeoutDuration())
	assert.Equal(t, LogLevelDebug, cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
	assert.Equal(t, p, cfg.Path())
	assert.Equal(t, []string{cfg.Files.Letter, cfg.Files.Resume}, cfg.Sources())
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("COVERPACK_RECIPIENT", "Globex")
	dir := t.TempDir()
	p := writeConfig(t, dir, `
version: "1.0"
recipient: ${COVERPACK_RECIPIENT}
files: { letter: a.tex, resume: b.tex }
`)

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "Globex", cfg.Recipient)
}

func TestLoad_DotEnvNeverOverridesEnvironment(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("COVERPACK_TEST_FROM_FILE=file\nCOVERPACK_TEST_PRESET=file\n"), 0o600))
	t.Setenv("COVERPACK_TEST_PRESET", "process")
	// registers cleanup for the variable loaded from .env
	t.Setenv("COVERPACK_TEST_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("COVERPACK_TEST_FROM_FILE"))

	p := writeConfig(t, dir, `
version: "1.0"
recipient: ${COVERPACK_TEST_FROM_FILE}-${COVERPACK_TEST_PRESET}
files: { letter: a.tex, resume: b.tex }
`)

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "file-process", cfg.Recipient)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		category ferrors.ErrorCategory
		contains string
	}{
		{
			name:     "wrong version",
			body:     "version: \"2.0\"\nrecipient: x\nfiles: { letter: a.tex, resume: b.tex }\n",
			category: ferrors.CategoryConfig,
			contains: "unsupported configuration version",
		},
		{
			name:     "missing recipient",
			body:     "version: \"1.0\"\nfiles: { letter: a.tex, resume: b.tex }\n",
			category: ferrors.CategoryConfig,
			contains: "recipient cannot be empty",
		},
		{
			name:     "punctuation-only recipient",
			body:     "version: \"1.0\"\nrecipient: \"--\"\nfiles: { letter: a.tex, resume: b.tex }\n",
			category: ferrors.CategoryConfig,
			contains: "letter or digit",
		},
		{
			name:     "missing resume",
			body:     "version: \"1.0\"\nrecipient: x\nfiles: { letter: a.tex }\n",
			category: ferrors.CategoryConfig,
			contains: "files.resume",
		},
		{
			name:     "same document twice",
			body:     "version: \"1.0\"\nrecipient: x\nfiles: { letter: a.tex, resume: ./a.tex }\n",
			category: ferrors.CategoryConfig,
			contains: "must be different",
		},
		{
			name:     "bad timeout",
			body:     "version: \"1.0\"\nrecipient: x\nfiles: { letter: a.tex, resume: b.tex }\ntoolchain: { merger: { timeout: soon } }\n",
			category: ferrors.CategoryConfig,
			contains: "toolchain.merger.timeout",
		},
		{
			name:     "unknown log level",
			body:     "version: \"1.0\"\nrecipient: x\nfiles: { letter: a.tex, resume: b.tex }\nlogging: { level: loud }\n",
			category: ferrors.CategoryConfig,
			contains: "logging.level",
		},
		{
			name:     "malformed yaml",
			body:     "version: [\n",
			category: ferrors.CategoryConfig,
			contains: "unmarshal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeConfig(t, t.TempDir(), tt.body)
			_, err := Load(p)
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, tt.category), "got %v", err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestInit_RoundTrips(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "coverpack.yaml")
	require.NoError(t, Init(p, false))

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", cfg.Recipient)
	assert.Equal(t, 2*time.Minute, cfg.Toolchain.Compiler.TimeoutDuration())
	assert.Equal(t, filepath.Join(filepath.Dir(p), DefaultJournalPath), cfg.Journal.Path)
	assert.Equal(t, Example().Toolchain.Compiler.Args, cfg.Toolchain.Compiler.Args)
}

func TestInit_RefusesOverwrite(t *testing.T) {
	p := writeConfig(t, t.TempDir(), "keep me")

	err := Init(p, false)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))

	require.NoError(t, Init(p, true))
	_, err = Load(p)
	assert.NoError(t, err)
}

func TestLogLevel_SlogLevel(t *testing.T) {
	assert.Equal(t, LogLevelWarn, NormalizeLogLevel(" Warning "))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("chatty"))
	assert.Equal(t, LogFormatJSON, NormalizeLogFormat("JSON"))
	assert.Equal(t, "DEBUG", LogLevelDebug.SlogLevel().String())
	assert.Equal(t, "ERROR", LogLevelError.SlogLevel().String())
}
