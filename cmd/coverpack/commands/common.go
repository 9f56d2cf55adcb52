package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/coverpack/internal/composer"
	"git.home.luguber.info/inful/coverpack/internal/config"
	ferrors "git.home.luguber.info/inful/coverpack/internal/foundation/errors"
	"git.home.luguber.info/inful/coverpack/internal/journal"
	"git.home.luguber.info/inful/coverpack/internal/logfields"
	"git.home.luguber.info/inful/coverpack/internal/metrics"
	"git.home.luguber.info/inful/coverpack/internal/process"
	"git.home.luguber.info/inful/coverpack/internal/transform"
)

// Global carries process-wide state shared by all subcommands.
type Global struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
}

// NewGlobal returns a Global writing to the process's standard streams.
func NewGlobal(ctx context.Context) *Global {
	return &Global{Ctx: ctx, Stdout: os.Stdout, Stderr: os.Stderr}
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"coverpack.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Compile both documents and merge them into the package"`
	Name    NameCmd    `cmd:"" help:"Print the content-derived package name without building"`
	Watch   WatchCmd   `cmd:"" help:"Rebuild the package whenever a source document changes"`
	History HistoryCmd `cmd:"" help:"List recorded builds from the journal"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; set up logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(newLogger(os.Stderr, level, config.LogFormatText))
	return nil
}

// loadConfig loads the configuration and reconfigures logging from it. --verbose
// always wins over the configured level.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level.SlogLevel()
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(newLogger(g.Stderr, level, cfg.Logging.Format))
	return cfg, nil
}

func newLogger(w io.Writer, level slog.Level, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// request maps the configured package onto a composer request.
func request(cfg *config.Config) composer.Request {
	return composer.Request{
		Label:     cfg.Recipient,
		Primary:   cfg.Files.Letter,
		Secondary: cfg.Files.Resume,
	}
}

// strategies returns the compile and merge strategies for cfg. Dry runs resolve
// paths without invoking any external program.
func strategies(cfg *config.Config, dryRun bool) (transform.Compiler, transform.Merger) {
	ext := cfg.Toolchain.OutputExtension
	if dryRun {
		return transform.NoopCompiler{Extension: ext}, transform.NoopMerger{Extension: ext}
	}

	runner := process.NewExecRunner()

	compiler := transform.NewLatexCompiler(runner)
	compiler.Binary = cfg.Toolchain.Compiler.Binary
	compiler.Args = cfg.Toolchain.Compiler.Args
	compiler.Extension = ext
	compiler.Timeout = cfg.Toolchain.Compiler.TimeoutDuration()

	merger := transform.NewGhostscriptMerger(runner)
	merger.Binary = cfg.Toolchain.Merger.Binary
	merger.Extension = ext
	merger.Timeout = cfg.Toolchain.Merger.TimeoutDuration()

	return compiler, merger
}

// checkToolchain fails early with a readable error when a program is missing.
func checkToolchain(cfg *config.Config) error {
	for _, bin := range []string{cfg.Toolchain.Compiler.Binary, cfg.Toolchain.Merger.Binary} {
		if _, err := process.LookPath(bin); err != nil {
			return ferrors.ConfigError("toolchain program not found in PATH").
				WithCause(err).
				WithContext("binary", bin).
				Build()
		}
	}
	return nil
}

// openJournal opens the configured journal. It returns nil when the journal is disabled.
func openJournal(cfg *config.Config) (*journal.Store, error) {
	if cfg.Journal.Path == "" {
		return nil, nil
	}
	store, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return nil, ferrors.JournalError("open build journal").
			WithCause(err).
			WithContext("path", cfg.Journal.Path).
			Build()
	}
	return store, nil
}

// newComposer wires a composer for cfg. The returned cleanup closes the journal.
func newComposer(cfg *config.Config, dryRun bool, recorder metrics.Recorder) (*composer.Composer, func()) {
	compiler, merger := strategies(cfg, dryRun)
	opts := []composer.Option{
		composer.WithCompiler(compiler),
		composer.WithMerger(merger),
		composer.WithRecorder(recorder),
		composer.WithLogger(slog.Default()),
	}

	cleanup := func() {}
	if !dryRun {
		store, err := openJournal(cfg)
		switch {
		case err != nil:
			// builds never fail because of the journal
			slog.Log(context.Background(), ferrors.LogLevel(err), "Build journal unavailable", logfields.Error(err))
		case store != nil:
			opts = append(opts, composer.WithJournal(store))
			cleanup = func() {
				if err := store.Close(); err != nil {
					slog.Warn("Failed to close build journal", logfields.Error(err))
				}
			}
		}
	}
	return composer.New(opts...), cleanup
}
