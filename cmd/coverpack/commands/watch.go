package commands

import (
	"context"
	"time"

	"git.home.luguber.info/inful/coverpack/internal/metrics"
	"git.home.luguber.info/inful/coverpack/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Debounce time.Duration `help:"Quiet period after the last change before rebuilding" default:"300ms"`
	DryRun   bool          `name:"dry-run" help:"Resolve names and paths without running the compiler or merger"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if !w.DryRun {
		if err := checkToolchain(cfg); err != nil {
			return err
		}
	}

	c, cleanup := newComposer(cfg, w.DryRun, metrics.NoopRecorder{})
	defer cleanup()

	rebuild := func(ctx context.Context) error {
		pkg, err := c.Build(ctx, request(cfg))
		if err != nil {
			return err
		}
		printPackage(g, cfg, pkg, w.DryRun)
		return nil
	}

	watcher, err := watch.New(cfg.Sources(), rebuild, watch.WithDebounce(w.Debounce))
	if err != nil {
		return err
	}
	return watcher.Run(g.Ctx)
}
