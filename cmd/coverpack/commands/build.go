package commands

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/coverpack/internal/composer"
	"git.home.luguber.info/inful/coverpack/internal/config"
	"git.home.luguber.info/inful/coverpack/internal/logfields"
	"git.home.luguber.info/inful/coverpack/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	DryRun      bool   `name:"dry-run" help:"Resolve names and paths without running the compiler or merger"`
	MetricsFile string `name:"metrics-file" help:"Write Prometheus metrics in text format to this file after the build" type:"path"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if !b.DryRun {
		if err := checkToolchain(cfg); err != nil {
			return err
		}
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var prom *metrics.PrometheusRecorder
	if b.MetricsFile != "" {
		prom = metrics.NewPrometheusRecorder(prometheus.NewRegistry())
		recorder = prom
	}

	c, cleanup := newComposer(cfg, b.DryRun, recorder)
	defer cleanup()

	pkg, buildErr := c.Build(g.Ctx, request(cfg))

	// metrics describe failed builds too
	if prom != nil {
		if err := prom.WriteTextfile(b.MetricsFile); err != nil {
			slog.Warn("Failed to write metrics file", logfields.Path(b.MetricsFile), logfields.Error(err))
		}
	}
	if buildErr != nil {
		return buildErr
	}

	printPackage(g, cfg, pkg, b.DryRun)
	return nil
}

func printPackage(g *Global, cfg *config.Config, pkg *composer.Package, dryRun bool) {
	if dryRun {
		_, _ = fmt.Fprintln(g.Stdout, "Dry run: no documents were compiled")
	}
	_, _ = fmt.Fprintf(g.Stdout, "Package:  %s\n", pkg.Name)
	_, _ = fmt.Fprintf(g.Stdout, "Output:   %s\n", pkg.Output)
	if !dryRun {
		_, _ = fmt.Fprintf(g.Stdout, "Reused:   %d of %d documents\n", pkg.CacheHits, len(cfg.Sources()))
	}
}
