package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/coverpack/internal/config"
	ferrors "git.home.luguber.info/inful/coverpack/internal/foundation/errors"
	"git.home.luguber.info/inful/coverpack/internal/journal"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit  int  `short:"n" help:"Maximum number of builds to show (0 for all)" default:"20"`
	Latest bool `help:"Show only the latest successful build of the current package"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if h.Limit < 0 {
		return ferrors.ValidationError("--limit cannot be negative").WithContext("limit", h.Limit).Build()
	}

	store, err := openJournal(cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return ferrors.ConfigError("build journal is disabled (set journal.path)").Build()
	}
	defer func() { _ = store.Close() }()

	entries, err := h.entries(g, cfg, store)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(g.Stdout, "No builds recorded")
		return nil
	}

	tw := tabwriter.NewWriter(g.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tPACKAGE\tSTATUS\tDURATION\tREUSED\tOUTPUT")
	for _, e := range entries {
		output := e.Output
		if e.Status == journal.StatusFailed {
			output = e.Error
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.StartedAt.Local().Format(time.DateTime), e.Package, e.Status,
			e.Duration.Round(time.Millisecond), e.CacheHits, output)
	}
	return tw.Flush()
}

// entries reads the requested builds. Only journal failures are reported as journal
// errors; a package name that cannot be computed keeps its own classification.
func (h *HistoryCmd) entries(g *Global, cfg *config.Config, store *journal.Store) ([]journal.Entry, error) {
	if !h.Latest {
		entries, err := store.List(g.Ctx, h.Limit)
		if err != nil {
			return nil, journalReadError(err)
		}
		return entries, nil
	}
	name, err := currentPackageName(g, cfg)
	if err != nil {
		return nil, err
	}
	latest, err := store.Latest(g.Ctx, name)
	if err != nil {
		return nil, journalReadError(err)
	}
	if latest == nil {
		return nil, nil
	}
	return []journal.Entry{*latest}, nil
}

func journalReadError(err error) error {
	return ferrors.JournalError("read build journal").WithCause(err).Build()
}
