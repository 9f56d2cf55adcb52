package commands

import (
	"fmt"

	"git.home.luguber.info/inful/coverpack/internal/config"
	"git.home.luguber.info/inful/coverpack/internal/fingerprint"
)

// NameCmd implements the 'name' command.
type NameCmd struct{}

func (n *NameCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	name, err := currentPackageName(g, cfg)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(g.Stdout, name)
	return nil
}

func currentPackageName(g *Global, cfg *config.Config) (string, error) {
	return fingerprint.NewGenerator().PackageName(g.Ctx, cfg.Recipient, cfg.Sources())
}
