package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/coverpack/cmd/coverpack/commands"
	ferrors "git.home.luguber.info/inful/coverpack/internal/foundation/errors"
	"git.home.luguber.info/inful/coverpack/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("coverpack"),
		kong.Description("Compile a cover letter and a resume and merge them into one content-named package."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := parser.Run(commands.NewGlobal(ctx), cli)
	stop()

	if err != nil {
		ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
