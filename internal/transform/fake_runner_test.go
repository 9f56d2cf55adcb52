package transform

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/coverpack/internal/process"
)

// recordingRunner records every command and answers with a canned result.
type recordingRunner struct {
	mu       sync.Mutex
	commands []process.Command
	exitCode int
	stderr   string
	err      error
}

func (r *recordingRunner) Run(_ context.Context, cmd process.Command) (*process.Result, error) {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return &process.Result{ExitCode: r.exitCode, Stderr: []byte(r.stderr)}, nil
}

func (r *recordingRunner) calls() []process.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]process.Command(nil), r.commands...)
}
