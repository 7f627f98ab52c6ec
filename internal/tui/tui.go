// Package tui is the interactive terminal presentation of a todo session.
package tui

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"

	tea "github.com/charmbracelet/bubbletea"

	"todo-cli/internal/session"
)

type Options struct {
	Logger   *log.Logger
	Autosave time.Duration
	In       io.Reader
	Out      io.Writer
}

// Run starts the TUI on sess and blocks until the user quits or ctx ends.
// Changes made elsewhere (e.g. the web UI in the same process) are picked up live.
func Run(ctx context.Context, sess *session.Session, opts Options) error {
	applyThemePreference()
	applyColorProfilePreference()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newAppModel(ctx, sess, time.Now)
	progOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if opts.In != nil {
		progOpts = append(progOpts, tea.WithInput(opts.In))
	}
	if opts.Out != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Out))
	}
	p := tea.NewProgram(m, progOpts...)

	changes, unsubscribe := sess.Subscribe()
	defer unsubscribe()
	go func() {
		for c := range changes {
			p.Send(sessionChangedMsg{change: c})
		}
	}()

	saved := make(chan struct{})
	go func() {
		defer close(saved)
		sess.Run(ctx, opts.Autosave)
	}()

	_, err := p.Run()
	cancel()
	<-saved
	if err != nil && opts.Logger != nil {
		opts.Logger.Error("tui exited", "err", err)
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
