package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

const shellHistoryFile = "shell_history"

func newShellCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive command prompt (same commands, one open session)",
		Long: strings.TrimSpace(`
Start an interactive prompt. Every line is parsed like a todo command line
("add milk", "toggle 3", "list --where overdue"). The session stays open between
lines and is autosaved periodically. Type "exit" or press Ctrl-D to leave.
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.inShell {
				return writeErr(cmd, errors.New("already in a shell"))
			}
			sess, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}

			ctx, cancel := context.WithCancel(cmdContext(cmd))
			defer cancel()
			saved := make(chan struct{})
			go func() {
				defer close(saved)
				sess.Run(ctx, app.cfg.AutosaveInterval)
			}()

			input := newLineInput(cmd.InOrStdin(), cmd.OutOrStdout(), filepath.Join(app.cfg.DataDir, shellHistoryFile))
			app.input = input
			app.inShell = true
			defer func() {
				app.input = nil
				app.inShell = false
				_ = input.Close()
			}()

			out := cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()
			fmt.Fprintf(errOut, "todo shell (%d todos). Type help for commands, exit to quit.\n", sess.Stats().Total)
			for {
				line, err := input.ReadLine("todo> ")
				if err != nil {
					if errors.Is(err, readline.ErrInterrupt) {
						continue
					}
					if errors.Is(err, io.EOF) {
						break
					}
					return writeErr(cmd, err)
				}
				words := splitShellWords(line)
				if len(words) == 0 {
					continue
				}
				switch words[0] {
				case "exit", "quit", ":q":
					cancel()
					<-saved
					return nil
				case "shell", "tui", "web":
					fmt.Fprintln(errOut, errNotInShell(words[0]).Error())
					continue
				}
				_ = app.run(ctx, words, cmd.InOrStdin(), out, errOut)
			}
			cancel()
			<-saved
			return nil
		},
	}
}
