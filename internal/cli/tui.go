package cli

import (
	"github.com/spf13/cobra"

	"todo-cli/internal/tui"
)

func newTUICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive terminal UI (same as running todo with no command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}
}

func runTUI(cmd *cobra.Command, app *App) error {
	if app.inShell {
		return writeErr(cmd, errNotInShell("tui"))
	}
	sess, err := app.open(cmd)
	if err != nil {
		return writeErr(cmd, err)
	}
	if err := tui.Run(cmdContext(cmd), sess, tui.Options{
		Logger:   app.log,
		Autosave: app.cfg.AutosaveInterval,
		In:       cmd.InOrStdin(),
		Out:      cmd.OutOrStdout(),
	}); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}
