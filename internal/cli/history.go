package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"todo-cli/internal/format"
	"todo-cli/internal/session"
)

type historyOut struct {
	Change  session.Change        `json:"change"`
	History *session.HistoryState `json:"history"`
}

func writeHistory(cmd *cobra.Command, app *App, c session.Change, id int) error {
	out := historyOut{Change: c}
	var h session.HistoryState
	var ok bool
	if id > 0 {
		h, ok = app.sess.HistoryFor(id)
	} else {
		h, ok = app.sess.HistoryState()
	}
	if ok {
		out.History = &h
	}
	return writeOut(cmd, app, format.Envelope{Data: out})
}

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse a todo's change history",
		Long: strings.TrimSpace(`
Each todo keeps one history cursor. "history open" jumps to the newest entry;
"history step" moves the cursor and stops at either end.
`),
		Example: strings.TrimSpace(`
todo history open 3
todo history step 3 -1
todo history step 3 -- -2
todo history close
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			return writeHistory(cmd, app, session.Change{Kind: session.KindHistory}, 0)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show [id]",
		Short: "Show the open panel, or a todo's history at its cursor",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := 0
			if len(args) == 1 {
				var err error
				if id, err = parseID(args[0]); err != nil {
					return writeErr(cmd, err)
				}
			}
			sess, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if id > 0 {
				if _, ok := sess.Todo(id); !ok {
					return writeErr(cmd, errNotFound("todo", id))
				}
			}
			return writeHistory(cmd, app, session.Change{Kind: session.KindHistory, ID: id}, id)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "open <id>",
		Short: "Open the history panel at the newest entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			sess, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if _, ok := sess.Todo(id); !ok {
				return writeErr(cmd, errNotFound("todo", id))
			}
			ch, err := sess.OpenHistory(cmdContext(cmd), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeHistory(cmd, app, ch, id)
		},
	})

	step := &cobra.Command{
		Use:   "step <id> <delta>",
		Short: "Move the history cursor by delta (clamped)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			delta, err := strconv.Atoi(strings.TrimSpace(args[1]))
			if err != nil {
				return writeErr(cmd, errInvalidDelta(args[1]))
			}
			sess, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if _, ok := sess.Todo(id); !ok {
				return writeErr(cmd, errNotFound("todo", id))
			}
			ch, err := sess.NavigateHistory(cmdContext(cmd), id, delta)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeHistory(cmd, app, ch, id)
		},
	}
	// Negative deltas look like flags.
	step.Flags().SetInterspersed(false)
	cmd.AddCommand(step)

	cmd.AddCommand(&cobra.Command{
		Use:   "close",
		Short: "Close the history panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			ch, err := sess.CloseHistory(cmdContext(cmd))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeHistory(cmd, app, ch, 0)
		},
	})

	return cmd
}
