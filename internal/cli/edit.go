package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"todo-cli/internal/format"
	"todo-cli/internal/session"
)

type editOut struct {
	Change session.Change    `json:"change"`
	Edit   session.EditState `json:"edit"`
}

func writeEdit(cmd *cobra.Command, app *App, c session.Change) error {
	return writeOut(cmd, app, format.Envelope{Data: editOut{Change: c, Edit: app.sess.EditState()}})
}

func newEditCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Work with the edit form (start, set, submit, cancel)",
		Long: strings.TrimSpace(`
The edit form holds an unsaved copy of one todo. Changes made with "edit set" stay
in the form until "edit submit" writes them as one update. The form survives
restarts.
`),
		Example: strings.TrimSpace(`
todo edit start 3
todo edit set title "Buy oat milk"
todo edit set due 2024-07-02
todo edit submit
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			return writeEdit(cmd, app, session.Change{Kind: session.KindEdit})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the edit form",
		Args:  cobra.NoArgs,
		RunE:  cmd.RunE,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "start <id>",
		Short: "Open the edit form on a todo",
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
			ch, err := sess.StartEdit(cmdContext(cmd), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeEdit(cmd, app, ch)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <field> <value>",
		Short: "Change a field in the edit form (title|description|category|due|status)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := session.ParseEditField(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			sess, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			ch, err := sess.SetEditField(cmdContext(cmd), field, args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeEdit(cmd, app, ch)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "submit",
		Short: "Save the edit form as an update",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			before := sess.EditState()
			if !before.Editing {
				return writeErr(cmd, errNoEdit)
			}
			ch, err := sess.SubmitEdit(cmdContext(cmd))
			if err != nil {
				return writeErr(cmd, err)
			}
			if !ch.Changed && strings.TrimSpace(before.Buffer.Title) == "" {
				return writeErr(cmd, errBlankTitle)
			}
			return writeChange(cmd, app, ch)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cancel",
		Short: "Discard the edit form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			ch, err := sess.CancelEdit(cmdContext(cmd))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeEdit(cmd, app, ch)
		},
	})

	return cmd
}
