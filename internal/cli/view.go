package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"todo-cli/internal/format"
	"todo-cli/internal/model"
	"todo-cli/internal/session"
)

type viewOut struct {
	Change session.Change `json:"change"`
	Filter model.Filter   `json:"filter"`
	Sort   model.Sort     `json:"sort"`
	Stats  session.Stats  `json:"stats"`
}

func writeView(cmd *cobra.Command, app *App, c session.Change) error {
	return writeOut(cmd, app, format.Envelope{Data: viewOut{
		Change: c,
		Filter: app.sess.Filter(),
		Sort:   app.sess.Sort(),
		Stats:  app.sess.Stats(),
	}})
}

func newFilterCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Show or change the list filter",
		Long: strings.TrimSpace(`
Show or change the list filter. Filters combine: a todo is visible only when it
matches the text, the status and the category.
`),
		Example: strings.TrimSpace(`
todo filter
todo filter text milk
todo filter status complete
todo filter category "house work"
todo filter reset
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.open(cmd); err != nil {
				return writeErr(cmd, err)
			}
			return writeView(cmd, app, session.Change{Kind: session.KindFilter})
		},
	}

	set := func(field model.FilterField, use, short string) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				sess, err := app.open(cmd)
				if err != nil {
					return writeErr(cmd, err)
				}
				value := ""
				if len(args) == 1 {
					value = args[0]
				}
				if value == "" && field != model.FilterFieldText {
					value = model.FilterAll
				}
				ch, err := sess.SetFilter(cmdContext(cmd), field, value)
				if err != nil {
					return writeErr(cmd, err)
				}
				return writeView(cmd, app, ch)
			},
		}
	}

	cmd.AddCommand(set(model.FilterFieldText, "text [query]", "Match title or description (empty clears)"))
	cmd.AddCommand(set(model.FilterFieldStatus, "status [all|incomplete|complete]", "Filter by status"))
	cmd.AddCommand(set(model.FilterFieldCategory, "category [all|"+categoryList()+"]", "Filter by category"))
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Clear every filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			ch, err := sess.ResetFilter(cmdContext(cmd))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeView(cmd, app, ch)
		},
	})
	return cmd
}

func newSortCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sort [dueDate|title]",
		Short: "Show the sort order, or sort by a field",
		Long: strings.TrimSpace(`
Sort by a field. Choosing the field that is already active flips the direction;
choosing another field sorts ascending.
`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if len(args) == 0 {
				return writeView(cmd, app, session.Change{Kind: session.KindSort})
			}
			field, err := model.ParseSortField(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			ch, err := sess.SetSort(cmdContext(cmd), field)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeView(cmd, app, ch)
		},
	}
}

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show total, completed and visible counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{Data: sess.Stats()})
		},
	}
}
