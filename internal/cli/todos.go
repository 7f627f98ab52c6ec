package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"todo-cli/internal/format"
	"todo-cli/internal/model"
	"todo-cli/internal/query"
	"todo-cli/internal/session"
)

// todoOut is a todo as printed by the CLI, with its derived flags.
type todoOut struct {
	model.Todo
	Overdue bool `json:"overdue"`
	Editing bool `json:"editing"`
}

func outTodo(t model.Todo, edit session.EditState, now time.Time) todoOut {
	return todoOut{
		Todo:    t,
		Overdue: t.Overdue(now),
		Editing: edit.Editing && edit.ID == t.ID,
	}
}

type changeOut struct {
	Change session.Change `json:"change"`
	Todo   *todoOut       `json:"todo,omitempty"`
}

// writeChange prints the command outcome plus the affected todo, if it still exists.
func writeChange(cmd *cobra.Command, app *App, c session.Change) error {
	out := changeOut{Change: c}
	if c.ID > 0 {
		if t, ok := app.sess.Todo(c.ID); ok {
			o := outTodo(t, app.sess.EditState(), time.Now())
			out.Todo = &o
		}
	}
	return writeOut(cmd, app, format.Envelope{Data: out, Meta: app.sess.Stats()})
}

func newAddCmd(app *App) *cobra.Command {
	var description string
	var category string
	var due string

	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a todo",
		Example: strings.TrimSpace(`
todo add "Buy milk" --category shopping --due 2024-07-01
todo add Call the dentist -d "before friday"
`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := model.ParseCategory(category)
			if err != nil {
				return writeErr(cmd, err)
			}
			d, err := model.ParseDate(due)
			if err != nil {
				return writeErr(cmd, err)
			}
			title := strings.Join(args, " ")
			ch, err := sess.Add(cmdContext(cmd), title, description, c, d)
			if err != nil {
				return writeErr(cmd, err)
			}
			if !ch.Changed {
				return writeErr(cmd, errBlankTitle)
			}
			return writeChange(cmd, app, ch)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Description")
	cmd.Flags().StringVarP(&category, "category", "c", string(model.DefaultCategory), "Category ("+categoryList()+")")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	return cmd
}

func newUpdateCmd(app *App) *cobra.Command {
	var title, description, category, due, status string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields of a todo",
		Long: strings.TrimSpace(`
Update fields of a todo. Only the flags you pass are changed; every successful
update appends a full snapshot of the todo to its history.
`),
		Example: strings.TrimSpace(`
todo update 3 --title "Buy oat milk"
todo update 3 --due ""          # clear the due date
todo update 3 --status complete
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			sess, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}

			var p model.Patch
			flags := cmd.Flags()
			if flags.Changed("title") {
				if strings.TrimSpace(title) == "" {
					return writeErr(cmd, errBlankTitle)
				}
				p.Title = &title
			}
			if flags.Changed("description") {
				p.Description = &description
			}
			if flags.Changed("category") {
				c, err := model.ParseCategory(category)
				if err != nil {
					return writeErr(cmd, err)
				}
				p.Category = &c
			}
			if flags.Changed("due") {
				d, err := model.ParseDate(due)
				if err != nil {
					return writeErr(cmd, err)
				}
				p.DueDate = &d
			}
			if flags.Changed("status") {
				s, err := model.ParseStatus(status)
				if err != nil {
					return writeErr(cmd, err)
				}
				p.Status = &s
			}
			if p.IsEmpty() {
				return writeErr(cmd, errNothingToUpdate)
			}
			if _, ok := sess.Todo(id); !ok {
				return writeErr(cmd, errNotFound("todo", id))
			}

			ch, err := sess.Update(cmdContext(cmd), id, p)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeChange(cmd, app, ch)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	cmd.Flags().StringVarP(&category, "category", "c", "", "New category ("+categoryList()+")")
	cmd.Flags().StringVar(&due, "due", "", "New due date (YYYY-MM-DD, empty clears)")
	cmd.Flags().StringVar(&status, "status", "", "New status (incomplete|complete)")
	return cmd
}

func newDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a todo (asks for confirmation)",
		Args:    cobra.ExactArgs(1),
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
			ch, err := sess.Delete(cmdContext(cmd), id, deleteConfirmer(cmd, app, yes))
			if err != nil {
				return writeErr(cmd, err)
			}
			if !ch.Changed {
				return writeErr(cmd, declinedError{id: id})
			}
			return writeChange(cmd, app, ch)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "toggle <id>",
		Aliases: []string{"done"},
		Short:   "Toggle a todo between incomplete and complete",
		Args:    cobra.ExactArgs(1),
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
			ch, err := sess.ToggleStatus(cmdContext(cmd), id)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeChange(cmd, app, ch)
		},
	}
}

func newShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a todo with its full history",
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
			t, ok := sess.Todo(id)
			if !ok {
				return writeErr(cmd, errNotFound("todo", id))
			}
			return writeOut(cmd, app, format.Envelope{Data: outTodo(t, sess.EditState(), time.Now())})
		},
	}
}

type listMeta struct {
	Filter model.Filter  `json:"filter"`
	Sort   model.Sort    `json:"sort"`
	Stats  session.Stats `json:"stats"`
	Where  string        `json:"where,omitempty"`
}

func newListCmd(app *App) *cobra.Command {
	var where string
	var all bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List visible todos (current filter and sort)",
		Long: strings.TrimSpace(`
List the todos visible under the current filter and sort order.

--where narrows the list further with a boolean expression over:
  id, title, description, category, status, dueDate, overdue, revisions, createdAt
`),
		Example: strings.TrimSpace(`
todo list
todo list --all
todo list --where 'overdue && category in ["work", "school"]'
todo list --where 'title contains "milk"'
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.open(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}

			var w *query.Where
			if strings.TrimSpace(where) != "" {
				w, err = query.CompileWhere(where, nil)
				if err != nil {
					return writeErr(cmd, err)
				}
			}

			todos := sess.View()
			if all {
				todos = query.View(sess.All(), model.DefaultFilter(), sess.Sort())
			}
			todos, err = w.Apply(todos)
			if err != nil {
				return writeErr(cmd, err)
			}

			now := time.Now()
			edit := sess.EditState()
			out := make([]todoOut, 0, len(todos))
			for _, t := range todos {
				out = append(out, outTodo(t, edit, now))
			}
			meta := listMeta{Filter: sess.Filter(), Sort: sess.Sort(), Stats: sess.Stats()}
			if w != nil {
				meta.Where = w.String()
			}
			return writeOut(cmd, app, format.Envelope{Data: out, Meta: meta})
		},
	}

	cmd.Flags().StringVar(&where, "where", "", "Boolean expression to narrow the list")
	cmd.Flags().BoolVar(&all, "all", false, "Ignore the current filter (sort still applies)")
	return cmd
}

func categoryList() string {
	names := make([]string, 0, len(model.Categories))
	for _, c := range model.Categories {
		names = append(names, string(c))
	}
	return strings.Join(names, "|")
}
