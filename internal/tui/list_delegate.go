package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"todo-cli/internal/model"
)

// todoItem is one row of the todo list.
type todoItem struct {
	todo    model.Todo
	overdue bool
	flash   bool
	editing bool
}

func (it todoItem) FilterValue() string { return it.todo.Title }

func (it todoItem) Title() string { return it.todo.Title }

type todoDelegate struct {
	normal   lipgloss.Style
	selected lipgloss.Style
	flash    lipgloss.Style
}

func newTodoDelegate() todoDelegate {
	return todoDelegate{
		normal: lipgloss.NewStyle(),
		selected: lipgloss.NewStyle().
			Foreground(colorSelectedFg).
			Background(colorSelectedBg).
			Bold(true),
		flash: lipgloss.NewStyle().
			Background(colorFlashBg).
			Bold(true),
	}
}

func (d todoDelegate) Height() int                             { return 1 }
func (d todoDelegate) Spacing() int                            { return 0 }
func (d todoDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d todoDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(todoItem)
	contentW := m.Width()
	if !ok || contentW < 4 {
		fmt.Fprint(w, "")
		return
	}

	style := d.normal
	switch {
	case it.flash:
		style = d.flash
	case index == m.Index():
		style = d.selected
	}

	fmt.Fprint(w, style.Render(fitWidth(todoRowText(it), contentW)))
}

// todoRowText renders the row body: checkbox, title, category and due date.
func todoRowText(it todoItem) string {
	t := it.todo
	box := "[ ]"
	// Titles come from user input; keep the row on one line.
	title := strings.ReplaceAll(t.Title, "\n", " ")
	if t.Status == model.StatusComplete {
		box = styleDone().Render("[x]")
		title = lipgloss.NewStyle().Strikethrough(true).Render(title)
	}

	parts := []string{box, title}
	if it.editing {
		parts = append(parts, styleMuted().Render("(editing)"))
	}
	parts = append(parts, styleCategory(t.Category).Render(t.Category.Label()))
	if !t.DueDate.IsZero() {
		due := "due " + t.DueDate.Display()
		if it.overdue {
			due = styleOverdue().Render(due + " (overdue)")
		} else {
			due = styleMuted().Render(due)
		}
		parts = append(parts, due)
	}
	return strings.Join(parts, " ")
}
