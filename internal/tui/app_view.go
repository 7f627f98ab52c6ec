package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"todo-cli/internal/model"
	"todo-cli/internal/session"
)

func (m appModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading…"
	}

	switch m.mode {
	case modeAdd, modeEdit:
		return m.placeCentered(m.renderForm())
	case modeConfirmDelete:
		return m.placeCentered(m.renderConfirmDelete())
	}

	header := fitWidth(m.renderHeader(), m.width)
	body := m.renderBody()
	footer := fitWidth(m.renderFooter(), m.width)
	return strings.Join([]string{header, "", body, footer}, "\n")
}

func (m appModel) placeCentered(s string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, s)
}

func (m appModel) renderHeader() string {
	st := m.sess.Stats()
	f := m.sess.Filter()
	s := m.sess.Sort()

	arrow := "↑"
	if s.Direction == model.SortDesc {
		arrow = "↓"
	}
	sortLabel := "due date"
	if s.By == model.SortByTitle {
		sortLabel = "title"
	}

	parts := []string{
		styleHeader().Render("Todos"),
		fmt.Sprintf("%d total · %d completed · %d shown", st.Total, st.Completed, st.Visible),
		styleMuted().Render("sort: " + sortLabel + " " + arrow),
	}
	if filter := filterSummary(f); filter != "" {
		parts = append(parts, styleMuted().Render("filter: "+filter))
	}
	return strings.Join(parts, "   ")
}

func filterSummary(f model.Filter) string {
	var parts []string
	if f.Text != "" {
		parts = append(parts, fmt.Sprintf("%q", f.Text))
	}
	if f.Status != "" && f.Status != model.FilterAll {
		parts = append(parts, f.Status)
	}
	if f.Category != "" && f.Category != model.FilterAll {
		parts = append(parts, f.Category)
	}
	return strings.Join(parts, ", ")
}

func (m appModel) renderBody() string {
	bodyH := m.bodyHeight()
	listW, detailW := m.paneWidths()

	var left string
	if len(m.todos) == 0 {
		msg := "No todos yet. Press a to add one."
		if m.sess.Stats().Total > 0 {
			msg = "No todos match the filter. Press 0 to reset."
		}
		left = styleMuted().Render(msg)
	} else {
		left = m.list.View()
	}
	left = normalizePane(left, listW, bodyH)
	if detailW == 0 {
		return left
	}

	var right string
	if h, open := m.sess.HistoryState(); open {
		right = renderHistory(h, detailW)
	} else if t, ok := m.selected(); ok {
		right = renderDetail(t, detailW, m.now())
	}
	right = normalizePane(right, detailW, bodyH)

	sep := normalizePane(strings.Repeat("│\n", bodyH), 1, bodyH)
	sep = styleMuted().Render(sep)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, sep, right)
}

func (m appModel) renderFooter() string {
	if m.mode == modeFilter {
		return "Search: " + m.filterInput.View() + styleMuted().Render("   enter: keep   esc: undo")
	}
	if m.minibuffer != "" {
		return m.minibuffer
	}
	return m.help.View(m.keys)
}

func renderDetail(t model.Todo, width int, now time.Time) string {
	status := "incomplete"
	if t.Status == model.StatusComplete {
		status = styleDone().Render("complete")
	}
	due := styleMuted().Render("none")
	if !t.DueDate.IsZero() {
		due = t.DueDate.Display()
		if t.Overdue(now) {
			due = styleOverdue().Render(due + " (overdue)")
		}
	}

	lines := []string{
		styleHeader().Render(fmt.Sprintf("#%d %s", t.ID, t.Title)),
		"",
		"Status:    " + status,
		"Category:  " + styleCategory(t.Category).Render(t.Category.Label()),
		"Due:       " + due,
		"Created:   " + t.CreatedAt.Local().Format("Jan 2, 2006 15:04"),
		"Revisions: " + fmt.Sprint(len(t.History)) + styleMuted().Render("   (h: history)"),
	}
	if desc := renderMarkdown(t.Description, width); desc != "" {
		lines = append(lines, "", desc)
	}
	return strings.Join(lines, "\n")
}

func renderHistory(h session.HistoryState, width int) string {
	e := h.Entry
	lines := []string{
		styleHeader().Render("History: " + h.Title),
		styleMuted().Render(fmt.Sprintf("revision %d of %d   ←/→ browse   esc close", h.Index+1, h.Len)),
		"",
		fmt.Sprintf("%s  %s", e.Timestamp.Local().Format("Jan 2, 2006 15:04:05"), e.Action),
		"",
		"Title:       " + e.Data.Title,
		"Description: " + e.Data.Description,
		"Category:    " + e.Data.Category.Label(),
		"Due:         " + dueOrNone(e.Data.DueDate),
		"Status:      " + string(e.Data.Status),
		"",
	}
	for i, entry := range h.Entries {
		marker := "  "
		if i == h.Index {
			marker = "▸ "
		}
		row := fmt.Sprintf("%s%d. %s %s", marker, i+1, entry.Action, entry.Timestamp.Local().Format("Jan 2 15:04"))
		if i != h.Index {
			row = styleMuted().Render(row)
		}
		lines = append(lines, row)
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

func dueOrNone(d model.Date) string {
	if d.IsZero() {
		return "none"
	}
	return d.Display()
}

func (m appModel) renderForm() string {
	title := "New todo"
	if m.mode == modeEdit {
		title = "Edit todo"
		if st := m.sess.EditState(); st.Editing {
			title = fmt.Sprintf("Edit todo #%d", st.ID)
		}
	}
	bodyW := modalBodyWidth(m.width)

	var rows []string
	for i := range m.inputs {
		label := fieldLabels[i]
		if i == m.focus {
			label = lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render(label)
		}
		rows = append(rows, label, formFieldLine(bodyW, m.inputs[i].View()), "")
	}
	if m.minibuffer != "" {
		rows = append(rows, styleOverdue().Render(m.minibuffer), "")
	}
	rows = append(rows, styleMuted().Width(bodyW).Render("tab: next field   enter: save   esc: cancel"))
	return renderModalBox(m.width, title, strings.Join(rows, "\n"))
}

func (m appModel) renderConfirmDelete() string {
	t, ok := m.sess.Todo(m.deleteID)
	if !ok {
		return renderModalBox(m.width, "Delete todo", "This todo no longer exists.")
	}
	body := fmt.Sprintf("Are you sure you want to delete this todo?\n\n%q", t.Title)
	return renderConfirmModal(m.width, "Delete todo", body, "Delete", "Cancel", m.deleteFocus)
}

// formFieldLine renders one text input as a single full-width line on the input background.
func formFieldLine(width int, view string) string {
	width = max(width, 10)
	view = strings.NewReplacer("\r", " ", "\n", " ").Replace(view)
	line := lipgloss.PlaceHorizontal(width, lipgloss.Left, " "+view+" ",
		lipgloss.WithWhitespaceBackground(colorInputBg))
	if xansi.StringWidth(line) > width {
		line = xansi.Truncate(line, width, "") + "\x1b[0m"
	}
	return line
}
