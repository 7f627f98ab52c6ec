package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"todo-cli/internal/model"
	"todo-cli/internal/session"
)

type mode int

const (
	modeList mode = iota
	modeAdd
	modeEdit
	modeFilter
	modeConfirmDelete
)

// Form fields, in tab order.
const (
	fieldTitle = iota
	fieldDescription
	fieldCategory
	fieldDue
	fieldCount
)

var fieldLabels = [fieldCount]string{"Title", "Description", "Category", "Due date"}

type sessionChangedMsg struct{ change session.Change }

type flashDoneMsg struct{ seq int }

type minibufferDoneMsg struct{ seq int }

const (
	flashDuration      = 600 * time.Millisecond
	minibufferDuration = 3 * time.Second
)

type appModel struct {
	ctx  context.Context
	sess *session.Session
	now  func() time.Time

	keys keyMap
	help help.Model

	width  int
	height int

	list  list.Model
	todos []model.Todo

	mode   mode
	inputs [fieldCount]textinput.Model
	focus  int

	filterInput  textinput.Model
	filterBefore string

	deleteID    int
	deleteFocus confirmModalFocus

	flashID  int
	flashSeq int

	minibuffer    string
	minibufferSeq int
}

func newAppModel(ctx context.Context, sess *session.Session, now func() time.Time) appModel {
	if now == nil {
		now = time.Now
	}
	l := list.New(nil, newTodoDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	m := appModel{
		ctx:         ctx,
		sess:        sess,
		now:         now,
		keys:        defaultKeyMap(),
		help:        help.New(),
		list:        l,
		filterInput: newInput("search title or description"),
	}
	for i := range m.inputs {
		m.inputs[i] = newInput("")
	}
	m.inputs[fieldCategory].Placeholder = categoryPlaceholder()
	m.inputs[fieldDue].Placeholder = "YYYY-MM-DD (optional)"
	m.inputs[fieldDue].CharLimit = 10
	m.refresh()

	// An edit left open in a previous run comes back with its unsaved buffer.
	if st := sess.EditState(); st.Editing {
		m.openForm(modeEdit, st.Buffer)
	}
	return m
}

func newInput(placeholder string) textinput.Model {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = placeholder
	in.CharLimit = 500
	return in
}

func categoryPlaceholder() string {
	s := ""
	for i, c := range model.Categories {
		if i > 0 {
			s += ", "
		}
		s += string(c)
	}
	return s
}

func (m appModel) Init() tea.Cmd {
	return textinput.Blink
}

// refresh reloads the visible list from the session, keeping the selected todo when possible.
func (m *appModel) refresh() {
	selected := m.selectedID()
	m.todos = m.sess.View()
	edit := m.sess.EditState()
	now := m.now()

	items := make([]list.Item, 0, len(m.todos))
	idx := 0
	for i, t := range m.todos {
		items = append(items, todoItem{
			todo:    t,
			overdue: t.Overdue(now),
			flash:   t.ID == m.flashID,
			editing: edit.Editing && edit.ID == t.ID,
		})
		if t.ID == selected {
			idx = i
		}
	}
	m.list.SetItems(items)
	if len(items) > 0 {
		if idx >= len(items) {
			idx = len(items) - 1
		}
		m.list.Select(idx)
	}
}

func (m appModel) selectedID() int {
	if it, ok := m.list.SelectedItem().(todoItem); ok {
		return it.todo.ID
	}
	return 0
}

func (m appModel) selected() (model.Todo, bool) {
	id := m.selectedID()
	if id == 0 {
		return model.Todo{}, false
	}
	return m.sess.Todo(id)
}

func (m *appModel) selectID(id int) {
	for i, t := range m.todos {
		if t.ID == id {
			m.list.Select(i)
			return
		}
	}
}

func (m *appModel) showMinibuffer(s string) tea.Cmd {
	m.minibuffer = s
	m.minibufferSeq++
	seq := m.minibufferSeq
	return tea.Tick(minibufferDuration, func(time.Time) tea.Msg { return minibufferDoneMsg{seq: seq} })
}

func (m *appModel) startFlash(id int) tea.Cmd {
	m.flashID = id
	m.flashSeq++
	seq := m.flashSeq
	m.refresh()
	return tea.Tick(flashDuration, func(time.Time) tea.Msg { return flashDoneMsg{seq: seq} })
}

func (m *appModel) openForm(md mode, f model.Fields) {
	m.mode = md
	m.inputs[fieldTitle].SetValue(f.Title)
	m.inputs[fieldDescription].SetValue(f.Description)
	m.inputs[fieldCategory].SetValue(string(f.Category))
	m.inputs[fieldDue].SetValue(string(f.DueDate))
	m.setFocus(fieldTitle)
}

func (m *appModel) setFocus(i int) {
	m.focus = (i + fieldCount) % fieldCount
	for j := range m.inputs {
		if j == m.focus {
			m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
}

func (m *appModel) closeForm() {
	m.mode = modeList
	for i := range m.inputs {
		m.inputs[i].Blur()
		m.inputs[i].SetValue("")
	}
}

func (m *appModel) resize() {
	listW, _ := m.paneWidths()
	m.list.SetSize(listW, m.bodyHeight())
	m.help.Width = m.width
}

// paneWidths splits the screen into the list and the detail pane (plus a 1-column separator).
func (m appModel) paneWidths() (int, int) {
	if m.width < 60 {
		return m.width, 0
	}
	listW := m.width * 55 / 100
	return listW, m.width - listW - 1
}

func (m appModel) bodyHeight() int {
	h := m.height - 3 // header, blank, footer
	if h < 1 {
		h = 1
	}
	return h
}
