package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"todo-cli/internal/model"
	"todo-cli/internal/session"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case flashDoneMsg:
		if msg.seq == m.flashSeq {
			m.flashID = 0
			m.refresh()
		}
		return m, nil

	case minibufferDoneMsg:
		if msg.seq == m.minibufferSeq {
			m.minibuffer = ""
		}
		return m, nil

	case sessionChangedMsg:
		m.refresh()
		if msg.change.Completed && msg.change.ID != m.flashID {
			return m, m.startFlash(msg.change.ID)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeAdd, modeEdit:
			return m.updateForm(msg)
		case modeFilter:
			return m.updateFilter(msg)
		case modeConfirmDelete:
			return m.updateConfirmDelete(msg)
		default:
			return m.updateList(msg)
		}
	}

	var cmd tea.Cmd
	if m.mode == modeFilter {
		m.filterInput, cmd = m.filterInput.Update(msg)
	} else if m.mode == modeAdd || m.mode == modeEdit {
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	}
	return m, cmd
}

// fail reports a command error in the minibuffer.
func (m *appModel) fail(err error) tea.Cmd {
	msg := err.Error()
	if errors.Is(err, session.ErrInvalidArgument) {
		msg = strings.TrimPrefix(msg, session.ErrInvalidArgument.Error()+": ")
	}
	return m.showMinibuffer("Error: " + msg)
}

func (m appModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := m.ctx
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Add):
		m.openForm(modeAdd, model.Fields{Category: model.DefaultCategory})
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Toggle):
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		ch, err := m.sess.ToggleStatus(ctx, t.ID)
		m.refresh()
		if err != nil {
			return m, m.fail(err)
		}
		if ch.Completed {
			return m, m.startFlash(t.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Edit):
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		if _, err := m.sess.StartEdit(ctx, t.ID); err != nil {
			return m, m.fail(err)
		}
		m.openForm(modeEdit, m.sess.EditState().Buffer)
		m.refresh()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Delete):
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.mode = modeConfirmDelete
		m.deleteID = t.ID
		m.deleteFocus = confirmFocusCancel
		return m, nil

	case key.Matches(msg, m.keys.History):
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		var err error
		if h, open := m.sess.HistoryState(); open && h.ID == t.ID {
			_, err = m.sess.CloseHistory(ctx)
		} else {
			_, err = m.sess.OpenHistory(ctx, t.ID)
		}
		if err != nil {
			return m, m.fail(err)
		}
		return m, nil

	case key.Matches(msg, m.keys.HistPrev), key.Matches(msg, m.keys.HistNext):
		h, open := m.sess.HistoryState()
		if !open {
			return m, nil
		}
		delta := 1
		if key.Matches(msg, m.keys.HistPrev) {
			delta = -1
		}
		if _, err := m.sess.NavigateHistory(ctx, h.ID, delta); err != nil {
			return m, m.fail(err)
		}
		return m, nil

	case msg.Type == tea.KeyEsc:
		if _, open := m.sess.HistoryState(); open {
			if _, err := m.sess.CloseHistory(ctx); err != nil {
				return m, m.fail(err)
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Filter):
		m.mode = modeFilter
		m.filterBefore = m.sess.Filter().Text
		m.filterInput.SetValue(m.filterBefore)
		m.filterInput.CursorEnd()
		m.filterInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Status):
		next := cycle(m.sess.Filter().Status, []string{model.FilterAll, string(model.StatusIncomplete), string(model.StatusComplete)})
		return m, m.applyFilter(model.FilterFieldStatus, next)

	case key.Matches(msg, m.keys.Category):
		opts := []string{model.FilterAll}
		for _, c := range model.Categories {
			opts = append(opts, string(c))
		}
		next := cycle(m.sess.Filter().Category, opts)
		return m, m.applyFilter(model.FilterFieldCategory, next)

	case key.Matches(msg, m.keys.Reset):
		if _, err := m.sess.ResetFilter(ctx); err != nil {
			return m, m.fail(err)
		}
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.SortDue), key.Matches(msg, m.keys.SortTitle):
		field := model.SortByDueDate
		if key.Matches(msg, m.keys.SortTitle) {
			field = model.SortByTitle
		}
		if _, err := m.sess.SetSort(ctx, field); err != nil {
			return m, m.fail(err)
		}
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *appModel) applyFilter(field model.FilterField, value string) tea.Cmd {
	if _, err := m.sess.SetFilter(m.ctx, field, value); err != nil {
		return m.fail(err)
	}
	m.refresh()
	return nil
}

// cycle returns the option after cur, wrapping around. Unknown values restart at the first option.
func cycle(cur string, opts []string) string {
	for i, o := range opts {
		if o == cur {
			return opts[(i+1)%len(opts)]
		}
	}
	return opts[0]
}

func (m appModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlG:
		if m.mode == modeEdit {
			if _, err := m.sess.CancelEdit(m.ctx); err != nil {
				return m, m.fail(err)
			}
		}
		m.closeForm()
		m.refresh()
		return m, nil
	case tea.KeyTab, tea.KeyDown:
		m.setFocus(m.focus + 1)
		return m, nil
	case tea.KeyShiftTab, tea.KeyUp:
		m.setFocus(m.focus - 1)
		return m, nil
	case tea.KeyEnter:
		if m.mode == modeEdit {
			return m.submitEdit()
		}
		return m.submitAdd()
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// formValues parses the form. Category defaults to the default category when blank.
func (m appModel) formValues() (model.Fields, error) {
	f := model.Fields{
		Title:       m.inputs[fieldTitle].Value(),
		Description: m.inputs[fieldDescription].Value(),
	}
	if strings.TrimSpace(f.Title) == "" {
		return f, errors.New("title is required")
	}
	f.Category = model.DefaultCategory
	if v := strings.TrimSpace(m.inputs[fieldCategory].Value()); v != "" {
		c, err := model.ParseCategory(v)
		if err != nil {
			return f, err
		}
		f.Category = c
	}
	d, err := model.ParseDate(m.inputs[fieldDue].Value())
	if err != nil {
		return f, err
	}
	f.DueDate = d
	return f, nil
}

func (m appModel) submitAdd() (tea.Model, tea.Cmd) {
	f, err := m.formValues()
	if err != nil {
		return m, m.fail(err)
	}
	ch, err := m.sess.Add(m.ctx, f.Title, f.Description, f.Category, f.DueDate)
	if err != nil {
		return m, m.fail(err)
	}
	m.closeForm()
	m.refresh()
	m.selectID(ch.ID)
	return m, m.showMinibuffer(fmt.Sprintf("Added #%d", ch.ID))
}

// submitEdit copies the form into the session's edit buffer and submits it as one update.
func (m appModel) submitEdit() (tea.Model, tea.Cmd) {
	f, err := m.formValues()
	if err != nil {
		return m, m.fail(err)
	}
	values := []session.EditValue{
		{Field: session.EditTitle, Value: f.Title},
		{Field: session.EditDescription, Value: f.Description},
		{Field: session.EditCategory, Value: string(f.Category)},
		{Field: session.EditDueDate, Value: string(f.DueDate)},
	}
	if _, err := m.sess.SetEditFields(m.ctx, values); err != nil {
		return m, m.fail(err)
	}
	ch, err := m.sess.SubmitEdit(m.ctx)
	if err != nil {
		return m, m.fail(err)
	}
	m.closeForm()
	m.refresh()
	return m, m.showMinibuffer(fmt.Sprintf("Saved #%d", ch.ID))
}

func (m appModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.mode = modeList
		m.filterInput.Blur()
		return m, nil
	case tea.KeyEsc, tea.KeyCtrlG:
		m.mode = modeList
		m.filterInput.Blur()
		return m, m.applyFilter(model.FilterFieldText, m.filterBefore)
	}

	var cmd tea.Cmd
	before := m.filterInput.Value()
	m.filterInput, cmd = m.filterInput.Update(msg)
	if v := m.filterInput.Value(); v != before {
		if fcmd := m.applyFilter(model.FilterFieldText, v); fcmd != nil {
			return m, tea.Batch(cmd, fcmd)
		}
	}
	return m, cmd
}

func (m appModel) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	confirm := false
	switch msg.String() {
	case "y", "Y":
		confirm = true
	case "n", "N", "esc", "ctrl+g", "q":
		m.mode = modeList
		return m, nil
	case "tab", "shift+tab", "left", "right", "h", "l":
		if m.deleteFocus == confirmFocusConfirm {
			m.deleteFocus = confirmFocusCancel
		} else {
			m.deleteFocus = confirmFocusConfirm
		}
		return m, nil
	case "enter":
		confirm = m.deleteFocus == confirmFocusConfirm
	default:
		return m, nil
	}

	m.mode = modeList
	if !confirm {
		return m, nil
	}
	id := m.deleteID
	ch, err := m.sess.Delete(m.ctx, id, session.Confirmed(true))
	m.refresh()
	if err != nil {
		return m, m.fail(err)
	}
	if ch.Changed {
		return m, m.showMinibuffer(fmt.Sprintf("Deleted #%d", id))
	}
	return m, nil
}
