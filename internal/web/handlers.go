package web

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"todo-cli/internal/model"
	"todo-cli/internal/session"
)

type todoVM struct {
	model.Todo
	Overdue         bool
	Editing         bool
	Complete        bool
	CategoryLabel   string
	DescriptionHTML template.HTML
}

type optionVM struct {
	Value    string
	Label    string
	Selected bool
}

type editVM struct {
	ID         int
	Buffer     model.Fields
	Categories []optionVM
}

type pageVM struct {
	Now         string
	Stats       session.Stats
	Filter      model.Filter
	Sort        model.Sort
	SortArrow   string
	Todos       []todoVM
	Statuses    []optionVM
	Categories  []optionVM
	NewCategory []optionVM
	Edit        *editVM
	History     *session.HistoryState
	CompletedID int
}

func (s *Server) pageData(r *http.Request) pageVM {
	now := s.now()
	filter := s.sess.Filter()
	srt := s.sess.Sort()
	edit := s.sess.EditState()

	vm := pageVM{
		Now:       now.UTC().Format(time.RFC3339),
		Stats:     s.sess.Stats(),
		Filter:    filter,
		Sort:      srt,
		SortArrow: "↑",
		Statuses: []optionVM{
			{Value: model.FilterAll, Label: "All", Selected: filter.Status == model.FilterAll},
			{Value: string(model.StatusIncomplete), Label: "Incomplete", Selected: filter.Status == string(model.StatusIncomplete)},
			{Value: string(model.StatusComplete), Label: "Complete", Selected: filter.Status == string(model.StatusComplete)},
		},
		Categories:  categoryOptions(filter.Category, true),
		NewCategory: categoryOptions(string(model.DefaultCategory), false),
	}
	if srt.Direction == model.SortDesc {
		vm.SortArrow = "↓"
	}
	for _, t := range s.sess.View() {
		vm.Todos = append(vm.Todos, todoVM{
			Todo:            t,
			Overdue:         t.Overdue(now),
			Editing:         edit.Editing && edit.ID == t.ID,
			Complete:        t.Status == model.StatusComplete,
			CategoryLabel:   t.Category.Label(),
			DescriptionHTML: renderMarkdownHTML(t.Description),
		})
	}
	if edit.Editing {
		vm.Edit = &editVM{
			ID:         edit.ID,
			Buffer:     edit.Buffer,
			Categories: categoryOptions(string(edit.Buffer.Category), false),
		}
	}
	if h, ok := s.sess.HistoryState(); ok {
		vm.History = &h
	}
	if r != nil {
		if id, err := strconv.Atoi(r.URL.Query().Get("completed")); err == nil && id > 0 {
			vm.CompletedID = id
		}
	}
	return vm
}

func categoryOptions(selected string, withAll bool) []optionVM {
	var out []optionVM
	if withAll {
		out = append(out, optionVM{Value: model.FilterAll, Label: "All categories", Selected: selected == model.FilterAll})
	}
	for _, c := range model.Categories {
		out = append(out, optionVM{Value: string(c), Label: c.Label(), Selected: selected == string(c)})
	}
	return out
}

// renderMain renders the live region that the event stream patches.
func (s *Server) renderMain() (string, error) {
	return s.renderTemplate("todo_main", s.pageData(nil))
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.writeHTMLTemplate(w, "index", s.pageData(r))
}

func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid todo id", http.StatusBadRequest)
		return
	}
	t, ok := s.sess.Todo(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	vm := struct {
		pageVM
		Todo todoVM
	}{
		pageVM: s.pageData(r),
		Todo: todoVM{
			Todo:            t,
			Overdue:         t.Overdue(s.now()),
			Complete:        t.Status == model.StatusComplete,
			CategoryLabel:   t.Category.Label(),
			DescriptionHTML: renderMarkdownHTML(t.Description),
		},
	}
	s.writeHTMLTemplate(w, "todo_page", vm)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f, err := parseFields(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	// A blank title is ignored by the session; the page simply reloads.
	if _, err := s.sess.Add(r.Context(), f.Title, f.Description, f.Category, f.DueDate); err != nil {
		s.fail(w, err)
		return
	}
	redirectHome(w, r)
}

// handleUpdate applies the fields present in the form and leaves the rest alone.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid todo id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var p model.Patch
	if r.Form.Has("title") {
		v := r.Form.Get("title")
		p.Title = &v
	}
	if r.Form.Has("description") {
		v := r.Form.Get("description")
		p.Description = &v
	}
	if r.Form.Has("category") {
		c, err := model.ParseCategory(r.Form.Get("category"))
		if err != nil {
			s.fail(w, fmt.Errorf("%w: %w", errBadForm, err))
			return
		}
		p.Category = &c
	}
	if r.Form.Has("dueDate") {
		d, err := model.ParseDate(r.Form.Get("dueDate"))
		if err != nil {
			s.fail(w, fmt.Errorf("%w: %w", errBadForm, err))
			return
		}
		p.DueDate = &d
	}
	if r.Form.Has("status") {
		st, err := model.ParseStatus(r.Form.Get("status"))
		if err != nil {
			s.fail(w, fmt.Errorf("%w: %w", errBadForm, err))
			return
		}
		p.Status = &st
	}
	if _, err := s.sess.Update(r.Context(), id, p); err != nil {
		s.fail(w, err)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid todo id", http.StatusBadRequest)
		return
	}
	c, err := s.sess.ToggleStatus(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if c.Completed {
		http.Redirect(w, r, "/?completed="+strconv.Itoa(id), http.StatusSeeOther)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid todo id", http.StatusBadRequest)
		return
	}
	t, ok := s.sess.Todo(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.writeHTMLTemplate(w, "delete_confirm", t)
}

// handleDelete removes the todo only when the form carries confirm=yes.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid todo id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	yes := strings.EqualFold(strings.TrimSpace(r.Form.Get("confirm")), "yes")
	if _, err := s.sess.Delete(r.Context(), id, session.Confirmed(yes)); err != nil {
		s.fail(w, err)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleEditStart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid todo id", http.StatusBadRequest)
		return
	}
	if _, err := s.sess.StartEdit(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	redirectHome(w, r)
}

// handleEditSave copies the form into the edit buffer. action=draft keeps the form open;
// anything else submits it.
func (s *Server) handleEditSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !s.sess.EditState().Editing {
		http.Error(w, "no edit in progress", http.StatusConflict)
		return
	}
	keys := []struct {
		field session.EditField
		key   string
	}{
		{session.EditTitle, "title"},
		{session.EditDescription, "description"},
		{session.EditCategory, "category"},
		{session.EditDueDate, "dueDate"},
		{session.EditStatus, "status"},
	}
	var values []session.EditValue
	for _, k := range keys {
		if r.Form.Has(k.key) {
			values = append(values, session.EditValue{Field: k.field, Value: r.Form.Get(k.key)})
		}
	}
	if _, err := s.sess.SetEditFields(r.Context(), values); err != nil {
		s.fail(w, err)
		return
	}
	if r.Form.Get("action") != "draft" {
		if _, err := s.sess.SubmitEdit(r.Context()); err != nil {
			s.fail(w, err)
			return
		}
	}
	redirectHome(w, r)
}

func (s *Server) handleEditCancel(w http.ResponseWriter, r *http.Request) {
	if _, err := s.sess.CancelEdit(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleHistoryOpen(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid todo id", http.StatusBadRequest)
		return
	}
	if _, err := s.sess.OpenHistory(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleHistoryStep(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, ok := formID(r)
	if !ok {
		http.Error(w, "invalid todo id", http.StatusBadRequest)
		return
	}
	delta, err := strconv.Atoi(strings.TrimSpace(r.Form.Get("delta")))
	if err != nil {
		http.Error(w, "invalid delta", http.StatusBadRequest)
		return
	}
	if _, err := s.sess.NavigateHistory(r.Context(), id, delta); err != nil {
		s.fail(w, err)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleHistoryClose(w http.ResponseWriter, r *http.Request) {
	if _, err := s.sess.CloseHistory(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	redirectHome(w, r)
}

// handleFilter sets every filter field present in the form.
func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for _, field := range []model.FilterField{model.FilterFieldText, model.FilterFieldStatus, model.FilterFieldCategory} {
		if !r.Form.Has(string(field)) {
			continue
		}
		if _, err := s.sess.SetFilter(r.Context(), field, r.Form.Get(string(field))); err != nil {
			s.fail(w, err)
			return
		}
	}
	redirectHome(w, r)
}

func (s *Server) handleFilterReset(w http.ResponseWriter, r *http.Request) {
	if _, err := s.sess.ResetFilter(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	field, err := model.ParseSortField(r.Form.Get("by"))
	if err != nil {
		s.fail(w, fmt.Errorf("%w: %w", errBadForm, err))
		return
	}
	if _, err := s.sess.SetSort(r.Context(), field); err != nil {
		s.fail(w, err)
		return
	}
	redirectHome(w, r)
}
