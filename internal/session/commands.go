package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"todo-cli/internal/model"
)

// ErrInvalidArgument marks a command argument the presentation layer failed to validate.
var ErrInvalidArgument = errors.New("invalid argument")

type Kind string

const (
	KindAdd     Kind = "add"
	KindUpdate  Kind = "update"
	KindDelete  Kind = "delete"
	KindToggle  Kind = "toggle"
	KindFilter  Kind = "filter"
	KindSort    Kind = "sort"
	KindEdit    Kind = "edit"
	KindHistory Kind = "history"
	KindImport  Kind = "import"
)

// Change reports the outcome of a command. Changed=false means the command was a no-op
// and nothing was persisted.
type Change struct {
	Kind    Kind `json:"kind"`
	ID      int  `json:"id,omitempty"`
	Changed bool `json:"changed"`

	// Completed is set when a toggle moved the todo into complete.
	Completed bool `json:"completed,omitempty"`
}

// commit must be called with s.mu held; it releases it.
func (s *Session) commit(ctx context.Context, c Change) (Change, error) {
	var err error
	if c.Changed {
		s.observeItemsLocked()
		err = s.persistLocked(ctx)
	}
	s.metrics.Command(string(c.Kind), c.Changed)
	s.mu.Unlock()
	if c.Changed {
		s.hub.broadcast(c)
	}
	if err != nil {
		return c, fmt.Errorf("persist: %w", err)
	}
	return c, nil
}

func (s *Session) Add(ctx context.Context, title, description string, category model.Category, due model.Date) (Change, error) {
	s.mu.Lock()
	id, ok := s.todos.Create(title, description, category, due)
	return s.commit(ctx, Change{Kind: KindAdd, ID: id, Changed: ok})
}

// Update merges p onto the todo. A successful update also closes the edit form.
func (s *Session) Update(ctx context.Context, id int, p model.Patch) (Change, error) {
	s.mu.Lock()
	ok := s.updateLocked(id, p)
	return s.commit(ctx, Change{Kind: KindUpdate, ID: id, Changed: ok})
}

func (s *Session) updateLocked(id int, p model.Patch) bool {
	if !s.todos.Update(id, p) {
		return false
	}
	s.editingID = nil
	s.buffer = model.Fields{}
	return true
}

// Delete removes the todo once c agrees. A declined or failed confirmation is a no-op.
func (s *Session) Delete(ctx context.Context, id int, c Confirmer) (Change, error) {
	t, ok := s.Todo(id)
	if !ok {
		s.metrics.Command(string(KindDelete), false)
		return Change{Kind: KindDelete, ID: id}, nil
	}
	if c == nil {
		c = Confirmed(false)
	}
	yes, err := c.Confirm(ctx, t)
	if err != nil || !yes {
		s.metrics.Command(string(KindDelete), false)
		return Change{Kind: KindDelete, ID: id}, err
	}

	s.mu.Lock()
	ok = s.todos.Delete(id)
	if ok {
		s.nav.Forget(id)
		if s.editingID != nil && *s.editingID == id {
			s.editingID = nil
			s.buffer = model.Fields{}
		}
	}
	return s.commit(ctx, Change{Kind: KindDelete, ID: id, Changed: ok})
}

// ToggleStatus flips the todo's status. Moving into complete fires the notifier first;
// the notifier runs on its own goroutines and cannot hold up or prevent the change.
func (s *Session) ToggleStatus(ctx context.Context, id int) (Change, error) {
	s.mu.Lock()
	t, ok := s.todos.Find(id)
	if !ok {
		return s.commit(ctx, Change{Kind: KindToggle, ID: id})
	}
	next := t.Status.Toggled()
	completing := next == model.StatusComplete
	if completing {
		s.notifyComplete(id)
	}
	ok = s.updateLocked(id, model.Patch{Status: &next})
	return s.commit(ctx, Change{Kind: KindToggle, ID: id, Changed: ok, Completed: ok && completing})
}

// SetFilter sets one filter field. Status and category accept "all".
func (s *Session) SetFilter(ctx context.Context, field model.FilterField, value string) (Change, error) {
	v, err := normalizeFilterValue(field, value)
	if err != nil {
		return Change{Kind: KindFilter}, err
	}

	s.mu.Lock()
	f := s.filter
	switch field {
	case model.FilterFieldText:
		f.Text = v
	case model.FilterFieldStatus:
		f.Status = v
	case model.FilterFieldCategory:
		f.Category = v
	}
	changed := s.filter != f
	s.filter = f
	return s.commit(ctx, Change{Kind: KindFilter, Changed: changed})
}

func normalizeFilterValue(field model.FilterField, value string) (string, error) {
	switch field {
	case model.FilterFieldText:
		return value, nil
	case model.FilterFieldStatus:
		v := strings.ToLower(strings.TrimSpace(value))
		if v == model.FilterAll {
			return v, nil
		}
		st, err := model.ParseStatus(v)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		return string(st), nil
	case model.FilterFieldCategory:
		v := strings.ToLower(strings.TrimSpace(value))
		if v == model.FilterAll {
			return v, nil
		}
		c, err := model.ParseCategory(v)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		return string(c), nil
	default:
		return "", fmt.Errorf("%w: filter field %q", ErrInvalidArgument, field)
	}
}

func (s *Session) ResetFilter(ctx context.Context) (Change, error) {
	s.mu.Lock()
	def := model.DefaultFilter()
	changed := s.filter != def
	s.filter = def
	return s.commit(ctx, Change{Kind: KindFilter, Changed: changed})
}

// SetSort sorts by field ascending, or flips the direction when field is already active.
func (s *Session) SetSort(ctx context.Context, field model.SortField) (Change, error) {
	if field != model.SortByDueDate && field != model.SortByTitle {
		return Change{Kind: KindSort}, fmt.Errorf("%w: sort field %q", ErrInvalidArgument, field)
	}
	s.mu.Lock()
	if s.sort.By == field {
		s.sort.Direction = s.sort.Direction.Flipped()
	} else {
		s.sort = model.Sort{By: field, Direction: model.SortAsc}
	}
	return s.commit(ctx, Change{Kind: KindSort, Changed: true})
}

// StartEdit opens the edit form on a copy of the todo's fields.
func (s *Session) StartEdit(ctx context.Context, id int) (Change, error) {
	s.mu.Lock()
	t, ok := s.todos.Find(id)
	if ok {
		s.editingID = &id
		s.buffer = t.Fields()
	}
	return s.commit(ctx, Change{Kind: KindEdit, ID: id, Changed: ok})
}

type EditField string

const (
	EditTitle       EditField = "title"
	EditDescription EditField = "description"
	EditCategory    EditField = "category"
	EditDueDate     EditField = "dueDate"
	EditStatus      EditField = "status"
)

func ParseEditField(s string) (EditField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "title":
		return EditTitle, nil
	case "description", "desc":
		return EditDescription, nil
	case "category":
		return EditCategory, nil
	case "duedate", "due", "due-date", "due_date":
		return EditDueDate, nil
	case "status":
		return EditStatus, nil
	default:
		return "", fmt.Errorf("%w: edit field %q", ErrInvalidArgument, s)
	}
}

// SetEditField changes the edit buffer only; the stored todo is untouched until SubmitEdit.
func (s *Session) SetEditField(ctx context.Context, field EditField, value string) (Change, error) {
	return s.SetEditFields(ctx, []EditValue{{Field: field, Value: value}})
}

// EditValue is one field assignment for SetEditFields.
type EditValue struct {
	Field EditField
	Value string
}

// SetEditFields applies every value to the edit buffer, or none of them when one is invalid.
// The buffer is persisted once.
func (s *Session) SetEditFields(ctx context.Context, values []EditValue) (Change, error) {
	s.mu.Lock()
	if s.editingID == nil {
		s.mu.Unlock()
		return Change{Kind: KindEdit}, fmt.Errorf("%w: no edit in progress", ErrInvalidArgument)
	}
	id := *s.editingID
	buf := s.buffer
	for _, v := range values {
		if err := applyEditValue(&buf, v); err != nil {
			s.mu.Unlock()
			return Change{Kind: KindEdit, ID: id}, err
		}
	}
	changed := buf != s.buffer
	s.buffer = buf
	return s.commit(ctx, Change{Kind: KindEdit, ID: id, Changed: changed})
}

func applyEditValue(buf *model.Fields, v EditValue) error {
	switch v.Field {
	case EditTitle:
		buf.Title = v.Value
	case EditDescription:
		buf.Description = v.Value
	case EditCategory:
		c, err := model.ParseCategory(v.Value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		buf.Category = c
	case EditDueDate:
		d, err := model.ParseDate(v.Value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		buf.DueDate = d
	case EditStatus:
		st, err := model.ParseStatus(v.Value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		buf.Status = st
	default:
		return fmt.Errorf("%w: edit field %q", ErrInvalidArgument, v.Field)
	}
	return nil
}

// SubmitEdit writes the edit buffer through Update. A blank title leaves the form open.
func (s *Session) SubmitEdit(ctx context.Context) (Change, error) {
	s.mu.Lock()
	if s.editingID == nil {
		return s.commit(ctx, Change{Kind: KindUpdate})
	}
	id := *s.editingID
	ok := s.updateLocked(id, model.PatchFromFields(s.buffer))
	return s.commit(ctx, Change{Kind: KindUpdate, ID: id, Changed: ok})
}

func (s *Session) CancelEdit(ctx context.Context) (Change, error) {
	s.mu.Lock()
	changed := s.editingID != nil || s.buffer != (model.Fields{})
	id := 0
	if s.editingID != nil {
		id = *s.editingID
	}
	s.editingID = nil
	s.buffer = model.Fields{}
	return s.commit(ctx, Change{Kind: KindEdit, ID: id, Changed: changed})
}

// OpenHistory shows the todo's history at its newest entry.
func (s *Session) OpenHistory(ctx context.Context, id int) (Change, error) {
	s.mu.Lock()
	t, ok := s.todos.Find(id)
	if ok {
		s.nav.Open(id, len(t.History))
	}
	return s.commit(ctx, Change{Kind: KindHistory, ID: id, Changed: ok})
}

// NavigateHistory moves the todo's history cursor by delta, clamped to its history.
func (s *Session) NavigateHistory(ctx context.Context, id, delta int) (Change, error) {
	s.mu.Lock()
	t, ok := s.todos.Find(id)
	if ok {
		before := s.nav.Cursors()
		had, existed := before[id]
		ok = s.nav.Step(id, delta, len(t.History))
		if ok {
			after := s.nav.Cursors()[id]
			ok = !existed || had != after
		}
	}
	return s.commit(ctx, Change{Kind: KindHistory, ID: id, Changed: ok})
}

func (s *Session) CloseHistory(ctx context.Context) (Change, error) {
	s.mu.Lock()
	id, open := s.nav.Active()
	s.nav.Close()
	return s.commit(ctx, Change{Kind: KindHistory, ID: id, Changed: open})
}
