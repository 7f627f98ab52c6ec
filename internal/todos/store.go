// Package todos owns the authoritative todo collection and its id sequence.
//
// Every mutation appends a history entry. Invalid input and unknown ids are
// silent no-ops; callers learn about them through the returned ok flags.
package todos

import (
	"strings"
	"time"

	"todo-cli/internal/model"
)

type Store struct {
	items []model.Todo
	next  int
	now   func() time.Time
}

// New returns an empty store. A nil clock means time.Now.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{next: 1, now: now}
}

// Hydrate replaces the collection with copies of items and resets the id counter.
//
// The counter becomes max(id)+1 (1 when empty), raised to persistedNext when that is
// larger, so ids of deleted todos are not handed out again after a restart.
func (s *Store) Hydrate(items []model.Todo, persistedNext int) {
	s.items = make([]model.Todo, 0, len(items))
	maxID := 0
	for _, it := range items {
		s.items = append(s.items, it.Clone())
		if it.ID > maxID {
			maxID = it.ID
		}
	}
	s.next = maxID + 1
	if persistedNext > s.next {
		s.next = persistedNext
	}
}

// NextID is the id the next successful Create will assign.
func (s *Store) NextID() int { return s.next }

func (s *Store) Len() int { return len(s.items) }

func (s *Store) CompletedCount() int {
	n := 0
	for _, it := range s.items {
		if it.Status == model.StatusComplete {
			n++
		}
	}
	return n
}

func (s *Store) Find(id int) (model.Todo, bool) {
	idx := s.indexOf(id)
	if idx < 0 {
		return model.Todo{}, false
	}
	return s.items[idx].Clone(), true
}

// All returns copies of every todo in insertion order.
func (s *Store) All() []model.Todo {
	out := make([]model.Todo, len(s.items))
	for i, it := range s.items {
		out[i] = it.Clone()
	}
	return out
}

func (s *Store) Create(title, description string, category model.Category, due model.Date) (int, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, false
	}
	if !category.Valid() {
		category = model.DefaultCategory
	}

	id := s.next
	s.next++

	now := s.now()
	t := model.Todo{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(description),
		Category:    category,
		DueDate:     model.Date(strings.TrimSpace(string(due))),
		Status:      model.StatusIncomplete,
		CreatedAt:   now,
	}
	t.History = []model.HistoryEntry{{
		Timestamp: now,
		Action:    model.ActionCreated,
		Data:      t.Fields(),
	}}
	s.items = append(s.items, t)
	return id, true
}

// Update merges p onto the todo and appends one "updated" entry with the full merged fields.
// It is a no-op when id is unknown or the merge would leave a blank title.
func (s *Store) Update(id int, p model.Patch) bool {
	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	t := s.items[idx].Clone()

	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return false
		}
		t.Title = title
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Category != nil && p.Category.Valid() {
		t.Category = *p.Category
	}
	if p.DueDate != nil {
		t.DueDate = model.Date(strings.TrimSpace(string(*p.DueDate)))
	}
	if p.Status != nil && p.Status.Valid() {
		t.Status = *p.Status
	}

	ts := s.now()
	if n := len(t.History); n > 0 && ts.Before(t.History[n-1].Timestamp) {
		ts = t.History[n-1].Timestamp
	}
	t.History = append(t.History, model.HistoryEntry{
		Timestamp: ts,
		Action:    model.ActionUpdated,
		Data:      t.Fields(),
	})
	s.items[idx] = t
	return true
}

func (s *Store) Delete(id int) bool {
	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
	return true
}

// ToggleStatus flips complete<->incomplete through Update and returns the new status.
func (s *Store) ToggleStatus(id int) (model.Status, bool) {
	idx := s.indexOf(id)
	if idx < 0 {
		return "", false
	}
	next := s.items[idx].Status.Toggled()
	if !s.Update(id, model.Patch{Status: &next}) {
		return "", false
	}
	return next, true
}

func (s *Store) indexOf(id int) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
