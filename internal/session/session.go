// Package session is the single authority over the todo collection and the
// view state around it. Every command runs under one lock, persists the
// snapshot when it changed something, and reports what happened.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"todo-cli/internal/history"
	"todo-cli/internal/metrics"
	"todo-cli/internal/model"
	"todo-cli/internal/query"
	"todo-cli/internal/store"
	"todo-cli/internal/todos"
)

// Persister is the storage the session reads at startup and writes after each change.
type Persister interface {
	Load(ctx context.Context) (*store.Snapshot, error)
	Save(ctx context.Context, st *store.Snapshot) error
	Quarantine(ctx context.Context) (string, error)
}

type Options struct {
	Persister Persister
	Notifier  Notifier
	Metrics   *metrics.Metrics
	Logger    *log.Logger
	Now       func() time.Time
}

type Session struct {
	mu sync.Mutex

	todos     *todos.Store
	filter    model.Filter
	sort      model.Sort
	editingID *int
	buffer    model.Fields
	nav       *history.Navigator

	persister Persister
	notifier  Notifier
	metrics   *metrics.Metrics
	log       *log.Logger
	now       func() time.Time

	hub *hub
}

// New returns a session holding the default empty state. Call Hydrate to load saved state.
func New(opts Options) *Session {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		todos:     todos.New(now),
		filter:    model.DefaultFilter(),
		sort:      model.DefaultSort(),
		nav:       history.New(),
		persister: opts.Persister,
		notifier:  opts.Notifier,
		metrics:   opts.Metrics,
		log:       logger,
		now:       now,
		hub:       newHub(),
	}
}

// Hydrate loads the persisted snapshot. A missing snapshot keeps the defaults.
// A corrupt one is moved aside and the defaults are used; only I/O errors are returned.
func (s *Session) Hydrate(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	st, err := s.persister.Load(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrCorruptSnapshot) {
			return err
		}
		s.log.Warn("stored state is unreadable; starting empty", "err", err)
		if _, qerr := s.persister.Quarantine(ctx); qerr != nil {
			s.log.Error("could not move corrupt state aside", "err", qerr)
		}
		st = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st == nil {
		s.resetLocked()
		s.log.Debug("no stored state")
		return nil
	}
	s.restoreLocked(st)
	s.log.Debug("hydrated", "todos", s.todos.Len(), "next_id", s.todos.NextID())
	s.observeItemsLocked()
	return nil
}

// Restore replaces the whole state with st and persists it.
func (s *Session) Restore(ctx context.Context, st *store.Snapshot) (Change, error) {
	if st == nil {
		return Change{Kind: KindImport}, errors.New("nil snapshot")
	}
	s.mu.Lock()
	s.restoreLocked(st)
	return s.commit(ctx, Change{Kind: KindImport, Changed: true})
}

func (s *Session) resetLocked() {
	s.todos.Hydrate(nil, 0)
	s.filter = model.DefaultFilter()
	s.sort = model.DefaultSort()
	s.editingID = nil
	s.buffer = model.Fields{}
	s.nav = history.New()
}

func (s *Session) restoreLocked(st *store.Snapshot) {
	s.todos.Hydrate(st.Todos, st.NextID)
	s.filter = st.Filters
	s.sort = st.Sort
	s.editingID = nil
	s.buffer = model.Fields{}
	if st.EditingID != nil {
		if _, ok := s.todos.Find(*st.EditingID); ok {
			id := *st.EditingID
			s.editingID = &id
			s.buffer = st.CurrentTodo
		}
	}
	active := st.ShowHistory
	if active != nil {
		if _, ok := s.todos.Find(*active); !ok {
			active = nil
		}
	}
	s.nav = history.New()
	s.nav.Restore(active, st.CurrentHistoryIndex)
}

func (s *Session) snapshotLocked() *store.Snapshot {
	st := &store.Snapshot{
		Version:             store.SnapshotVersion,
		Todos:               s.todos.All(),
		Filters:             s.filter,
		Sort:                s.sort,
		NextID:              s.todos.NextID(),
		CurrentTodo:         s.buffer,
		CurrentHistoryIndex: s.nav.Cursors(),
	}
	if s.editingID != nil {
		id := *s.editingID
		st.EditingID = &id
	}
	if id, ok := s.nav.Active(); ok {
		st.ShowHistory = &id
	}
	return st
}

// Snapshot returns a consistent copy of the whole persisted state.
func (s *Session) Snapshot() *store.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Save writes the current snapshot.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}

func (s *Session) persistLocked(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	start := time.Now()
	err := s.persister.Save(ctx, s.snapshotLocked())
	s.metrics.Persist(time.Since(start), err)
	if err != nil {
		s.log.Error("persist failed", "err", err)
	}
	return err
}

func (s *Session) observeItemsLocked() {
	done := s.todos.CompletedCount()
	s.metrics.Items(s.todos.Len()-done, done)
}

// View is the filtered, sorted list currently on display.
func (s *Session) View() []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return query.View(s.todos.All(), s.filter, s.sort)
}

type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Visible   int `json:"visible"`
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Total:     s.todos.Len(),
		Completed: s.todos.CompletedCount(),
		Visible:   len(query.View(s.todos.All(), s.filter, s.sort)),
	}
}

func (s *Session) Todo(id int) (model.Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.todos.Find(id)
}

// All returns every todo in insertion order, ignoring the filter.
func (s *Session) All() []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.todos.All()
}

func (s *Session) Filter() model.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

func (s *Session) Sort() model.Sort {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sort
}

// EditState describes the edit form: which todo is open and its unsaved buffer.
type EditState struct {
	Editing bool         `json:"editing"`
	ID      int          `json:"id,omitempty"`
	Buffer  model.Fields `json:"buffer"`
}

func (s *Session) EditState() EditState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editingID == nil {
		return EditState{Buffer: s.buffer}
	}
	return EditState{Editing: true, ID: *s.editingID, Buffer: s.buffer}
}

// HistoryState is one todo's history positioned at its cursor.
type HistoryState struct {
	Open    bool                 `json:"open"`
	ID      int                  `json:"id"`
	Title   string               `json:"title"`
	Index   int                  `json:"index"`
	Len     int                  `json:"len"`
	Entry   model.HistoryEntry   `json:"entry"`
	Entries []model.HistoryEntry `json:"entries"`
}

// HistoryState returns the open panel's state, or ok=false when no panel is open.
func (s *Session) HistoryState() (HistoryState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.nav.Active()
	if !ok {
		return HistoryState{}, false
	}
	return s.historyForLocked(id, true)
}

// HistoryFor returns id's history at its cursor without opening the panel.
func (s *Session) HistoryFor(id int) (HistoryState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active, open := s.nav.Active()
	return s.historyForLocked(id, open && active == id)
}

func (s *Session) historyForLocked(id int, open bool) (HistoryState, bool) {
	t, ok := s.todos.Find(id)
	if !ok || len(t.History) == 0 {
		return HistoryState{}, false
	}
	idx := s.nav.Cursor(id, len(t.History))
	return HistoryState{
		Open:    open,
		ID:      id,
		Title:   t.Title,
		Index:   idx,
		Len:     len(t.History),
		Entry:   t.History[idx],
		Entries: t.History,
	}, true
}
