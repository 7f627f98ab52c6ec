package session

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"todo-cli/internal/logging"
	"todo-cli/internal/metrics"
	"todo-cli/internal/model"
	"todo-cli/internal/store"
)

type recordingNotifier struct {
	chimes chan struct{}
	cues   chan int
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{chimes: make(chan struct{}, 4), cues: make(chan int, 4)}
}

func (n *recordingNotifier) Chime()     { n.chimes <- struct{}{} }
func (n *recordingNotifier) Cue(id int) { n.cues <- id }

type panickyNotifier struct{}

func (panickyNotifier) Chime()  { panic("no speaker") }
func (panickyNotifier) Cue(int) { panic("no screen") }

type failingPersister struct {
	err error
}

func (f *failingPersister) Load(context.Context) (*store.Snapshot, error) { return nil, f.err }
func (f *failingPersister) Save(context.Context, *store.Snapshot) error   { return f.err }
func (f *failingPersister) Quarantine(context.Context) (string, error)    { return "", nil }

func newTestSession(t *testing.T, n Notifier) (*Session, *store.Store, store.Backend) {
	t.Helper()
	be := store.NewMemoryBackend()
	st := store.New(be, "", logging.Discard())
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	s := New(Options{
		Persister: st,
		Notifier:  n,
		Metrics:   metrics.New(),
		Logger:    logging.Discard(),
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		},
	})
	if err := s.Hydrate(context.Background()); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	return s, st, be
}

func mustChange(t *testing.T) func(Change, error) Change {
	return func(c Change, err error) Change {
		t.Helper()
		if err != nil {
			t.Fatalf("command failed: %v", err)
		}
		return c
	}
}

func TestBuyMilkEndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	n := newRecordingNotifier()
	s, st, _ := newTestSession(t, n)

	add := mustChange(t)(s.Add(ctx, "Buy milk", "", model.CategoryShopping, ""))
	if !add.Changed || add.ID != 1 {
		t.Fatalf("unexpected add change: %#v", add)
	}
	tog := mustChange(t)(s.ToggleStatus(ctx, add.ID))
	if !tog.Changed || !tog.Completed {
		t.Fatalf("unexpected toggle change: %#v", tog)
	}

	got, ok := s.Todo(add.ID)
	if !ok || got.Status != model.StatusComplete {
		t.Fatalf("want complete todo, got %#v", got)
	}
	if len(got.History) != 2 {
		t.Fatalf("want 2 history entries, got %d", len(got.History))
	}
	if stats := s.Stats(); stats.Completed != 1 || stats.Total != 1 || stats.Visible != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	select {
	case <-n.chimes:
	case <-time.After(2 * time.Second):
		t.Fatalf("chime never played")
	}
	select {
	case id := <-n.cues:
		if id != add.ID {
			t.Fatalf("cue for wrong todo: %d", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("cue never shown")
	}

	saved, err := st.Load(ctx)
	if err != nil || saved == nil {
		t.Fatalf("expected persisted snapshot, got %v (err=%v)", saved, err)
	}
	if len(saved.Todos) != 1 || saved.Todos[0].Status != model.StatusComplete || saved.NextID != 2 {
		t.Fatalf("persisted snapshot out of date: %#v", saved)
	}
}

func TestAdd_BlankTitleIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, st, _ := newTestSession(t, nil)
	c := mustChange(t)(s.Add(ctx, "   ", "x", model.CategoryWork, ""))
	if c.Changed {
		t.Fatalf("blank title must not change state")
	}
	if s.Stats().Total != 0 {
		t.Fatalf("expected empty collection")
	}
	if saved, _ := st.Load(ctx); saved != nil {
		t.Fatalf("no-op must not persist, got %#v", saved)
	}
}

func TestToggle_NotifierPanicDoesNotBlockChange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _, _ := newTestSession(t, panickyNotifier{})
	add := mustChange(t)(s.Add(ctx, "x", "", model.CategoryOther, ""))
	if c := mustChange(t)(s.ToggleStatus(ctx, add.ID)); !c.Changed {
		t.Fatalf("toggle should have applied")
	}
	got, _ := s.Todo(add.ID)
	if got.Status != model.StatusComplete {
		t.Fatalf("want complete, got %q", got.Status)
	}
}

func TestDelete_ClosesHistoryPanelForThatTodo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _, _ := newTestSession(t, nil)
	a := mustChange(t)(s.Add(ctx, "a", "", model.CategoryOther, ""))
	b := mustChange(t)(s.Add(ctx, "b", "", model.CategoryOther, ""))

	mustChange(t)(s.OpenHistory(ctx, b.ID))
	mustChange(t)(s.Delete(ctx, a.ID, Confirmed(true)))
	if h, ok := s.HistoryState(); !ok || h.ID != b.ID {
		t.Fatalf("deleting another todo must keep the panel open, got %#v (ok=%v)", h, ok)
	}

	mustChange(t)(s.Delete(ctx, b.ID, Confirmed(true)))
	if _, ok := s.HistoryState(); ok {
		t.Fatalf("panel should close with its todo")
	}
	if snap := s.Snapshot(); snap.ShowHistory != nil {
		t.Fatalf("snapshot still references deleted todo: %v", *snap.ShowHistory)
	}
}

func TestDelete_DeclinedIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _, _ := newTestSession(t, nil)
	a := mustChange(t)(s.Add(ctx, "a", "", model.CategoryOther, ""))

	asked := 0
	c := mustChange(t)(s.Delete(ctx, a.ID, ConfirmFunc(func(_ context.Context, td model.Todo) (bool, error) {
		asked++
		if td.ID != a.ID {
			t.Errorf("asked about wrong todo %d", td.ID)
		}
		return false, nil
	})))
	if c.Changed || asked != 1 {
		t.Fatalf("want declined no-op after one prompt, got %#v (asked=%d)", c, asked)
	}
	if _, ok := s.Todo(a.ID); !ok {
		t.Fatalf("declined delete removed the todo")
	}

	boom := errors.New("prompt closed")
	_, err := s.Delete(ctx, a.ID, ConfirmFunc(func(context.Context, model.Todo) (bool, error) { return true, boom }))
	if !errors.Is(err, boom) {
		t.Fatalf("want prompt error, got %v", err)
	}
	if _, ok := s.Todo(a.ID); !ok {
		t.Fatalf("failed prompt removed the todo")
	}
}

func TestSetSort_FlipsOnSameField(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _, _ := newTestSession(t, nil)

	steps := []struct {
		field model.SortField
		want  model.Sort
	}{
		{model.SortByDueDate, model.Sort{By: model.SortByDueDate, Direction: model.SortDesc}},
		{model.SortByDueDate, model.Sort{By: model.SortByDueDate, Direction: model.SortAsc}},
		{model.SortByTitle, model.Sort{By: model.SortByTitle, Direction: model.SortAsc}},
		{model.SortByTitle, model.Sort{By: model.SortByTitle, Direction: model.SortDesc}},
		{model.SortByDueDate, model.Sort{By: model.SortByDueDate, Direction: model.SortAsc}},
	}
	for i, step := range steps {
		mustChange(t)(s.SetSort(ctx, step.field))
		if got := s.Sort(); got != step.want {
			t.Fatalf("step %d: want %#v, got %#v", i, step.want, got)
		}
	}
	if _, err := s.SetSort(ctx, "priority"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
}

func TestSetFilter_ConjunctiveView(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _, _ := newTestSession(t, nil)
	w1 := mustChange(t)(s.Add(ctx, "report", "", model.CategoryWork, ""))
	mustChange(t)(s.Add(ctx, "slides", "", model.CategoryWork, ""))
	h := mustChange(t)(s.Add(ctx, "run", "", model.CategoryHealth, ""))
	mustChange(t)(s.ToggleStatus(ctx, w1.ID))
	mustChange(t)(s.ToggleStatus(ctx, h.ID))

	mustChange(t)(s.SetFilter(ctx, model.FilterFieldCategory, "work"))
	mustChange(t)(s.SetFilter(ctx, model.FilterFieldStatus, "done"))
	view := s.View()
	if len(view) != 1 || view[0].ID != w1.ID {
		t.Fatalf("want only %d, got %#v", w1.ID, view)
	}
	if got := s.Filter(); got.Status != "complete" || got.Category != "work" {
		t.Fatalf("filter not normalized: %#v", got)
	}

	if _, err := s.SetFilter(ctx, model.FilterFieldCategory, "garden"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}

	c := mustChange(t)(s.ResetFilter(ctx))
	if !c.Changed || s.Filter() != model.DefaultFilter() || len(s.View()) != 3 {
		t.Fatalf("reset did not restore defaults: %#v", s.Filter())
	}
}

func TestEdit_BufferDoesNotTouchStoredTodo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _, _ := newTestSession(t, nil)
	a := mustChange(t)(s.Add(ctx, "Draft", "v1", model.CategoryWork, "2024-06-01"))

	mustChange(t)(s.StartEdit(ctx, a.ID))
	mustChange(t)(s.SetEditField(ctx, EditTitle, "Final"))
	mustChange(t)(s.SetEditField(ctx, EditCategory, "school"))

	stored, _ := s.Todo(a.ID)
	if stored.Title != "Draft" || stored.Category != model.CategoryWork || len(stored.History) != 1 {
		t.Fatalf("edit buffer leaked into stored todo: %#v", stored)
	}
	es := s.EditState()
	if !es.Editing || es.ID != a.ID || es.Buffer.Title != "Final" {
		t.Fatalf("unexpected edit state: %#v", es)
	}
	if _, err := s.SetEditField(ctx, EditDueDate, "tomorrow"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}

	mustChange(t)(s.SubmitEdit(ctx))
	stored, _ = s.Todo(a.ID)
	if stored.Title != "Final" || stored.Category != model.CategorySchool || len(stored.History) != 2 {
		t.Fatalf("submit did not apply buffer: %#v", stored)
	}
	if es := s.EditState(); es.Editing || es.Buffer != (model.Fields{}) {
		t.Fatalf("submit should close the form, got %#v", es)
	}
}

func TestSetEditFields_AllOrNothing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, st, _ := newTestSession(t, nil)
	a := mustChange(t)(s.Add(ctx, "Draft", "", model.CategoryWork, ""))
	mustChange(t)(s.StartEdit(ctx, a.ID))

	_, err := s.SetEditFields(ctx, []EditValue{
		{Field: EditTitle, Value: "Final"},
		{Field: EditDueDate, Value: "someday"},
	})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
	if got := s.EditState().Buffer.Title; got != "Draft" {
		t.Fatalf("want buffer untouched after invalid value, got title %q", got)
	}
	snap, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.CurrentTodo.Title != "Draft" {
		t.Fatalf("want persisted buffer untouched, got title %q", snap.CurrentTodo.Title)
	}

	c := mustChange(t)(s.SetEditFields(ctx, []EditValue{
		{Field: EditTitle, Value: "Final"},
		{Field: EditDueDate, Value: "2024-07-01"},
	}))
	if !c.Changed || c.ID != a.ID {
		t.Fatalf("unexpected change: %#v", c)
	}
	buf := s.EditState().Buffer
	if buf.Title != "Final" || buf.DueDate != "2024-07-01" {
		t.Fatalf("want both fields applied, got %#v", buf)
	}
}

func TestEdit_CancelAndBlankSubmit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _, _ := newTestSession(t, nil)
	a := mustChange(t)(s.Add(ctx, "Keep", "", model.CategoryWork, ""))

	mustChange(t)(s.StartEdit(ctx, a.ID))
	mustChange(t)(s.SetEditField(ctx, EditTitle, "  "))
	if c := mustChange(t)(s.SubmitEdit(ctx)); c.Changed {
		t.Fatalf("blank title submit must be a no-op")
	}
	if es := s.EditState(); !es.Editing {
		t.Fatalf("form should stay open after rejected submit")
	}
	mustChange(t)(s.CancelEdit(ctx))
	if es := s.EditState(); es.Editing {
		t.Fatalf("cancel should close the form")
	}
	if got, _ := s.Todo(a.ID); got.Title != "Keep" {
		t.Fatalf("cancelled edit changed todo: %#v", got)
	}
	if _, err := s.SetEditField(ctx, EditTitle, "x"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument without an open edit, got %v", err)
	}
}

func TestUpdate_ClosesEditForm(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _, _ := newTestSession(t, nil)
	a := mustChange(t)(s.Add(ctx, "a", "", model.CategoryWork, ""))
	mustChange(t)(s.StartEdit(ctx, a.ID))
	mustChange(t)(s.ToggleStatus(ctx, a.ID))
	if es := s.EditState(); es.Editing {
		t.Fatalf("update must clear the edit marker")
	}
}

func TestHistory_NavigateAndNoAutoAdvance(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _, _ := newTestSession(t, nil)
	a := mustChange(t)(s.Add(ctx, "a", "", model.CategoryWork, ""))
	mustChange(t)(s.ToggleStatus(ctx, a.ID))
	mustChange(t)(s.OpenHistory(ctx, a.ID))

	h, _ := s.HistoryState()
	if h.Index != 1 || h.Len != 2 || h.Entry.Data.Status != model.StatusComplete {
		t.Fatalf("want newest entry on open, got %#v", h)
	}
	mustChange(t)(s.NavigateHistory(ctx, a.ID, -100))
	if h, _ := s.HistoryState(); h.Index != 0 || h.Entry.Action != model.ActionCreated {
		t.Fatalf("want clamp to 0, got %#v", h)
	}
	if c := mustChange(t)(s.NavigateHistory(ctx, a.ID, -1)); c.Changed {
		t.Fatalf("step past the start must not report a change")
	}

	mustChange(t)(s.ToggleStatus(ctx, a.ID))
	if h, _ := s.HistoryState(); h.Index != 0 || h.Len != 3 {
		t.Fatalf("cursor auto-advanced: %#v", h)
	}
	mustChange(t)(s.NavigateHistory(ctx, a.ID, 100))
	if h, _ := s.HistoryState(); h.Index != 2 {
		t.Fatalf("want clamp to 2, got %#v", h)
	}

	mustChange(t)(s.CloseHistory(ctx))
	if _, ok := s.HistoryState(); ok {
		t.Fatalf("want closed panel")
	}
	if h, ok := s.HistoryFor(a.ID); !ok || h.Index != 2 || h.Open {
		t.Fatalf("cursor should survive close, got %#v", h)
	}
}

func TestHydrate_RestoresSnapshotAndCounter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, st, _ := newTestSession(t, nil)
	a := mustChange(t)(s.Add(ctx, "a", "", model.CategoryWork, ""))
	b := mustChange(t)(s.Add(ctx, "b", "", model.CategoryWork, ""))
	mustChange(t)(s.Delete(ctx, b.ID, Confirmed(true)))
	mustChange(t)(s.SetSort(ctx, model.SortByTitle))
	mustChange(t)(s.OpenHistory(ctx, a.ID))
	mustChange(t)(s.StartEdit(ctx, a.ID))
	mustChange(t)(s.SetEditField(ctx, EditDescription, "wip"))
	want := s.Snapshot()

	reloaded := New(Options{Persister: st, Logger: logging.Discard()})
	if err := reloaded.Hydrate(ctx); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if got := reloaded.Snapshot(); !reflect.DeepEqual(want, got) {
		t.Fatalf("state did not survive reload:\nwant: %#v\ngot:  %#v", want, got)
	}
	c := mustChange(t)(reloaded.Add(ctx, "c", "", model.CategoryWork, ""))
	if c.ID <= b.ID {
		t.Fatalf("id %d reused after reload (deleted %d)", c.ID, b.ID)
	}
}

func TestHydrate_CorruptSnapshotFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	be := store.NewMemoryBackend()
	if err := be.Put(ctx, store.DefaultKey, []byte(`{"todos": 5}`)); err != nil {
		t.Fatal(err)
	}
	st := store.New(be, "", logging.Discard())
	s := New(Options{Persister: st, Logger: logging.Discard()})
	if err := s.Hydrate(ctx); err != nil {
		t.Fatalf("corrupt state must not fail hydrate: %v", err)
	}
	if s.Stats().Total != 0 || s.Sort() != model.DefaultSort() {
		t.Fatalf("want defaults after corrupt snapshot")
	}
	if saved, err := st.Load(ctx); err != nil || saved != nil {
		t.Fatalf("corrupt blob should be moved aside, got %#v (err=%v)", saved, err)
	}
}

func TestHydrate_IOErrorIsReturned(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk gone")
	s := New(Options{Persister: &failingPersister{err: boom}, Logger: logging.Discard()})
	if err := s.Hydrate(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("want %v, got %v", boom, err)
	}
}

func TestCommand_PersistFailureIsReported(t *testing.T) {
	t.Parallel()

	boom := errors.New("read-only")
	s := New(Options{Persister: &failingPersister{err: boom}, Logger: logging.Discard()})
	c, err := s.Add(context.Background(), "a", "", model.CategoryWork, "")
	if !errors.Is(err, boom) {
		t.Fatalf("want persist error, got %v", err)
	}
	if !c.Changed || s.Stats().Total != 1 {
		t.Fatalf("in-memory change should still apply: %#v", c)
	}
}

func TestSubscribe_ReceivesChanges(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _, _ := newTestSession(t, nil)
	ch, cancel := s.Subscribe()
	defer cancel()

	a := mustChange(t)(s.Add(ctx, "a", "", model.CategoryWork, ""))
	mustChange(t)(s.Add(ctx, "", "", model.CategoryWork, ""))
	mustChange(t)(s.ToggleStatus(ctx, a.ID))

	want := []Change{
		{Kind: KindAdd, ID: a.ID, Changed: true},
		{Kind: KindToggle, ID: a.ID, Changed: true, Completed: true},
	}
	for i, w := range want {
		select {
		case got := <-ch:
			if got != w {
				t.Fatalf("event %d: want %#v, got %#v", i, w, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("event %d never arrived", i)
		}
	}
	select {
	case extra := <-ch:
		t.Fatalf("no-op leaked an event: %#v", extra)
	default:
	}
}

func TestRun_AutosavesAndFlushesOnStop(t *testing.T) {
	t.Parallel()

	s, st, _ := newTestSession(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if saved, _ := st.Load(context.Background()); saved != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("autosave never wrote a snapshot")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop on cancel")
	}
}
