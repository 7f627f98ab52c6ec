package web

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"todo-cli/internal/logging"
	"todo-cli/internal/metrics"
	"todo-cli/internal/model"
	"todo-cli/internal/session"
	"todo-cli/internal/store"
)

func newTestServer(t *testing.T) (*session.Session, http.Handler) {
	t.Helper()
	m := metrics.New()
	sess := session.New(session.Options{
		Persister: store.New(store.NewMemoryBackend(), "", logging.Discard()),
		Metrics:   m,
		Logger:    logging.Discard(),
	})
	if err := sess.Hydrate(context.Background()); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	srv, err := NewServer(ServerConfig{
		Session: sess,
		Metrics: m,
		Logger:  logging.Discard(),
		Now:     func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return sess, srv.Handler()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func post(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func wantRedirect(t *testing.T, rr *httptest.ResponseRecorder, loc string) {
	t.Helper()
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("want 303, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Location"); got != loc {
		t.Fatalf("want redirect to %q, got %q", loc, got)
	}
}

func TestHome_RendersTodosAndEscapesRawHTML(t *testing.T) {
	t.Parallel()

	sess, h := newTestServer(t)
	if _, err := sess.Add(context.Background(), "Buy milk", "**two** litres <script>alert(1)</script>", model.CategoryShopping, "2024-06-01"); err != nil {
		t.Fatalf("add: %v", err)
	}

	rr := get(t, h, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{`id="todo-main"`, "Buy milk", "<strong>two</strong>", "overdue", "1 total · 0 completed · 1 shown"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in page:\n%s", want, body)
		}
	}
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Fatalf("raw HTML in description must not pass through")
	}
	if rr.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestAdd(t *testing.T) {
	t.Parallel()

	sess, h := newTestServer(t)
	wantRedirect(t, post(t, h, "/todos", url.Values{"title": {"Write report"}, "category": {"work"}, "dueDate": {"2024-07-01"}}), "/")
	wantRedirect(t, post(t, h, "/todos", url.Values{"title": {"   "}}), "/")

	all := sess.All()
	if len(all) != 1 {
		t.Fatalf("want 1 todo (blank title ignored), got %d", len(all))
	}
	if all[0].Category != model.CategoryWork || all[0].DueDate != "2024-07-01" {
		t.Fatalf("unexpected todo: %#v", all[0])
	}

	if rr := post(t, h, "/todos", url.Values{"title": {"x"}, "dueDate": {"tomorrow"}}); rr.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for a bad date, got %d", rr.Code)
	}
	if rr := post(t, h, "/todos", url.Values{"title": {"x"}, "category": {"chores"}}); rr.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for a bad category, got %d", rr.Code)
	}
}

func TestToggle_MarksCompletion(t *testing.T) {
	t.Parallel()

	sess, h := newTestServer(t)
	c, _ := sess.Add(context.Background(), "Ship it", "", model.CategoryWork, "")

	wantRedirect(t, post(t, h, "/todos/1/toggle", nil), "/?completed=1")
	if got, _ := sess.Todo(c.ID); got.Status != model.StatusComplete {
		t.Fatalf("want complete, got %q", got.Status)
	}
	if body := get(t, h, "/?completed=1").Body.String(); !strings.Contains(body, `data-completed="1"`) {
		t.Fatalf("expected completion marker in page")
	}

	wantRedirect(t, post(t, h, "/todos/1/toggle", nil), "/")
	if rr := post(t, h, "/todos/abc/toggle", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for a bad id, got %d", rr.Code)
	}
}

func TestDelete_RequiresConfirmation(t *testing.T) {
	t.Parallel()

	sess, h := newTestServer(t)
	sess.Add(context.Background(), "Old task", "", model.CategoryOther, "")

	rr := get(t, h, "/todos/1/delete")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Are you sure you want to delete this todo?") {
		t.Fatalf("expected confirmation page, got %d:\n%s", rr.Code, rr.Body.String())
	}

	wantRedirect(t, post(t, h, "/todos/1/delete", url.Values{"confirm": {"no"}}), "/")
	wantRedirect(t, post(t, h, "/todos/1/delete", nil), "/")
	if _, ok := sess.Todo(1); !ok {
		t.Fatalf("delete without confirmation must keep the todo")
	}

	wantRedirect(t, post(t, h, "/todos/1/delete", url.Values{"confirm": {"yes"}}), "/")
	if _, ok := sess.Todo(1); ok {
		t.Fatalf("confirmed delete must remove the todo")
	}
	if rr := get(t, h, "/todos/1/delete"); rr.Code != http.StatusNotFound {
		t.Fatalf("want 404 for a missing todo, got %d", rr.Code)
	}
}

func TestEditFlow(t *testing.T) {
	t.Parallel()

	sess, h := newTestServer(t)
	sess.Add(context.Background(), "Draft", "", model.CategoryWork, "")

	if rr := post(t, h, "/edit", url.Values{"title": {"x"}}); rr.Code != http.StatusConflict {
		t.Fatalf("want 409 without an edit in progress, got %d", rr.Code)
	}

	wantRedirect(t, post(t, h, "/todos/1/edit", nil), "/")
	if body := get(t, h, "/").Body.String(); !strings.Contains(body, "Edit todo #1") {
		t.Fatalf("expected edit form in page")
	}

	wantRedirect(t, post(t, h, "/edit", url.Values{"title": {"Halfway"}, "action": {"draft"}}), "/")
	st := sess.EditState()
	if !st.Editing || st.Buffer.Title != "Halfway" {
		t.Fatalf("want draft kept in buffer, got %#v", st)
	}
	if got, _ := sess.Todo(1); got.Title != "Draft" {
		t.Fatalf("draft must not touch the stored todo, got %q", got.Title)
	}

	wantRedirect(t, post(t, h, "/edit", url.Values{"title": {"Final"}, "category": {"school"}}), "/")
	got, _ := sess.Todo(1)
	if got.Title != "Final" || got.Category != model.CategorySchool || len(got.History) != 2 {
		t.Fatalf("unexpected todo after submit: %#v", got)
	}
	if sess.EditState().Editing {
		t.Fatalf("submit should close the edit")
	}

	wantRedirect(t, post(t, h, "/todos/1/edit", nil), "/")
	wantRedirect(t, post(t, h, "/edit/cancel", nil), "/")
	if sess.EditState().Editing {
		t.Fatalf("cancel should close the edit")
	}
}

func TestEditSave_InvalidFieldLeavesBuffer(t *testing.T) {
	t.Parallel()

	sess, h := newTestServer(t)
	sess.Add(context.Background(), "Draft", "", model.CategoryWork, "")
	wantRedirect(t, post(t, h, "/todos/1/edit", nil), "/")

	rr := post(t, h, "/edit", url.Values{"title": {"Final"}, "dueDate": {"next week"}, "action": {"draft"}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rr.Code)
	}
	if got := sess.EditState().Buffer.Title; got != "Draft" {
		t.Fatalf("want buffer untouched, got title %q", got)
	}
}

func TestUpdate_AppliesPresentFieldsOnly(t *testing.T) {
	t.Parallel()

	sess, h := newTestServer(t)
	sess.Add(context.Background(), "Call mom", "weekly", model.CategoryPersonal, "2024-06-20")

	wantRedirect(t, post(t, h, "/todos/1/update", url.Values{"status": {"complete"}}), "/")
	got, _ := sess.Todo(1)
	if got.Status != model.StatusComplete || got.Title != "Call mom" || got.Description != "weekly" || got.DueDate != "2024-06-20" {
		t.Fatalf("unexpected todo: %#v", got)
	}
	if rr := post(t, h, "/todos/1/update", url.Values{"status": {"maybe"}}); rr.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for a bad status, got %d", rr.Code)
	}
}

func TestHistoryPanel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sess, h := newTestServer(t)
	sess.Add(ctx, "v1", "", model.CategoryOther, "")
	for _, title := range []string{"v2", "v3"} {
		title := title
		sess.Update(ctx, 1, model.Patch{Title: &title})
	}

	wantRedirect(t, post(t, h, "/todos/1/history", nil), "/")
	wantRedirect(t, post(t, h, "/history/step", url.Values{"id": {"1"}, "delta": {"-5"}}), "/")
	hs, open := sess.HistoryState()
	if !open || hs.Index != 0 {
		t.Fatalf("want panel open at the first entry, got %#v (open=%v)", hs, open)
	}
	body := get(t, h, "/").Body.String()
	if !strings.Contains(body, "revision 1 of 3") || !strings.Contains(body, "History: v3") {
		t.Fatalf("expected history panel in page:\n%s", body)
	}

	if rr := post(t, h, "/history/step", url.Values{"id": {"1"}, "delta": {"x"}}); rr.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for a bad delta, got %d", rr.Code)
	}
	wantRedirect(t, post(t, h, "/history/close", nil), "/")
	if _, open := sess.HistoryState(); open {
		t.Fatalf("want panel closed")
	}
}

func TestFilterAndSort(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sess, h := newTestServer(t)
	sess.Add(ctx, "Buy milk", "", model.CategoryShopping, "")
	sess.Add(ctx, "Write report", "", model.CategoryWork, "")

	wantRedirect(t, post(t, h, "/filter", url.Values{"text": {"MILK"}, "status": {"all"}, "category": {"shopping"}}), "/")
	want := model.Filter{Text: "MILK", Status: model.FilterAll, Category: "shopping"}
	if got := sess.Filter(); got != want {
		t.Fatalf("want %#v, got %#v", want, got)
	}
	body := get(t, h, "/").Body.String()
	if !strings.Contains(body, "Buy milk") || strings.Contains(body, "Write report") {
		t.Fatalf("filter not applied to page:\n%s", body)
	}

	if rr := post(t, h, "/filter", url.Values{"status": {"maybe"}}); rr.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for a bad status, got %d", rr.Code)
	}
	wantRedirect(t, post(t, h, "/filter/reset", nil), "/")
	if got := sess.Filter(); got != model.DefaultFilter() {
		t.Fatalf("want default filter, got %#v", got)
	}

	if rr := post(t, h, "/sort", url.Values{"by": {"priority"}}); rr.Code != http.StatusBadRequest {
		t.Fatalf("want 400 for a bad sort field, got %d", rr.Code)
	}
	wantRedirect(t, post(t, h, "/sort", url.Values{"by": {"title"}}), "/")
	wantRedirect(t, post(t, h, "/sort", url.Values{"by": {"title"}}), "/")
	if got := sess.Sort(); got.By != model.SortByTitle || got.Direction != model.SortDesc {
		t.Fatalf("want title desc, got %#v", got)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	sess, h := newTestServer(t)
	sess.Add(context.Background(), "counted", "", model.CategoryOther, "")

	if rr := get(t, h, "/health"); rr.Code != http.StatusOK || rr.Body.String() != "ok\n" {
		t.Fatalf("unexpected health response: %d %q", rr.Code, rr.Body.String())
	}
	rr := get(t, h, "/metrics")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `todo_commands_total{changed="true",command="add"} 1`) {
		t.Fatalf("unexpected metrics:\n%s", rr.Body.String())
	}
	if rr := get(t, h, "/static/app.js"); rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "todoCompleted") {
		t.Fatalf("expected app.js to be served, got %d", rr.Code)
	}
}

func TestEvents_PatchesMainAfterChange(t *testing.T) {
	t.Parallel()

	sess, h := newTestServer(t)
	sess.Add(context.Background(), "Stream me", "", model.CategoryOther, "")

	ts := httptest.NewServer(h)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("want event stream, got %q", ct)
	}

	if _, err := sess.ToggleStatus(context.Background(), 1); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	var sawMain, sawCue bool
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() && !(sawMain && sawCue) {
		line := sc.Text()
		if strings.Contains(line, `id="todo-main"`) {
			sawMain = true
		}
		if strings.Contains(line, "todoCompleted(1)") {
			sawCue = true
		}
	}
	if !sawMain || !sawCue {
		rest, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		t.Fatalf("want main patch and completion cue, got main=%v cue=%v (err=%v) %s", sawMain, sawCue, sc.Err(), rest)
	}
}
