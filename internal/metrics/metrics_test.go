package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	m := New()
	m.Command("add", true)
	m.Command("add", true)
	m.Command("add", false)
	m.Persist(time.Millisecond, nil)
	m.Persist(time.Millisecond, errors.New("disk full"))
	m.Items(3, 1)

	if got := testutil.ToFloat64(m.commands.WithLabelValues("add", "true")); got != 2 {
		t.Fatalf("want 2 changed adds, got %v", got)
	}
	if got := testutil.ToFloat64(m.persists.WithLabelValues("error")); got != 1 {
		t.Fatalf("want 1 failed persist, got %v", got)
	}
	if got := testutil.ToFloat64(m.items.WithLabelValues("incomplete")); got != 3 {
		t.Fatalf("want 3 incomplete, got %v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := New()
	m.Command("toggle", true)
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), `todo_commands_total{changed="true",command="toggle"} 1`) {
		t.Fatalf("metric missing from exposition:\n%s", body)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.Command("add", true)
	m.Persist(time.Second, nil)
	m.Items(1, 1)
	if m.Registry() != nil {
		t.Fatalf("expected nil registry")
	}
}
