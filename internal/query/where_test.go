package query

import (
	"reflect"
	"testing"
	"time"

	"todo-cli/internal/model"
)

func TestWhere_Apply(t *testing.T) {
	t.Parallel()

	now := func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }
	recs := []model.Todo{
		todo(1, "report", "", model.CategoryWork, model.StatusIncomplete, "2024-03-01"),
		todo(2, "slides", "", model.CategoryWork, model.StatusComplete, "2024-03-01"),
		todo(3, "essay", "", model.CategorySchool, model.StatusIncomplete, "2024-04-01"),
		todo(4, "milk", "2 liters", model.CategoryShopping, model.StatusIncomplete, ""),
	}
	recs[0].History = make([]model.HistoryEntry, 3)

	cases := []struct {
		name string
		src  string
		want []int
	}{
		{name: "overdue", src: "overdue", want: []int{1}},
		{name: "category set", src: `category in ["work", "school"] && status == "incomplete"`, want: []int{1, 3}},
		{name: "revisions", src: "revisions > 1", want: []int{1}},
		{name: "no due date", src: `dueDate == ""`, want: []int{4}},
		{name: "string ops", src: `description contains "liters"`, want: []int{4}},
		{name: "id", src: "id >= 3", want: []int{3, 4}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			w, err := CompileWhere(tc.src, now)
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			got, err := w.Apply(recs)
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			if !reflect.DeepEqual(ids(got), tc.want) {
				t.Fatalf("want %v, got %v", tc.want, ids(got))
			}
		})
	}
}

func TestCompileWhere_Errors(t *testing.T) {
	t.Parallel()

	for _, src := range []string{"", "   ", "title +", "title", "nope == 1"} {
		if _, err := CompileWhere(src, nil); err == nil {
			t.Fatalf("expected compile error for %q", src)
		}
	}
}

func TestWhere_NilAppliesNothing(t *testing.T) {
	t.Parallel()

	var w *Where
	recs := []model.Todo{todo(1, "a", "", model.CategoryOther, model.StatusIncomplete, "")}
	got, err := w.Apply(recs)
	if err != nil || len(got) != 1 {
		t.Fatalf("expected passthrough, got %v (err=%v)", got, err)
	}
}
