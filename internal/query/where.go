package query

import (
	"errors"
	"fmt"
	"strings"
	"time"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"todo-cli/internal/model"
)

// Where is a compiled boolean expression evaluated per todo, e.g.
//
//	status == "incomplete" && category in ["work", "school"] && overdue
type Where struct {
	src     string
	program *exprvm.Program
	now     func() time.Time
}

func whereEnv(t model.Todo, now time.Time) map[string]any {
	return map[string]any{
		"id":          t.ID,
		"title":       t.Title,
		"description": t.Description,
		"category":    string(t.Category),
		"status":      string(t.Status),
		"dueDate":     string(t.DueDate),
		"overdue":     t.Overdue(now),
		"revisions":   len(t.History),
		"createdAt":   t.CreatedAt,
	}
}

// CompileWhere type-checks src against the todo environment. A nil clock means time.Now.
func CompileWhere(src string, now func() time.Time) (*Where, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, errors.New("where: expression is empty")
	}
	if now == nil {
		now = time.Now
	}
	program, err := exprlang.Compile(src,
		exprlang.Env(whereEnv(model.Todo{}, time.Time{})),
		exprlang.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("where: compile %q: %w", src, err)
	}
	return &Where{src: src, program: program, now: now}, nil
}

func (w *Where) String() string { return w.src }

// Apply keeps the todos for which the expression is true, preserving order.
func (w *Where) Apply(todos []model.Todo) ([]model.Todo, error) {
	if w == nil {
		return todos, nil
	}
	now := w.now()
	out := make([]model.Todo, 0, len(todos))
	for _, t := range todos {
		res, err := exprlang.Run(w.program, whereEnv(t, now))
		if err != nil {
			return nil, fmt.Errorf("where: todo %d: %w", t.ID, err)
		}
		if ok, _ := res.(bool); ok {
			out = append(out, t)
		}
	}
	return out, nil
}
