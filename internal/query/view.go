// Package query derives the visible, ordered list of todos from a collection.
package query

import (
	"sort"
	"strings"

	"todo-cli/internal/model"
)

// View filters and sorts records. It never mutates records; the result holds copies.
//
// Filtering is conjunctive: text (title or description, case-insensitive), then status,
// then category. Each predicate is skipped at its default. The sort is stable.
func View(records []model.Todo, filter model.Filter, order model.Sort) []model.Todo {
	text := strings.ToLower(filter.Text)
	status := strings.TrimSpace(filter.Status)
	category := strings.TrimSpace(filter.Category)

	out := make([]model.Todo, 0, len(records))
	for _, t := range records {
		if text != "" &&
			!strings.Contains(strings.ToLower(t.Title), text) &&
			!strings.Contains(strings.ToLower(t.Description), text) {
			continue
		}
		if status != "" && status != model.FilterAll && string(t.Status) != status {
			continue
		}
		if category != "" && category != model.FilterAll && string(t.Category) != category {
			continue
		}
		out = append(out, t.Clone())
	}

	cmp := compareDueDate
	if order.By == model.SortByTitle {
		cmp = compareTitle
	}
	desc := order.Direction == model.SortDesc
	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(out[i], out[j])
		if desc {
			c = -c
		}
		return c < 0
	})
	return out
}

func compareTitle(a, b model.Todo) int {
	return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
}

// compareDueDate orders by calendar date. Missing or unparsable dates compare as later
// than every valid date and equal to each other.
func compareDueDate(a, b model.Todo) int {
	at, aok := a.DueDate.Time()
	bt, bok := b.DueDate.Time()
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return 1
	case !bok:
		return -1
	case at.Before(bt):
		return -1
	case at.After(bt):
		return 1
	default:
		return 0
	}
}
