// Package history tracks which todo's revision history is on display and the
// position a reader has reached in each todo's history.
package history

import "sort"

// Navigator holds the active history panel and one cursor per todo.
// Cursors survive Close so reopening a panel later can resume; they never move on their own.
type Navigator struct {
	active  *int
	cursors map[int]int
}

func New() *Navigator {
	return &Navigator{cursors: map[int]int{}}
}

// Restore replaces the navigator state, typically from a persisted snapshot.
func (n *Navigator) Restore(active *int, cursors map[int]int) {
	n.active = nil
	if active != nil {
		id := *active
		n.active = &id
	}
	n.cursors = make(map[int]int, len(cursors))
	for id, idx := range cursors {
		n.cursors[id] = idx
	}
}

// Open shows id's history positioned on its newest entry.
func (n *Navigator) Open(id, historyLen int) {
	n.active = &id
	if historyLen > 0 {
		n.cursors[id] = historyLen - 1
	}
}

// Step moves id's cursor by delta, clamped to [0, historyLen-1].
// An unset cursor counts as 0. It reports false when there is no history.
func (n *Navigator) Step(id, delta, historyLen int) bool {
	if historyLen <= 0 {
		return false
	}
	next := n.cursors[id] + delta
	if next < 0 {
		next = 0
	}
	if next > historyLen-1 {
		next = historyLen - 1
	}
	n.cursors[id] = next
	return true
}

func (n *Navigator) Close() { n.active = nil }

// Forget closes the panel when it shows id. Used when id is deleted.
func (n *Navigator) Forget(id int) bool {
	if n.active == nil || *n.active != id {
		return false
	}
	n.active = nil
	return true
}

// Active returns the id whose history is on display.
func (n *Navigator) Active() (int, bool) {
	if n.active == nil {
		return 0, false
	}
	return *n.active, true
}

// Cursor returns id's cursor clamped into the given history length.
func (n *Navigator) Cursor(id, historyLen int) int {
	idx, ok := n.cursors[id]
	if !ok || historyLen <= 0 {
		return 0
	}
	if idx > historyLen-1 {
		return historyLen - 1
	}
	if idx < 0 {
		return 0
	}
	return idx
}

// Cursors returns a copy of every cursor.
func (n *Navigator) Cursors() map[int]int {
	out := make(map[int]int, len(n.cursors))
	for id, idx := range n.cursors {
		out[id] = idx
	}
	return out
}

// IDs lists the todos that have a cursor, ascending.
func (n *Navigator) IDs() []int {
	out := make([]int, 0, len(n.cursors))
	for id := range n.cursors {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
