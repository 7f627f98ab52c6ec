package tui

import (
	"io"
	"sync"
)

// Bell rings the terminal bell when a todo is completed.
type Bell struct {
	mu sync.Mutex
	w  io.Writer
}

func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

func (b *Bell) Chime() {
	if b == nil || b.w == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, _ = io.WriteString(b.w, "\a")
}

// Cue is a no-op; the TUI flashes the row itself when it sees the change.
func (b *Bell) Cue(int) {}
