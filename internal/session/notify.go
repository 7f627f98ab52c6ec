package session

import (
	"context"
	"sync"

	"todo-cli/internal/model"
)

// Confirmer gates deletion. Implementations may block on user input.
type Confirmer interface {
	Confirm(ctx context.Context, t model.Todo) (bool, error)
}

// Confirmed is an answer obtained before the command was issued, e.g. from a --yes flag.
type Confirmed bool

func (c Confirmed) Confirm(context.Context, model.Todo) (bool, error) { return bool(c), nil }

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, t model.Todo) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, t model.Todo) (bool, error) { return f(ctx, t) }

// Notifier plays the completion effects: an audible chime and a short visual cue on the todo.
type Notifier interface {
	Chime()
	Cue(id int)
}

// Notifiers fans out to several notifiers.
type Notifiers []Notifier

func (ns Notifiers) Chime() {
	for _, n := range ns {
		n.Chime()
	}
}

func (ns Notifiers) Cue(id int) {
	for _, n := range ns {
		n.Cue(id)
	}
}

func (s *Session) notifyComplete(id int) {
	n := s.notifier
	if n == nil {
		return
	}
	run := func(name string, fn func()) {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Warn("completion effect failed", "effect", name, "id", id, "panic", r)
				}
			}()
			fn()
		}()
	}
	run("chime", n.Chime)
	run("cue", func() { n.Cue(id) })
}

// Subscribe returns a channel that receives every state change. Slow readers miss
// changes rather than block commands; cancel releases the channel.
func (s *Session) Subscribe() (<-chan Change, func()) {
	return s.hub.subscribe()
}

type hub struct {
	mu   sync.Mutex
	subs map[chan Change]struct{}
}

func newHub() *hub {
	return &hub{subs: map[chan Change]struct{}{}}
}

func (h *hub) subscribe() (<-chan Change, func()) {
	ch := make(chan Change, 8)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *hub) broadcast(c Change) {
	h.mu.Lock()
	for ch := range h.subs {
		select {
		case ch <- c:
		default:
		}
	}
	h.mu.Unlock()
}
