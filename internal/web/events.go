package web

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/starfederation/datastar-go/datastar"
)

const keepAliveInterval = 25 * time.Second

// handleEvents streams a fresh #todo-main after every state change, whichever
// presentation caused it. Completions also run the chime and row flash in the page.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	changes, cancel := s.sess.Subscribe()
	defer cancel()

	sse := datastar.NewSSE(w, r)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case c, ok := <-changes:
			if !ok {
				return
			}
			html, err := s.renderMain()
			if err != nil {
				_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
				continue
			}
			if strings.TrimSpace(html) == "" {
				continue
			}
			if err := sse.PatchElements(html, datastar.WithSelector("#todo-main"), datastar.WithMode(datastar.ElementPatchModeOuter)); err != nil {
				s.log.Debug("event stream closed", "err", err)
				return
			}
			if c.Completed {
				_ = sse.ExecuteScript(fmt.Sprintf(`window.todoCompleted && window.todoCompleted(%d)`, c.ID))
			}
		}
	}
}
