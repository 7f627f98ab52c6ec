package session

import (
	"context"
	"time"
)

// DefaultAutosaveInterval is how often Run writes the snapshot.
const DefaultAutosaveInterval = 30 * time.Second

// Run saves the snapshot every interval until ctx is done, then saves once more.
func (s *Session) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := s.Save(context.WithoutCancel(ctx)); err != nil {
				s.log.Error("final autosave failed", "err", err)
			}
			return
		case <-ticker.C:
			if err := s.Save(ctx); err != nil {
				s.log.Warn("autosave failed", "err", err)
				continue
			}
			s.log.Debug("autosaved")
		}
	}
}
