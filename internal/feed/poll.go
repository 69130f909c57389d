package feed

import (
	"context"
	"time"

	"launchpad_backend/internal/logger"
)

// Cursor returns an opaque value that changes whenever the watched data does.
type Cursor interface {
	ChangeCursor(ctx context.Context) (string, error)
}

// PollSource turns cursor changes into resync events, for stores without push.
type PollSource struct {
	cursor   Cursor
	interval time.Duration
}

func NewPollSource(cursor Cursor, interval time.Duration) *PollSource {
	return &PollSource{cursor: cursor, interval: interval}
}

func (s *PollSource) Subscribe(ctx context.Context, fn func(Event)) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	last, err := s.cursor.ChangeCursor(ctx)
	if err != nil {
		logger.Warn("feed poll: initial cursor failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cur, err := s.cursor.ChangeCursor(ctx)
			if err != nil {
				logger.Warn("feed poll failed", "error", err)
				continue
			}
			if cur != last {
				last = cur
				fn(Event{Topic: TopicResync})
			}
		}
	}
}
