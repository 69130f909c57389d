package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"launchpad_backend/internal/logger"
)

// PQPublisher sends events through pg_notify on the shared channel.
type PQPublisher struct {
	db *gorm.DB
}

func NewPQPublisher(db *gorm.DB) *PQPublisher {
	return &PQPublisher{db: db}
}

func (p *PQPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := encode(ev)
	if err != nil {
		return err
	}
	return p.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", Channel, payload).Error
}

// PQSource listens on the shared channel with a dedicated lib/pq connection.
type PQSource struct {
	dsn          string
	minReconnect time.Duration
	maxReconnect time.Duration
	pingEvery    time.Duration
}

func NewPQSource(dsn string) *PQSource {
	return &PQSource{
		dsn:          dsn,
		minReconnect: 2 * time.Second,
		maxReconnect: time.Minute,
		pingEvery:    90 * time.Second,
	}
}

func (s *PQSource) Subscribe(ctx context.Context, fn func(Event)) error {
	listener := pq.NewListener(s.dsn, s.minReconnect, s.maxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("feed listener event", "event", ev, "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(Channel); err != nil {
		return fmt.Errorf("listen %s: %w", Channel, err)
	}
	logger.Info("feed listener started", "channel", Channel)

	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			if n == nil {
				// connection was re-established; notifications may have been lost
				fn(Event{Topic: TopicResync})
				continue
			}
			ev, err := decode(n.Extra)
			if err != nil {
				logger.Warn("feed: bad payload", "payload", n.Extra, "error", err)
				fn(Event{Topic: TopicResync})
				continue
			}
			fn(ev)
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					logger.Warn("feed listener ping failed", "error", err)
				}
			}()
		}
	}
}
