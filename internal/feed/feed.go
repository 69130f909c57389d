// Package feed carries change notifications for the admin moderation view.
// Writers publish small events after committing; readers subscribe and reload
// whatever snapshot they care about.
package feed

import (
	"context"
	"encoding/json"
)

// Channel is the Postgres NOTIFY channel shared by publisher and listener.
const Channel = "launchpad_feed"

type Topic string

const (
	TopicTickets     Topic = "tickets"
	TopicSubscribers Topic = "subscribers"
	// TopicResync is emitted when a source may have missed events
	// (listener reconnect, poll cursor change) and everything should reload.
	TopicResync Topic = "resync"
)

type Event struct {
	Topic Topic  `json:"topic"`
	ID    string `json:"id,omitempty"`
	State string `json:"state,omitempty"`
}

// Touches reports whether a subscriber interested in t should react.
func (e Event) Touches(t Topic) bool {
	return e.Topic == t || e.Topic == TopicResync
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Source delivers events to fn until ctx is cancelled. Subscribe blocks.
type Source interface {
	Subscribe(ctx context.Context, fn func(Event)) error
}

func encode(ev Event) (string, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decode(payload string) (Event, error) {
	var ev Event
	err := json.Unmarshal([]byte(payload), &ev)
	return ev, err
}

// NoopPublisher is used when the source does not need explicit signals (polling).
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
