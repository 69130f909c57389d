package feed

import (
	"context"
	"sync"
)

// LocalBus is an in-process Publisher and Source. Single-instance deployments
// and tests use it instead of the database.
type LocalBus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[int]chan Event)}
}

func (b *LocalBus) Publish(_ context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// slow subscriber: collapse to a resync it will pick up later
			select {
			case ch <- Event{Topic: TopicResync}:
			default:
			}
		}
	}
	return nil
}

// Len reports the number of active subscribers.
func (b *LocalBus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *LocalBus) Subscribe(ctx context.Context, fn func(Event)) error {
	ch := make(chan Event, 64)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-ch:
			fn(ev)
		}
	}
}
