package feed

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTouches(t *testing.T) {
	assert.True(t, Event{Topic: TopicTickets}.Touches(TopicTickets))
	assert.False(t, Event{Topic: TopicTickets}.Touches(TopicSubscribers))
	assert.True(t, Event{Topic: TopicResync}.Touches(TopicSubscribers))
}

func TestEncodeDecode(t *testing.T) {
	in := Event{Topic: TopicTickets, ID: "t-1", State: "Approved"}
	payload, err := encode(in)
	require.NoError(t, err)

	out, err := decode(payload)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLocalBus_DeliversToEverySubscriber(t *testing.T) {
	bus := NewLocalBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu  sync.Mutex
		got = map[int][]Event{}
		wg  sync.WaitGroup
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = bus.Subscribe(ctx, func(ev Event) {
				mu.Lock()
				got[i] = append(got[i], ev)
				mu.Unlock()
			})
		}(i)
	}
	require.Eventually(t, func() bool { return bus.Len() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, bus.Publish(ctx, Event{Topic: TopicTickets, ID: "a"}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got[0]) == 1 && len(got[1]) == 1
	}, time.Second, time.Millisecond)

	cancel()
	wg.Wait()
	assert.Zero(t, bus.Len())
}

type fakeCursor struct {
	value atomic.Value
}

func (c *fakeCursor) ChangeCursor(context.Context) (string, error) {
	return c.value.Load().(string), nil
}

func TestPollSource_EmitsResyncOnChange(t *testing.T) {
	cur := &fakeCursor{}
	cur.value.Store("0")
	src := NewPollSource(cur, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var hits int32
	go func() {
		_ = src.Subscribe(ctx, func(ev Event) {
			if ev.Topic == TopicResync {
				atomic.AddInt32(&hits, 1)
			}
		})
	}()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&hits))

	cur.value.Store("1")
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&hits) == 1 }, time.Second, 5*time.Millisecond)
}
