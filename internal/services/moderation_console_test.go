package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad_backend/internal/models"
	"launchpad_backend/internal/services/dto"
)

type ticketSnapshots struct {
	mu   sync.Mutex
	last []models.Ticket
	seen int
}

func (s *ticketSnapshots) record(tickets []models.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = tickets
	s.seen++
}

func (s *ticketSnapshots) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.last))
	for _, t := range s.last {
		out = append(out, t.ID)
	}
	return out
}

func startConsole(t *testing.T, env *testEnv) *ModerationConsole {
	t.Helper()
	console := NewModerationConsole(env.tickets, env.subSvc, env.lifecycle, env.bus)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = console.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, func() bool { return env.bus.Len() > 0 }, 2*time.Second, 5*time.Millisecond)
	return console
}

func TestConsole_PendingFeedOldestFirst(t *testing.T) {
	env := newTestEnv(t)
	console := startConsole(t, env)

	snaps := &ticketSnapshots{}
	stop := console.OnPendingTicketsChanged(snaps.record)
	defer stop()

	first := submitPending(t, env, "first@x.com")
	time.Sleep(2 * time.Millisecond)
	second := submitPending(t, env, "second@x.com")

	assert.Eventually(t, func() bool {
		ids := snaps.ids()
		return len(ids) == 2 && ids[0] == first.ID && ids[1] == second.ID
	}, 2*time.Second, 10*time.Millisecond)

	_, err := console.Approve(context.Background(), first.ID, "admin-1")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		ids := snaps.ids()
		return len(ids) == 1 && ids[0] == second.ID
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConsole_UnsubscribeStopsCallbacks(t *testing.T) {
	env := newTestEnv(t)
	console := startConsole(t, env)

	snaps := &ticketSnapshots{}
	stop := console.OnPendingTicketsChanged(snaps.record)
	stop()

	snaps.mu.Lock()
	before := snaps.seen
	snaps.mu.Unlock()

	submitPending(t, env, "a@x.com")
	assert.Eventually(t, func() bool { return len(console.PendingTickets()) == 1 }, 2*time.Second, 10*time.Millisecond)

	snaps.mu.Lock()
	defer snaps.mu.Unlock()
	assert.Equal(t, before, snaps.seen)
}

func TestConsole_PendingSubscribers(t *testing.T) {
	env := newTestEnv(t)
	console := startConsole(t, env)
	ctx := context.Background()

	var (
		mu   sync.Mutex
		last []models.NewsletterSubscriber
	)
	stop := console.OnPendingSubscribersChanged(func(subs []models.NewsletterSubscriber) {
		mu.Lock()
		last = subs
		mu.Unlock()
	})
	defer stop()

	sub, err := env.subSvc.Subscribe(ctx, &dto.SubscribeRequest{Email: "News@x.com", Name: "Reader"})
	require.NoError(t, err)
	assert.Equal(t, "news@x.com", sub.Email)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(last) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, console.ConfirmSubscriber(ctx, sub.ID))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(last) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConsole_SnapshotsAreCopies(t *testing.T) {
	env := newTestEnv(t)
	console := startConsole(t, env)

	snaps := &ticketSnapshots{}
	stop := console.OnPendingTicketsChanged(snaps.record)
	defer stop()

	pending := submitPending(t, env, "a@x.com")
	require.Eventually(t, func() bool { return len(console.PendingTickets()) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return len(snaps.ids()) == 1 }, 2*time.Second, 10*time.Millisecond)

	mine := console.PendingTickets()
	mine[0].ID = "scribbled"

	snaps.mu.Lock()
	snaps.last[0].ID = "scribbled-too"
	snaps.mu.Unlock()

	again := console.PendingTickets()
	require.Len(t, again, 1)
	assert.Equal(t, pending.ID, again[0].ID)
}
