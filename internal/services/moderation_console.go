package services

import (
	"context"
	"slices"
	"sync"

	"launchpad_backend/internal/feed"
	"launchpad_backend/internal/logger"
	"launchpad_backend/internal/models"
	"launchpad_backend/internal/repositories"
)

// ModerationConsole keeps admins' view of pending work in sync with the store.
// It holds no business state beyond the latest snapshots; decisions go
// straight to the lifecycle, which arbitrates concurrent clicks.
type ModerationConsole struct {
	tickets     repositories.TicketRepository
	subscribers SubscriberService
	lifecycle   TicketLifecycle
	source      feed.Source

	mu                sync.RWMutex
	nextID            int
	ticketWatchers    map[int]func([]models.Ticket)
	subscriberWatcher map[int]func([]models.NewsletterSubscriber)
	pendingTickets    []models.Ticket
	pendingSubs       []models.NewsletterSubscriber
}

func NewModerationConsole(tickets repositories.TicketRepository, subscribers SubscriberService, lifecycle TicketLifecycle, source feed.Source) *ModerationConsole {
	return &ModerationConsole{
		tickets:           tickets,
		subscribers:       subscribers,
		lifecycle:         lifecycle,
		source:            source,
		ticketWatchers:    make(map[int]func([]models.Ticket)),
		subscriberWatcher: make(map[int]func([]models.NewsletterSubscriber)),
	}
}

// OnPendingTicketsChanged registers cb for every new snapshot of
// PendingReview tickets, oldest first. cb is called once immediately with the
// current snapshot. The returned func unregisters it.
func (c *ModerationConsole) OnPendingTicketsChanged(cb func([]models.Ticket)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.ticketWatchers[id] = cb
	snapshot := c.pendingTickets
	c.mu.Unlock()

	cb(snapshot)
	return func() {
		c.mu.Lock()
		delete(c.ticketWatchers, id)
		c.mu.Unlock()
	}
}

func (c *ModerationConsole) OnPendingSubscribersChanged(cb func([]models.NewsletterSubscriber)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subscriberWatcher[id] = cb
	snapshot := c.pendingSubs
	c.mu.Unlock()

	cb(snapshot)
	return func() {
		c.mu.Lock()
		delete(c.subscriberWatcher, id)
		c.mu.Unlock()
	}
}

// Run loads the initial snapshots and then follows the feed until ctx ends.
func (c *ModerationConsole) Run(ctx context.Context) error {
	c.reloadTickets(ctx)
	c.reloadSubscribers(ctx)

	logger.Info("moderation console started")
	err := c.source.Subscribe(ctx, func(ev feed.Event) {
		if ev.Touches(feed.TopicTickets) {
			c.reloadTickets(ctx)
		}
		if ev.Touches(feed.TopicSubscribers) {
			c.reloadSubscribers(ctx)
		}
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (c *ModerationConsole) PendingTickets() []models.Ticket {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.pendingTickets)
}

func (c *ModerationConsole) PendingSubscribers() []models.NewsletterSubscriber {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.pendingSubs)
}

func (c *ModerationConsole) Approve(ctx context.Context, ticketID, adminID string) (*models.Ticket, error) {
	return c.lifecycle.Approve(ctx, ticketID, adminID)
}

func (c *ModerationConsole) Reject(ctx context.Context, ticketID, adminID, reason string) (*models.Ticket, error) {
	return c.lifecycle.Reject(ctx, ticketID, adminID, reason)
}

func (c *ModerationConsole) ResendDelivery(ctx context.Context, ticketID, adminID string) (*models.Ticket, error) {
	return c.lifecycle.ResendDelivery(ctx, ticketID, adminID)
}

func (c *ModerationConsole) Remove(ctx context.Context, ticketID, adminID string) error {
	return c.lifecycle.Remove(ctx, ticketID, adminID)
}

func (c *ModerationConsole) History(ctx context.Context, ticketID string) ([]models.TicketTransition, error) {
	return c.lifecycle.History(ctx, ticketID)
}

func (c *ModerationConsole) ConfirmSubscriber(ctx context.Context, id string) error {
	return c.subscribers.Confirm(ctx, id)
}

func (c *ModerationConsole) reloadTickets(ctx context.Context) {
	pending, err := c.tickets.ListPending(ctx)
	if err != nil {
		logger.CtxWithError(ctx, "failed to reload pending tickets", err)
		return
	}

	c.mu.Lock()
	c.pendingTickets = pending
	watchers := make([]func([]models.Ticket), 0, len(c.ticketWatchers))
	for _, w := range c.ticketWatchers {
		watchers = append(watchers, w)
	}
	c.mu.Unlock()

	// every watcher gets its own copy
	for _, w := range watchers {
		w(slices.Clone(pending))
	}
}

func (c *ModerationConsole) reloadSubscribers(ctx context.Context) {
	pending, err := c.subscribers.ListPending(ctx)
	if err != nil {
		logger.CtxWithError(ctx, "failed to reload pending subscribers", err)
		return
	}

	c.mu.Lock()
	c.pendingSubs = pending
	watchers := make([]func([]models.NewsletterSubscriber), 0, len(c.subscriberWatcher))
	for _, w := range c.subscriberWatcher {
		watchers = append(watchers, w)
	}
	c.mu.Unlock()

	// every watcher gets its own copy
	for _, w := range watchers {
		w(slices.Clone(pending))
	}
}
