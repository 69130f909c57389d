package ws

import (
	"sync"
	"time"

	"launchpad_backend/internal/logger"
	"launchpad_backend/internal/models"
	"launchpad_backend/internal/services"
	"launchpad_backend/internal/services/dto"
)

const (
	MessagePendingTickets     = "pending_tickets"
	MessagePendingSubscribers = "pending_subscribers"
	MessageActionResult       = "action_result"
)

// WebSocketManager fans moderation snapshots out to every connected admin.
type WebSocketManager struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan any
	done       chan struct{}
	mu         sync.RWMutex

	console *services.ModerationConsole
}

func NewWebSocketManager(console *services.ModerationConsole) *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan any, 16),
		done:       make(chan struct{}),
		console:    console,
	}
}

// Run serves registrations and broadcasts until Stop. It also follows the
// console so every snapshot change reaches connected admins.
func (manager *WebSocketManager) Run() {
	stopTickets := manager.console.OnPendingTicketsChanged(func(tickets []models.Ticket) {
		manager.Broadcast(ticketsMessage(tickets))
	})
	stopSubs := manager.console.OnPendingSubscribersChanged(func(subs []models.NewsletterSubscriber) {
		manager.Broadcast(subscribersMessage(subs))
	})
	defer stopTickets()
	defer stopSubs()

	for {
		select {
		case <-manager.done:
			manager.mu.Lock()
			for client := range manager.clients {
				close(client.Send)
				delete(manager.clients, client)
			}
			manager.mu.Unlock()
			return

		case client := <-manager.register:
			manager.mu.Lock()
			manager.clients[client] = true
			total := len(manager.clients)
			manager.mu.Unlock()
			logger.Info("admin console connected", "admin_id", client.ID, "total", total)

			client.trySend(ticketsMessage(manager.console.PendingTickets()))
			client.trySend(subscribersMessage(manager.console.PendingSubscribers()))

		case client := <-manager.unregister:
			manager.mu.Lock()
			if _, ok := manager.clients[client]; ok {
				close(client.Send)
				delete(manager.clients, client)
				logger.Info("admin console disconnected", "admin_id", client.ID, "total", len(manager.clients))
			}
			manager.mu.Unlock()

		case message := <-manager.broadcast:
			manager.broadcastMessage(message)
		}
	}
}

func (manager *WebSocketManager) Stop() {
	close(manager.done)
}

// Broadcast queues message for every client; it never blocks the caller.
func (manager *WebSocketManager) Broadcast(message any) {
	select {
	case manager.broadcast <- message:
	case <-manager.done:
	default:
		logger.Warn("admin broadcast queue full, dropping snapshot")
	}
}

func (manager *WebSocketManager) broadcastMessage(message any) {
	manager.mu.RLock()
	defer manager.mu.RUnlock()

	for client := range manager.clients {
		if !client.trySend(message) {
			// Канал заполнен, клиент отключается
			go func(c *Client) {
				select {
				case manager.unregister <- c:
				case <-manager.done:
				}
			}(client)
			logger.Warn("admin console too slow, disconnecting", "admin_id", client.ID)
		}
	}
}

// GetClientCount возвращает количество подключенных клиентов
func (manager *WebSocketManager) GetClientCount() int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return len(manager.clients)
}

func ticketsMessage(tickets []models.Ticket) dto.ModerationMessage {
	return dto.ModerationMessage{
		Type:    MessagePendingTickets,
		Tickets: dto.NewTicketResponses(tickets),
		SentAt:  time.Now().UTC(),
	}
}

func subscribersMessage(subs []models.NewsletterSubscriber) dto.ModerationMessage {
	return dto.ModerationMessage{
		Type:        MessagePendingSubscribers,
		Subscribers: dto.NewSubscriberResponses(subs),
		SentAt:      time.Now().UTC(),
	}
}
