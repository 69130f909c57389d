package dto

import (
	"time"

	"launchpad_backend/internal/models"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1,max=128"`
}

type LoginResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresIn   int64            `json:"expires_in"`
	Role        models.AdminRole `json:"role"`
}

type SubscribeRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Name  string `json:"name" validate:"max=255"`
}

type SubscriberResponse struct {
	ID        string                  `json:"id"`
	Email     string                  `json:"email"`
	Name      string                  `json:"name"`
	Status    models.SubscriberStatus `json:"status"`
	CreatedAt time.Time               `json:"created_at"`
}

func NewSubscriberResponses(subs []models.NewsletterSubscriber) []SubscriberResponse {
	out := make([]SubscriberResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, SubscriberResponse{
			ID:        s.ID,
			Email:     s.Email,
			Name:      s.Name,
			Status:    s.Status,
			CreatedAt: s.CreatedAt,
		})
	}
	return out
}

// ModerationMessage is one frame pushed to admin consoles.
type ModerationMessage struct {
	Type        string               `json:"type"` // pending_tickets, pending_subscribers
	Tickets     []TicketResponse     `json:"tickets,omitempty"`
	Subscribers []SubscriberResponse `json:"subscribers,omitempty"`
	SentAt      time.Time            `json:"sent_at"`
}

type AuditEntry struct {
	From       models.TicketState `json:"from"`
	To         models.TicketState `json:"to"`
	Actor      string             `json:"actor"`
	Reason     string             `json:"reason,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

func NewAuditEntries(rows []models.TicketTransition) []AuditEntry {
	out := make([]AuditEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, AuditEntry{From: r.FromState, To: r.ToState, Actor: r.Actor, Reason: r.Reason, OccurredAt: r.OccurredAt})
	}
	return out
}
