package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"

	"launchpad_backend/internal/delivery"
	"launchpad_backend/internal/feed"
	"launchpad_backend/internal/logger"
	"launchpad_backend/internal/models"
	"launchpad_backend/internal/repositories"
	"launchpad_backend/pkg/apperrors"
)

// ActorSystem is recorded for transitions nobody clicked.
const ActorSystem = "system"

// TicketLifecycle is the only writer of ticket state. Every move is a
// conditional update on the current state, so concurrent callers get exactly
// one winner and the rest an InvalidTransition.
type TicketLifecycle interface {
	Submit(ctx context.Context, ticket *models.Ticket, actor string) error
	IssueFromOrder(ctx context.Context, order *models.PaymentOrder) (*models.Ticket, error)
	Approve(ctx context.Context, ticketID, adminID string) (*models.Ticket, error)
	Reject(ctx context.Context, ticketID, adminID, reason string) (*models.Ticket, error)
	ResendDelivery(ctx context.Context, ticketID, adminID string) (*models.Ticket, error)
	CheckIn(ctx context.Context, ticketID, actor string) (*models.Ticket, error)
	Remove(ctx context.Context, ticketID, adminID string) error
	Get(ctx context.Context, ticketID string) (*models.Ticket, error)
	History(ctx context.Context, ticketID string) ([]models.TicketTransition, error)
}

type TicketLifecycleImpl struct {
	tickets   repositories.TicketRepository
	deliverer delivery.Deliverer
	publisher feed.Publisher
	now       func() time.Time
}

func NewTicketLifecycle(tickets repositories.TicketRepository, deliverer delivery.Deliverer, publisher feed.Publisher) TicketLifecycle {
	if publisher == nil {
		publisher = feed.NoopPublisher{}
	}
	return &TicketLifecycleImpl{
		tickets:   tickets,
		deliverer: deliverer,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores a manual ticket as PendingReview. A concurrent submission for
// the same email, plan and period loses on the review_key unique index.
func (l *TicketLifecycleImpl) Submit(ctx context.Context, t *models.Ticket, actor string) error {
	now := l.now()
	key := models.ReviewKeyFor(t.Holder.Email, t.PlanName, t.Period)

	t.Path = models.PaymentPathManual
	t.State = models.TicketStatePendingReview
	t.SubmittedAt = now
	t.ReviewKey = &key

	err := l.tickets.Create(ctx, t, l.audit(actor, "", nil))
	if err != nil {
		if errors.Is(err, repositories.ErrTicketDuplicate) {
			return apperrors.ErrDuplicateSubmission
		}
		return apperrors.DatabaseError(err)
	}

	logger.CtxInfo(ctx, "ticket submitted for review", "ticket_id", t.ID, "plan", t.PlanName, "period", t.Period)
	l.publish(ctx, t)
	return nil
}

// IssueFromOrder creates (once) the ticket of a completed gateway order and
// tries to deliver it. Safe to call any number of times for the same order.
// Once an order has issued its ticket it never issues another one: if that
// ticket was removed the result is nil.
func (l *TicketLifecycleImpl) IssueFromOrder(ctx context.Context, order *models.PaymentOrder) (*models.Ticket, error) {
	if order.Status != models.PaymentStatusCompleted {
		return nil, apperrors.ErrInvalidTransition.WithDetails(map[string]string{
			"order_status": string(order.Status),
		})
	}

	if order.TicketIssuedAt != nil {
		return l.issuedTicket(ctx, order.TrackingID)
	}

	t, created, err := l.createGatewayTicket(ctx, order)
	if err != nil || !created {
		return t, err
	}

	// only the creating caller delivers; a failed delivery is retried by resend
	if err := l.deliverAndIssue(ctx, t, ActorSystem); err != nil {
		logger.CtxWarn(ctx, "gateway ticket not delivered yet", "ticket_id", t.ID, "error", err)
	}
	return t, nil
}

// issuedTicket returns the ticket an order already produced, or nil when it
// has been removed.
func (l *TicketLifecycleImpl) issuedTicket(ctx context.Context, trackingID string) (*models.Ticket, error) {
	t, err := l.tickets.FindByGatewayTrackingID(ctx, trackingID)
	if errors.Is(err, repositories.ErrTicketNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return t, nil
}

func (l *TicketLifecycleImpl) createGatewayTicket(ctx context.Context, order *models.PaymentOrder) (*models.Ticket, bool, error) {
	trackingID := order.TrackingID
	t := &models.Ticket{
		Holder:            order.Holder,
		PlanName:          order.PlanName,
		Period:            order.Period,
		Amount:            order.Amount,
		Path:              models.PaymentPathGateway,
		GatewayTrackingID: &trackingID,
		State:             models.TicketStateCreated,
		SubmittedAt:       l.now(),
	}
	details := map[string]string{"merchant_reference": order.MerchantReference}

	err := l.tickets.CreateForOrder(ctx, t, l.audit(ActorSystem, "payment completed", details), trackingID)
	if errors.Is(err, repositories.ErrTicketDuplicate) || errors.Is(err, repositories.ErrOrderAlreadyIssued) {
		// another poller or IPN issued it first, or it was issued and removed
		existing, ferr := l.issuedTicket(ctx, trackingID)
		return existing, false, ferr
	}
	if err != nil {
		return nil, false, apperrors.DatabaseError(err)
	}
	order.TicketID = &t.ID
	order.TicketIssuedAt = &t.SubmittedAt

	logger.CtxInfo(ctx, "gateway ticket created", "ticket_id", t.ID, "order_tracking_id", trackingID)
	l.publish(ctx, t)
	return t, true, nil
}

// Approve moves PendingReview -> Approved, delivers, then Approved -> Issued.
// When delivery fails the ticket stays Approved and the delivery error is
// returned next to it.
func (l *TicketLifecycleImpl) Approve(ctx context.Context, ticketID, adminID string) (*models.Ticket, error) {
	now := l.now()
	updates := map[string]interface{}{
		"decided_by": adminID,
		"decided_at": now,
		"review_key": nil,
	}
	if err := l.move(ctx, ticketID, models.TicketStatePendingReview, models.TicketStateApproved, updates, l.audit(adminID, "", nil)); err != nil {
		return nil, err
	}

	t, err := l.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	logger.CtxInfo(ctx, "ticket approved", "ticket_id", t.ID, "admin_id", adminID)

	if err := l.deliverAndIssue(ctx, t, adminID); err != nil {
		return t, err
	}
	return t, nil
}

func (l *TicketLifecycleImpl) Reject(ctx context.Context, ticketID, adminID, reason string) (*models.Ticket, error) {
	now := l.now()
	updates := map[string]interface{}{
		"decided_by":       adminID,
		"decided_at":       now,
		"rejection_reason": reason,
		"review_key":       nil,
	}
	if err := l.move(ctx, ticketID, models.TicketStatePendingReview, models.TicketStateRejected, updates, l.audit(adminID, reason, nil)); err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "ticket rejected", "ticket_id", ticketID, "admin_id", adminID)
	return l.Get(ctx, ticketID)
}

// ResendDelivery retries delivery of an approved or gateway ticket, or sends
// an already issued ticket again.
func (l *TicketLifecycleImpl) ResendDelivery(ctx context.Context, ticketID, adminID string) (*models.Ticket, error) {
	t, err := l.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	switch t.State {
	case models.TicketStateApproved, models.TicketStateCreated:
		if err := l.deliverAndIssue(ctx, t, adminID); err != nil {
			return t, err
		}
		return t, nil
	case models.TicketStateIssued:
		if err := l.deliver(ctx, t); err != nil {
			return t, err
		}
		return l.Get(ctx, ticketID)
	default:
		return nil, invalidTransition(t.State, models.TicketStateIssued)
	}
}

// CheckIn moves Issued -> CheckedIn. A repeated check-in fails with
// AlreadyCheckedIn and the first timestamp is kept.
func (l *TicketLifecycleImpl) CheckIn(ctx context.Context, ticketID, actor string) (*models.Ticket, error) {
	now := l.now()
	updates := map[string]interface{}{
		"checked_in_at": now,
		"checked_in_by": actor,
	}
	if err := l.move(ctx, ticketID, models.TicketStateIssued, models.TicketStateCheckedIn, updates, l.audit(actor, "", nil)); err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "ticket checked in", "ticket_id", ticketID, "actor", actor)
	return l.Get(ctx, ticketID)
}

func (l *TicketLifecycleImpl) Remove(ctx context.Context, ticketID, adminID string) error {
	err := l.tickets.Delete(ctx, ticketID, l.audit(adminID, "removed by admin", nil))
	if err != nil {
		if errors.Is(err, repositories.ErrTicketNotFound) {
			return apperrors.ErrTicketNotFound
		}
		return apperrors.DatabaseError(err)
	}

	logger.CtxWarn(ctx, "ticket removed", "ticket_id", ticketID, "admin_id", adminID)
	l.publishEvent(ctx, feed.Event{Topic: feed.TopicTickets, ID: ticketID, State: string(models.TicketStateRemoved)})
	return nil
}

func (l *TicketLifecycleImpl) Get(ctx context.Context, ticketID string) (*models.Ticket, error) {
	t, err := l.tickets.FindByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repositories.ErrTicketNotFound) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, apperrors.DatabaseError(err)
	}
	return t, nil
}

func (l *TicketLifecycleImpl) History(ctx context.Context, ticketID string) ([]models.TicketTransition, error) {
	if _, err := l.Get(ctx, ticketID); err != nil {
		return nil, err
	}
	rows, err := l.tickets.ListTransitions(ctx, ticketID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	return rows, nil
}

// deliverAndIssue delivers t and, on success, moves it to Issued. t is
// updated in place.
func (l *TicketLifecycleImpl) deliverAndIssue(ctx context.Context, t *models.Ticket, actor string) error {
	if err := l.deliver(ctx, t); err != nil {
		return err
	}

	now := l.now()
	from := t.State
	err := l.move(ctx, t.ID, from, models.TicketStateIssued, map[string]interface{}{"issued_at": now}, l.audit(actor, "", nil))
	if err != nil {
		return err
	}
	t.State = models.TicketStateIssued
	t.IssuedAt = &now
	return nil
}

func (l *TicketLifecycleImpl) deliver(ctx context.Context, t *models.Ticket) error {
	deliveryErr := l.deliverer.Deliver(ctx, t)
	if err := l.tickets.RecordDelivery(ctx, t.ID, deliveryErr); err != nil {
		logger.CtxWithError(ctx, "failed to record delivery attempt", err, "ticket_id", t.ID)
	}
	t.DeliveryAttempts++
	if deliveryErr != nil {
		t.LastDeliveryError = deliveryErr.Error()
		logger.CtxWithError(ctx, "ticket delivery failed", deliveryErr, "ticket_id", t.ID)
		return apperrors.Wrap(deliveryErr, apperrors.CodeExternalServiceError, "ticket",
			"Ticket delivery failed; it can be resent", 502).WithDetails(map[string]string{
			"ticket_id": t.ID,
			"state":     string(t.State),
		})
	}
	t.LastDeliveryError = ""
	return nil
}

// move performs one guarded transition and explains a lost race.
func (l *TicketLifecycleImpl) move(ctx context.Context, ticketID string, from, to models.TicketState, updates map[string]interface{}, audit *models.TicketTransition) error {
	if !from.CanTransitionTo(to) {
		return invalidTransition(from, to)
	}

	err := l.tickets.Transition(ctx, ticketID, from, to, updates, audit)
	if err == nil {
		l.publishEvent(ctx, feed.Event{Topic: feed.TopicTickets, ID: ticketID, State: string(to)})
		return nil
	}
	if !errors.Is(err, repositories.ErrStaleState) {
		return apperrors.DatabaseError(err)
	}

	current, gerr := l.Get(ctx, ticketID)
	if gerr != nil {
		return gerr
	}
	if to == models.TicketStateCheckedIn && current.State == models.TicketStateCheckedIn {
		return apperrors.ErrAlreadyCheckedIn.WithDetails(map[string]interface{}{
			"checked_in_at": current.CheckedInAt,
		})
	}
	return invalidTransition(current.State, to)
}

func invalidTransition(current, requested models.TicketState) error {
	return apperrors.ErrInvalidTransition.WithDetails(map[string]string{
		"current_state":   string(current),
		"requested_state": string(requested),
	})
}

func (l *TicketLifecycleImpl) audit(actor, reason string, details interface{}) *models.TicketTransition {
	row := &models.TicketTransition{
		Actor:      actor,
		Reason:     reason,
		OccurredAt: l.now(),
	}
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			row.Details = datatypes.JSON(b)
		}
	}
	return row
}

func (l *TicketLifecycleImpl) publish(ctx context.Context, t *models.Ticket) {
	l.publishEvent(ctx, feed.Event{Topic: feed.TopicTickets, ID: t.ID, State: string(t.State)})
}

func (l *TicketLifecycleImpl) publishEvent(ctx context.Context, ev feed.Event) {
	if err := l.publisher.Publish(ctx, ev); err != nil {
		logger.CtxWarn(ctx, "feed publish failed", "topic", ev.Topic, "id", ev.ID, "error", err)
	}
}
