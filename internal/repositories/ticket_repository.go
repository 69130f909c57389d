package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"launchpad_backend/internal/models"
)

var (
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrTicketDuplicate = errors.New("ticket already exists")
	// ErrOrderAlreadyIssued means the order has produced its ticket before,
	// even if that ticket was removed since.
	ErrOrderAlreadyIssued = errors.New("order ticket already issued")
	// ErrStaleState means the conditional update matched no row: the ticket
	// moved on (or vanished) since the caller read it.
	ErrStaleState = errors.New("ticket state changed concurrently")
)

type TicketRepository interface {
	Create(ctx context.Context, ticket *models.Ticket, audit *models.TicketTransition) error
	CreateForOrder(ctx context.Context, ticket *models.Ticket, audit *models.TicketTransition, orderTrackingID string) error
	FindByID(ctx context.Context, id string) (*models.Ticket, error)
	FindByGatewayTrackingID(ctx context.Context, trackingID string) (*models.Ticket, error)
	HasOccupying(ctx context.Context, email, plan, period string, since time.Time) (bool, error)
	Transition(ctx context.Context, id string, from, to models.TicketState, updates map[string]interface{}, audit *models.TicketTransition) error
	RecordDelivery(ctx context.Context, id string, deliveryErr error) error
	ListPending(ctx context.Context) ([]models.Ticket, error)
	ListTransitions(ctx context.Context, id string) ([]models.TicketTransition, error)
	Delete(ctx context.Context, id string, audit *models.TicketTransition) error
}

type TicketRepositoryImpl struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &TicketRepositoryImpl{db: db}
}

func (r *TicketRepositoryImpl) Create(ctx context.Context, ticket *models.Ticket, audit *models.TicketTransition) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ticket).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrTicketDuplicate
			}
			return err
		}
		audit.TicketID = ticket.ID
		audit.ToState = ticket.State
		return tx.Create(audit).Error
	})
}

// CreateForOrder inserts the ticket of a gateway order and stamps the order
// as issued in one transaction. An order is issued at most once, so a ticket
// removed later is never recreated from it.
func (r *TicketRepositoryImpl) CreateForOrder(ctx context.Context, ticket *models.Ticket, audit *models.TicketTransition, orderTrackingID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ticket).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrTicketDuplicate
			}
			return err
		}
		audit.TicketID = ticket.ID
		audit.ToState = ticket.State
		if err := tx.Create(audit).Error; err != nil {
			return err
		}

		res := tx.Model(&models.PaymentOrder{}).
			Where("tracking_id = ?", orderTrackingID).
			Where("ticket_issued_at IS NULL").
			Updates(map[string]interface{}{
				"ticket_id":        ticket.ID,
				"ticket_issued_at": ticket.SubmittedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOrderAlreadyIssued
		}
		return nil
	})
}

func (r *TicketRepositoryImpl) FindByID(ctx context.Context, id string) (*models.Ticket, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *TicketRepositoryImpl) FindByGatewayTrackingID(ctx context.Context, trackingID string) (*models.Ticket, error) {
	return r.findOne(ctx, "gateway_tracking_id = ?", trackingID)
}

func (r *TicketRepositoryImpl) findOne(ctx context.Context, query string, arg interface{}) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).Where(query, arg).First(&ticket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

// HasOccupying reports whether a non-rejected ticket for the same email, plan
// and period was submitted at or after since.
func (r *TicketRepositoryImpl) HasOccupying(ctx context.Context, email, plan, period string, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("LOWER(holder_email) = LOWER(?)", email).
		Where("LOWER(plan_name) = LOWER(?)", plan).
		Where("LOWER(period) = LOWER(?)", period).
		Where("state IN ?", models.OccupyingTicketStates).
		Where("submitted_at >= ?", since).
		Count(&count).Error
	return count > 0, err
}

// Transition moves the ticket from -> to in one transaction together with its
// audit row. ErrStaleState is returned when the ticket is no longer in from.
func (r *TicketRepositoryImpl) Transition(ctx context.Context, id string, from, to models.TicketState, updates map[string]interface{}, audit *models.TicketTransition) error {
	fields := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		fields[k] = v
	}
	fields["state"] = to

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Ticket{}).
			Where("id = ? AND state = ?", id, from).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleState
		}

		audit.TicketID = id
		audit.FromState = from
		audit.ToState = to
		return tx.Create(audit).Error
	})
}

func (r *TicketRepositoryImpl) RecordDelivery(ctx context.Context, id string, deliveryErr error) error {
	fields := map[string]interface{}{
		"delivery_attempts": gorm.Expr("delivery_attempts + 1"),
	}
	if deliveryErr != nil {
		fields["last_delivery_error"] = deliveryErr.Error()
	} else {
		fields["last_delivery_error"] = ""
		fields["delivered_at"] = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Model(&models.Ticket{}).Where("id = ?", id).Updates(fields).Error
}

// ListPending returns tickets awaiting review, oldest submission first.
func (r *TicketRepositoryImpl) ListPending(ctx context.Context) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.WithContext(ctx).
		Where("state = ?", models.TicketStatePendingReview).
		Order("submitted_at ASC, id ASC").
		Find(&tickets).Error
	return tickets, err
}

func (r *TicketRepositoryImpl) ListTransitions(ctx context.Context, id string) ([]models.TicketTransition, error) {
	var rows []models.TicketTransition
	err := r.db.WithContext(ctx).
		Where("ticket_id = ?", id).
		Order("occurred_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// Delete removes the ticket; its audit trail is kept and gets a closing row.
func (r *TicketRepositoryImpl) Delete(ctx context.Context, id string, audit *models.TicketTransition) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ticket models.Ticket
		if err := tx.Where("id = ?", id).First(&ticket).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTicketNotFound
			}
			return err
		}
		if err := tx.Delete(&models.Ticket{}, "id = ?", id).Error; err != nil {
			return err
		}
		audit.TicketID = id
		audit.FromState = ticket.State
		audit.ToState = models.TicketStateRemoved
		return tx.Create(audit).Error
	})
}

// FeedCursor summarises the rows shown on the moderation view so pollers can
// detect changes.
type FeedCursor struct {
	db *gorm.DB
}

func NewFeedCursor(db *gorm.DB) *FeedCursor {
	return &FeedCursor{db: db}
}

func (c *FeedCursor) ChangeCursor(ctx context.Context) (string, error) {
	var (
		ticketCount, subCount int64
		ticketMax, subMax     sql.NullString
	)
	err := c.db.WithContext(ctx).Model(&models.Ticket{}).
		Select("COUNT(*), MAX(updated_at)").
		Where("state = ?", models.TicketStatePendingReview).
		Row().Scan(&ticketCount, &ticketMax)
	if err != nil {
		return "", err
	}
	err = c.db.WithContext(ctx).Model(&models.NewsletterSubscriber{}).
		Select("COUNT(*), MAX(updated_at)").
		Where("status = ?", models.SubscriberStatusPending).
		Row().Scan(&subCount, &subMax)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d/%s/%d/%s", ticketCount, ticketMax.String, subCount, subMax.String), nil
}
