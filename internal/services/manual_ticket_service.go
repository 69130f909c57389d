package services

import (
	"context"
	"strings"
	"time"

	"launchpad_backend/internal/models"
	"launchpad_backend/internal/repositories"
	"launchpad_backend/internal/services/dto"
	"launchpad_backend/internal/validator"
	"launchpad_backend/pkg/apperrors"
)

// ManualTicketService accepts payments made outside the gateway (typically an
// M-Pesa transfer) and queues them for admin review.
type ManualTicketService interface {
	Submit(ctx context.Context, req *dto.ManualTicketRequest) (*models.Ticket, error)
}

type ManualTicketServiceImpl struct {
	tickets         repositories.TicketRepository
	catalog         CatalogService
	lifecycle       TicketLifecycle
	validator       *validator.Validator
	duplicateWindow time.Duration
	now             func() time.Time
}

func NewManualTicketService(
	tickets repositories.TicketRepository,
	catalog CatalogService,
	lifecycle TicketLifecycle,
	v *validator.Validator,
	duplicateWindow time.Duration,
) ManualTicketService {
	return &ManualTicketServiceImpl{
		tickets:         tickets,
		catalog:         catalog,
		lifecycle:       lifecycle,
		validator:       v,
		duplicateWindow: duplicateWindow,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *ManualTicketServiceImpl) Submit(ctx context.Context, req *dto.ManualTicketRequest) (*models.Ticket, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	plan, err := s.catalog.Price(ctx, req.Plan, req.Period)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	since := s.now().Add(-s.duplicateWindow)
	taken, err := s.tickets.HasOccupying(ctx, email, plan.Name, plan.Period, since)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if taken {
		return nil, apperrors.ErrDuplicateSubmission
	}

	ticket := &models.Ticket{
		Holder: models.Holder{
			Name:  strings.TrimSpace(req.Name),
			Phone: req.Phone,
			Email: email,
		},
		PlanName:            plan.Name,
		Period:              plan.Period,
		Amount:              plan.Price,
		ConfirmationMessage: strings.TrimSpace(req.ConfirmationMessage),
	}
	if err := s.lifecycle.Submit(ctx, ticket, email); err != nil {
		return nil, err
	}
	return ticket, nil
}
