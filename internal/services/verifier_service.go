package services

import (
	"context"
	"strings"

	"launchpad_backend/internal/delivery"
	"launchpad_backend/internal/models"
	"launchpad_backend/internal/services/dto"
	"launchpad_backend/pkg/apperrors"
)

const qrImageSize = 512

// VerifierService backs the door check. Lookups never change state; checking
// in is a separate call.
type VerifierService interface {
	Verify(ctx context.Context, code string, claims *dto.VerifyQuery) (*dto.VerifyResponse, error)
	CheckIn(ctx context.Context, code, actor string) (*dto.VerifyResponse, error)
	QRImage(ctx context.Context, code string) ([]byte, error)
}

type VerifierServiceImpl struct {
	lifecycle     TicketLifecycle
	verifyBaseURL string
}

func NewVerifierService(lifecycle TicketLifecycle, verifyBaseURL string) VerifierService {
	return &VerifierServiceImpl{lifecycle: lifecycle, verifyBaseURL: verifyBaseURL}
}

func (s *VerifierServiceImpl) Verify(ctx context.Context, code string, claims *dto.VerifyQuery) (*dto.VerifyResponse, error) {
	t, err := s.lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	resp := newVerifyResponse(t)
	if claims != nil && (claims.Name != "" || claims.Plan != "") {
		match := claimMatches(claims.Name, t.Holder.Name) && claimMatches(claims.Plan, t.PlanName)
		resp.ClaimsMatch = &match
	}
	return resp, nil
}

func (s *VerifierServiceImpl) CheckIn(ctx context.Context, code, actor string) (*dto.VerifyResponse, error) {
	t, err := s.lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	t, err = s.lifecycle.CheckIn(ctx, t.ID, actor)
	if err != nil {
		return nil, err
	}
	return newVerifyResponse(t), nil
}

// QRImage renders the same QR the holder received by email.
func (s *VerifierServiceImpl) QRImage(ctx context.Context, code string) ([]byte, error) {
	t, err := s.lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	png, err := delivery.RenderQR(t.QRPayload(s.verifyBaseURL), qrImageSize)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return png, nil
}

// lookup hides malformed, unknown and rejected codes behind one NotFound.
func (s *VerifierServiceImpl) lookup(ctx context.Context, code string) (*models.Ticket, error) {
	id, ok := models.ParseTicketCode(code)
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	t, err := s.lifecycle.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.State == models.TicketStateRejected {
		return nil, apperrors.ErrTicketNotFound
	}
	return t, nil
}

func claimMatches(claim, actual string) bool {
	if claim == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(claim), strings.TrimSpace(actual))
}

func newVerifyResponse(t *models.Ticket) *dto.VerifyResponse {
	return &dto.VerifyResponse{
		TicketID:    t.ID,
		Holder:      t.Holder.Name,
		Plan:        t.PlanName,
		Period:      t.Period,
		State:       t.State,
		IssuedAt:    t.IssuedAt,
		CheckedInAt: t.CheckedInAt,
	}
}
