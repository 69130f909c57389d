package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"launchpad_backend/internal/models"
)

// ManualTicketRequest — подтверждение оплаты, введенное пользователем
// (например, текст SMS от M-Pesa).
type ManualTicketRequest struct {
	Plan                string `json:"plan" validate:"required,max=100" example:"Pro"`
	Period              string `json:"period" validate:"required,is-period" example:"monthly"`
	Name                string `json:"name" validate:"required,min=2,max=255"`
	Email               string `json:"email" validate:"required,email,max=255"`
	Phone               string `json:"phone" validate:"omitempty,is-ke-phone"`
	ConfirmationMessage string `json:"confirmation_message" validate:"required,min=5,max=2000" example:"QK12ABC345 Confirmed. Ksh2,099.00 sent to LAUNCHPAD"`
}

type RejectTicketRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// VerifyQuery is what the QR link carries. Name and plan are the claims
// printed on the ticket; they are compared, never trusted.
type VerifyQuery struct {
	Ticket   string `form:"ticket" validate:"required,max=64"`
	Name     string `form:"name" validate:"max=255"`
	Plan     string `form:"plan" validate:"max=100"`
	Verified string `form:"verified"`
}

type TicketResponse struct {
	ID                  string             `json:"id"`
	Code                string             `json:"code"`
	State               models.TicketState `json:"state"`
	Path                models.PaymentPath `json:"path"`
	Holder              models.Holder      `json:"holder"`
	Plan                string             `json:"plan"`
	Period              string             `json:"period"`
	Amount              decimal.Decimal    `json:"amount" swaggertype:"string"`
	ConfirmationMessage string             `json:"confirmation_message,omitempty"`
	GatewayTrackingID   string             `json:"gateway_tracking_id,omitempty"`
	SubmittedAt         time.Time          `json:"submitted_at"`
	IssuedAt            *time.Time         `json:"issued_at"`
	CheckedInAt         *time.Time         `json:"checked_in_at"`
	RejectionReason     string             `json:"rejection_reason,omitempty"`
	DeliveryAttempts    int                `json:"delivery_attempts"`
	LastDeliveryError   string             `json:"last_delivery_error,omitempty"`
}

func NewTicketResponse(t *models.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:                  t.ID,
		Code:                t.Code(),
		State:               t.State,
		Path:                t.Path,
		Holder:              t.Holder,
		Plan:                t.PlanName,
		Period:              t.Period,
		Amount:              t.Amount,
		ConfirmationMessage: t.ConfirmationMessage,
		SubmittedAt:         t.SubmittedAt,
		IssuedAt:            t.IssuedAt,
		CheckedInAt:         t.CheckedInAt,
		RejectionReason:     t.RejectionReason,
		DeliveryAttempts:    t.DeliveryAttempts,
		LastDeliveryError:   t.LastDeliveryError,
	}
	if t.GatewayTrackingID != nil {
		resp.GatewayTrackingID = *t.GatewayTrackingID
	}
	return resp
}

func NewTicketResponses(tickets []models.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// VerifyResponse is the public door-check view; it carries no contact details.
type VerifyResponse struct {
	TicketID    string             `json:"ticket_id"`
	Holder      string             `json:"holder"`
	Plan        string             `json:"plan"`
	Period      string             `json:"period"`
	State       models.TicketState `json:"state"`
	IssuedAt    *time.Time         `json:"issued_at"`
	CheckedInAt *time.Time         `json:"checked_in_at"`
	ClaimsMatch *bool              `json:"claims_match,omitempty"`
}
