package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreatePaymentRequest — тело POST /api/create-payment.
// Amount is whatever the client believes the price is; it is checked
// against the catalog, never trusted.
type CreatePaymentRequest struct {
	Plan   string          `json:"plan" validate:"required,max=100" example:"Pro"`
	Amount decimal.Decimal `json:"amount" validate:"is-kes-amount" swaggertype:"string" example:"2099"`
	Period string          `json:"period" validate:"required,is-period" example:"monthly"`
	Name   string          `json:"name" validate:"required,min=2,max=255" example:"Amina Otieno"`
	Email  string          `json:"email" validate:"required,email,max=255" example:"a@x.com"`
	Phone  string          `json:"phone" validate:"omitempty,is-ke-phone" example:"0712345678"`
}

type CreatePaymentResponse struct {
	OrderTrackingID   string `json:"order_tracking_id"`
	MerchantReference string `json:"merchant_reference"`
	RedirectURL       string `json:"redirect_url"`
}

type OrderStatusResponse struct {
	OrderTrackingID   string          `json:"order_tracking_id"`
	MerchantReference string          `json:"merchant_reference"`
	Status            string          `json:"status"`
	Plan              string          `json:"plan"`
	Period            string          `json:"period"`
	Amount            decimal.Decimal `json:"amount" swaggertype:"string"`
	Currency          string          `json:"currency"`
	ConfirmationCode  string          `json:"confirmation_code,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	TicketID          string          `json:"ticket_id,omitempty"`
	TicketState       string          `json:"ticket_state,omitempty"`
}

type PlanResponse struct {
	Plan     string          `json:"plan"`
	Period   string          `json:"period"`
	Price    decimal.Decimal `json:"price" swaggertype:"string"`
	Currency string          `json:"currency"`
}

type ReconcileResult struct {
	Checked  int `json:"checked"`
	Resolved int `json:"resolved"`
	Failed   int `json:"failed"`
}
