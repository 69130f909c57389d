package models

import (
	"encoding/base64"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Ticket struct {
	BaseModel
	Holder   Holder          `gorm:"embedded;embeddedPrefix:holder_" json:"holder"`
	PlanName string          `gorm:"type:varchar(100);not null" json:"plan"`
	Period   string          `gorm:"type:varchar(20);not null" json:"period"`
	Amount   decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	Path     PaymentPath     `gorm:"type:varchar(10);not null" json:"path"`

	// Payment evidence: exactly one of these is set depending on Path.
	GatewayTrackingID   *string `gorm:"type:varchar(64);uniqueIndex" json:"gateway_tracking_id,omitempty"`
	ConfirmationMessage string  `gorm:"type:text" json:"confirmation_message,omitempty"`

	State TicketState `gorm:"type:varchar(20);not null;index" json:"state"`
	// ReviewKey is lower(email)|plan|period while PendingReview, NULL otherwise.
	ReviewKey   *string   `gorm:"type:varchar(400);uniqueIndex" json:"-"`
	SubmittedAt time.Time `gorm:"not null;index" json:"submitted_at"`

	DecidedBy       *string    `gorm:"type:varchar(36)" json:"decided_by,omitempty"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason,omitempty"`

	IssuedAt    *time.Time `json:"issued_at"`
	CheckedInAt *time.Time `json:"checked_in_at"`
	CheckedInBy *string    `gorm:"type:varchar(36)" json:"checked_in_by,omitempty"`

	DeliveryAttempts  int        `gorm:"not null;default:0" json:"delivery_attempts"`
	LastDeliveryError string     `gorm:"type:text" json:"last_delivery_error,omitempty"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
}

func (Ticket) TableName() string { return "tickets" }

// ReviewKeyFor builds the value guarded by the unique review_key index.
func ReviewKeyFor(email, plan, period string) string {
	return strings.ToLower(strings.TrimSpace(email)) + "|" +
		strings.ToLower(strings.TrimSpace(plan)) + "|" +
		strings.ToLower(strings.TrimSpace(period))
}

// Code is the compact form of the ticket id printed into the QR code.
func (t *Ticket) Code() string {
	id, err := uuid.Parse(t.ID)
	if err != nil {
		return t.ID
	}
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// QRPayload is the verification URL encoded in the ticket's QR image.
func (t *Ticket) QRPayload(verifyBaseURL string) string {
	q := url.Values{}
	q.Set("ticket", t.Code())
	q.Set("name", t.Holder.Name)
	q.Set("plan", t.PlanName)
	q.Set("verified", "true")
	return verifyBaseURL + "?" + q.Encode()
}

// ParseTicketCode accepts either a canonical uuid or the compact Code form.
func ParseTicketCode(code string) (string, bool) {
	code = strings.TrimSpace(code)
	if id, err := uuid.Parse(code); err == nil {
		return id.String(), true
	}
	raw, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil || len(raw) != 16 {
		return "", false
	}
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// TicketTransition is the audit trail row written with every state change.
type TicketTransition struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	TicketID   string         `gorm:"type:varchar(36);not null;index" json:"ticket_id"`
	FromState  TicketState    `gorm:"type:varchar(20)" json:"from"`
	ToState    TicketState    `gorm:"type:varchar(20);not null" json:"to"`
	Actor      string         `gorm:"type:varchar(100);not null" json:"actor"`
	Reason     string         `gorm:"type:text" json:"reason,omitempty"`
	Details    datatypes.JSON `json:"details,omitempty"`
	OccurredAt time.Time      `gorm:"not null" json:"occurred_at"`
}

func (TicketTransition) TableName() string { return "ticket_transitions" }
