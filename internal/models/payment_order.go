package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentOrder is one gateway payment attempt. Status moves only forward and
// never leaves completed or failed.
type PaymentOrder struct {
	BaseModel
	MerchantReference string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"merchant_reference"`
	TrackingID        string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_tracking_id"`
	PlanName          string          `gorm:"type:varchar(100);not null" json:"plan"`
	Period            string          `gorm:"type:varchar(20);not null" json:"period"`
	Amount            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency          string          `gorm:"type:varchar(3);not null;default:KES" json:"currency"`
	Holder            Holder          `gorm:"embedded;embeddedPrefix:holder_" json:"holder"`
	Status            PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	StatusObservedAt  *time.Time      `json:"status_observed_at,omitempty"`
	RedirectURL       string          `gorm:"type:text" json:"redirect_url"`
	ConfirmationCode  string          `gorm:"type:varchar(100)" json:"confirmation_code,omitempty"`
	PaymentMethod     string          `gorm:"type:varchar(100)" json:"payment_method,omitempty"`
	GatewayPayload    datatypes.JSON  `json:"-"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	TicketID          *string         `gorm:"type:varchar(36)" json:"ticket_id,omitempty"`
	TicketIssuedAt    *time.Time      `json:"ticket_issued_at,omitempty"` // set once, never cleared
}

func (PaymentOrder) TableName() string { return "payment_orders" }
