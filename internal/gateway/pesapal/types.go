package pesapal

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"launchpad_backend/internal/models"
)

var (
	// ErrAuth: the consumer key/secret pair (or a fresh token) was refused.
	ErrAuth = errors.New("pesapal: authentication rejected")
	// ErrUnavailable covers network failures, timeouts and 5xx answers.
	ErrUnavailable = errors.New("pesapal: gateway unavailable")
)

// RejectedError is a business refusal from the gateway; Message is passed on verbatim.
type RejectedError struct {
	Code    string
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("pesapal: rejected (%s): %s", e.Code, e.Message)
}

// APIError is the error object embedded in every Pesapal response.
type APIError struct {
	Type    string `json:"error_type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) empty() bool {
	return e == nil || (e.Code == "" && e.Message == "")
}

const codeInvalidCredentials = "invalid_consumer_key_or_secret_provided"

type tokenRequest struct {
	ConsumerKey    string `json:"consumer_key"`
	ConsumerSecret string `json:"consumer_secret"`
}

type tokenResponse struct {
	Token      string    `json:"token"`
	ExpiryDate string    `json:"expiryDate"`
	Error      *APIError `json:"error"`
	Status     string    `json:"status"`
	Message    string    `json:"message"`
}

type registerIPNRequest struct {
	URL              string `json:"url"`
	NotificationType string `json:"ipn_notification_type"`
}

type registerIPNResponse struct {
	URL    string    `json:"url"`
	IPNID  string    `json:"ipn_id"`
	Error  *APIError `json:"error"`
	Status string    `json:"status"`
}

type BillingAddress struct {
	EmailAddress string `json:"email_address"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	CountryCode  string `json:"country_code,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
}

// OrderRequest is the body of SubmitOrderRequest.
type OrderRequest struct {
	ID             string         `json:"id"`
	Currency       string         `json:"currency"`
	Amount         float64        `json:"amount"`
	Description    string         `json:"description"`
	CallbackURL    string         `json:"callback_url"`
	NotificationID string         `json:"notification_id"`
	BillingAddress BillingAddress `json:"billing_address"`
}

type OrderResponse struct {
	OrderTrackingID   string    `json:"order_tracking_id"`
	MerchantReference string    `json:"merchant_reference"`
	RedirectURL       string    `json:"redirect_url"`
	Error             *APIError `json:"error"`
	Status            string    `json:"status"`
}

// TransactionStatus is the GetTransactionStatus answer. Raw keeps the body
// for auditing.
type TransactionStatus struct {
	PaymentMethod            string    `json:"payment_method"`
	Amount                   float64   `json:"amount"`
	CreatedDate              string    `json:"created_date"`
	ConfirmationCode         string    `json:"confirmation_code"`
	PaymentStatusDescription string    `json:"payment_status_description"`
	Description              string    `json:"description"`
	StatusCode               int       `json:"status_code"`
	MerchantReference        string    `json:"merchant_reference"`
	Currency                 string    `json:"currency"`
	Error                    *APIError `json:"error"`
	Status                   string    `json:"status"`

	Raw        []byte    `json:"-"`
	ObservedAt time.Time `json:"-"`
}

const (
	statusCodeInvalid   = 0
	statusCodeCompleted = 1
	statusCodeFailed    = 2
	statusCodeReversed  = 3
)

// PaymentStatus maps the gateway status code onto an order status.
func (s *TransactionStatus) PaymentStatus() models.PaymentStatus {
	switch s.StatusCode {
	case statusCodeCompleted:
		return models.PaymentStatusCompleted
	case statusCodeFailed, statusCodeReversed:
		return models.PaymentStatusFailed
	case statusCodeInvalid:
		if s.PaymentStatusDescription == "" {
			return models.PaymentStatusPending
		}
		return models.PaymentStatusInvalid
	default:
		return models.PaymentStatusPending
	}
}

func (s *TransactionStatus) AmountDecimal() decimal.Decimal {
	return decimal.NewFromFloat(s.Amount)
}

// IPNNotification is what Pesapal sends to the registered IPN URL, either as
// query parameters (GET) or a JSON body (POST).
type IPNNotification struct {
	OrderTrackingID        string `json:"OrderTrackingId" form:"OrderTrackingId"`
	OrderMerchantReference string `json:"OrderMerchantReference" form:"OrderMerchantReference"`
	OrderNotificationType  string `json:"OrderNotificationType" form:"OrderNotificationType"`
}

// IPNAck is the acknowledgement body Pesapal expects back.
type IPNAck struct {
	OrderNotificationType  string `json:"orderNotificationType"`
	OrderTrackingID        string `json:"orderTrackingId"`
	OrderMerchantReference string `json:"orderMerchantReference"`
	Status                 int    `json:"status"`
}
