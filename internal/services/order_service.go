package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"launchpad_backend/internal/gateway/pesapal"
	"launchpad_backend/internal/logger"
	"launchpad_backend/internal/models"
	"launchpad_backend/internal/repositories"
	"launchpad_backend/internal/services/dto"
	"launchpad_backend/internal/validator"
	"launchpad_backend/pkg/apperrors"
)

const (
	CurrencyKES = "KES"

	merchantRefPrefix   = "LP"
	merchantRefAttempts = 3
)

// PaymentGateway is the subset of the Pesapal gateway the order flow needs.
type PaymentGateway interface {
	EnsureNotificationChannel(ctx context.Context, ipnURL string) (string, error)
	SubmitOrder(ctx context.Context, req pesapal.OrderRequest) (*pesapal.OrderResponse, error)
	GetTransactionStatus(ctx context.Context, trackingID string) (*pesapal.TransactionStatus, error)
}

type OrderServiceConfig struct {
	IPNURL      string
	CallbackURL string
	Currency    string
}

type OrderService interface {
	CreateOrder(ctx context.Context, req *dto.CreatePaymentRequest) (*dto.CreatePaymentResponse, error)
	GetOrderStatus(ctx context.Context, trackingID string) (*dto.OrderStatusResponse, error)
	HandleIPN(ctx context.Context, n pesapal.IPNNotification) pesapal.IPNAck
	ReconcilePending(ctx context.Context, minAge time.Duration, limit int) (dto.ReconcileResult, error)
}

type OrderServiceImpl struct {
	orders    repositories.PaymentOrderRepository
	catalog   CatalogService
	gateway   PaymentGateway
	lifecycle TicketLifecycle
	validator *validator.Validator
	cfg       OrderServiceConfig
	now       func() time.Time
}

func NewOrderService(
	orders repositories.PaymentOrderRepository,
	catalog CatalogService,
	gateway PaymentGateway,
	lifecycle TicketLifecycle,
	v *validator.Validator,
	cfg OrderServiceConfig,
) OrderService {
	if cfg.Currency == "" {
		cfg.Currency = CurrencyKES
	}
	return &OrderServiceImpl{
		orders:    orders,
		catalog:   catalog,
		gateway:   gateway,
		lifecycle: lifecycle,
		validator: v,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder prices the selection from the catalog, submits it to the
// gateway and stores the pending order. Nothing is persisted unless the
// gateway accepted the order, so a GatewayUnavailable failure can be retried
// as a whole.
func (s *OrderServiceImpl) CreateOrder(ctx context.Context, req *dto.CreatePaymentRequest) (*dto.CreatePaymentResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}

	plan, err := s.catalog.Price(ctx, req.Plan, req.Period)
	if err != nil {
		return nil, err
	}
	if !req.Amount.Equal(plan.Price) {
		logger.CtxWarn(ctx, "order amount does not match catalog",
			"plan", plan.Name, "period", plan.Period,
			"claimed", req.Amount.String(), "catalog", plan.Price.String())
		return nil, apperrors.ErrPriceMismatch.WithDetails(map[string]string{
			"plan":           plan.Name,
			"period":         plan.Period,
			"expected_price": plan.Price.StringFixed(2),
		})
	}

	ref, err := s.newMerchantReference(ctx)
	if err != nil {
		return nil, err
	}

	notificationID, err := s.gateway.EnsureNotificationChannel(ctx, s.cfg.IPNURL)
	if err != nil {
		return nil, gatewayError(err)
	}

	first, last := splitName(req.Name)
	amount, _ := plan.Price.Float64()
	resp, err := s.gateway.SubmitOrder(ctx, pesapal.OrderRequest{
		ID:             ref,
		Currency:       s.cfg.Currency,
		Amount:         amount,
		Description:    fmt.Sprintf("%s (%s)", plan.Name, plan.Period),
		CallbackURL:    s.cfg.CallbackURL,
		NotificationID: notificationID,
		BillingAddress: pesapal.BillingAddress{
			EmailAddress: req.Email,
			PhoneNumber:  req.Phone,
			CountryCode:  "KE",
			FirstName:    first,
			LastName:     last,
		},
	})
	if err != nil {
		logger.CtxWithError(ctx, "order submission failed", err, "merchant_reference", ref)
		return nil, gatewayError(err)
	}

	order := &models.PaymentOrder{
		MerchantReference: ref,
		TrackingID:        resp.OrderTrackingID,
		PlanName:          plan.Name,
		Period:            plan.Period,
		Amount:            plan.Price,
		Currency:          s.cfg.Currency,
		Holder: models.Holder{
			Name:  strings.TrimSpace(req.Name),
			Phone: req.Phone,
			Email: strings.ToLower(strings.TrimSpace(req.Email)),
		},
		Status:      models.PaymentStatusPending,
		RedirectURL: resp.RedirectURL,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		if errors.Is(err, repositories.ErrOrderDuplicate) {
			return nil, apperrors.ErrConflict(err, "payment", "Payment order already exists")
		}
		return nil, apperrors.DatabaseError(err)
	}

	logger.CtxInfo(ctx, "payment order created",
		"merchant_reference", ref, "order_tracking_id", order.TrackingID,
		"plan", plan.Name, "period", plan.Period)

	return &dto.CreatePaymentResponse{
		OrderTrackingID:   order.TrackingID,
		MerchantReference: ref,
		RedirectURL:       order.RedirectURL,
	}, nil
}

// GetOrderStatus polls the gateway for a non-terminal order, records what it
// saw and issues the ticket of a completed order. Repeated calls are safe:
// status writes are guarded and issuance is keyed on the order.
func (s *OrderServiceImpl) GetOrderStatus(ctx context.Context, trackingID string) (*dto.OrderStatusResponse, error) {
	order, err := s.findOrder(ctx, trackingID)
	if err != nil {
		return nil, err
	}

	if !order.Status.IsTerminal() {
		if err := s.refresh(ctx, order); err != nil {
			return nil, err
		}
		order, err = s.findOrder(ctx, trackingID)
		if err != nil {
			return nil, err
		}
	}

	resp := newOrderStatusResponse(order)
	if order.Status == models.PaymentStatusCompleted {
		ticket, err := s.lifecycle.IssueFromOrder(ctx, order)
		if err != nil {
			return nil, err
		}
		switch {
		case ticket != nil:
			resp.TicketID = ticket.ID
			resp.TicketState = string(ticket.State)
		case order.TicketID != nil:
			resp.TicketID = *order.TicketID
			resp.TicketState = string(models.TicketStateRemoved)
		}
	}
	return resp, nil
}

func (s *OrderServiceImpl) refresh(ctx context.Context, order *models.PaymentOrder) error {
	st, err := s.gateway.GetTransactionStatus(ctx, order.TrackingID)
	if err != nil {
		return gatewayError(err)
	}

	status := st.PaymentStatus()
	if status == models.PaymentStatusCompleted && !s.matchesOrder(order, st) {
		logger.CtxError(ctx, "completed payment does not match order",
			"order_tracking_id", order.TrackingID,
			"expected_amount", order.Amount.String(), "paid_amount", st.AmountDecimal().String(),
			"expected_currency", order.Currency, "paid_currency", st.Currency)
		status = models.PaymentStatusInvalid
	}

	observed := st.ObservedAt
	if observed.IsZero() {
		observed = s.now()
	}
	applied, err := s.orders.ApplyStatus(ctx, order.TrackingID, repositories.StatusUpdate{
		Status:           status,
		ObservedAt:       observed,
		ConfirmationCode: st.ConfirmationCode,
		PaymentMethod:    st.PaymentMethod,
		Payload:          st.Raw,
	})
	if err != nil {
		return apperrors.DatabaseError(err)
	}
	if applied && status != order.Status {
		logger.CtxInfo(ctx, "payment order status changed",
			"order_tracking_id", order.TrackingID, "from", order.Status, "to", status)
	}
	return nil
}

func (s *OrderServiceImpl) matchesOrder(order *models.PaymentOrder, st *pesapal.TransactionStatus) bool {
	if st.Currency != "" && !strings.EqualFold(st.Currency, order.Currency) {
		return false
	}
	return st.AmountDecimal().Round(2).Equal(order.Amount.Round(2))
}

// HandleIPN acknowledges a gateway notification after re-reading the order
// status from the gateway. The notification itself is never trusted and may
// be replayed any number of times.
func (s *OrderServiceImpl) HandleIPN(ctx context.Context, n pesapal.IPNNotification) pesapal.IPNAck {
	ack := pesapal.IPNAck{
		OrderNotificationType:  n.OrderNotificationType,
		OrderTrackingID:        n.OrderTrackingID,
		OrderMerchantReference: n.OrderMerchantReference,
		Status:                 500,
	}
	if n.OrderTrackingID == "" {
		logger.CtxWarn(ctx, "ipn without tracking id", "merchant_reference", n.OrderMerchantReference)
		return ack
	}

	order, err := s.findOrder(ctx, n.OrderTrackingID)
	if err != nil {
		logger.CtxWarn(ctx, "ipn for unknown order", "order_tracking_id", n.OrderTrackingID, "error", err)
		return ack
	}
	if n.OrderMerchantReference != "" && n.OrderMerchantReference != order.MerchantReference {
		logger.CtxWarn(ctx, "ipn merchant reference mismatch",
			"order_tracking_id", n.OrderTrackingID,
			"got", n.OrderMerchantReference, "want", order.MerchantReference)
		return ack
	}

	if _, err := s.GetOrderStatus(ctx, n.OrderTrackingID); err != nil {
		logger.CtxWithError(ctx, "ipn status refresh failed", err, "order_tracking_id", n.OrderTrackingID)
		return ack
	}
	ack.Status = 200
	return ack
}

// ReconcilePending resolves orders whose payer never came back from the
// gateway.
func (s *OrderServiceImpl) ReconcilePending(ctx context.Context, minAge time.Duration, limit int) (dto.ReconcileResult, error) {
	var res dto.ReconcileResult

	orders, err := s.orders.FindStalePending(ctx, s.now().Add(-minAge), limit)
	if err != nil {
		return res, apperrors.DatabaseError(err)
	}

	for _, o := range orders {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Checked++
		st, err := s.GetOrderStatus(ctx, o.TrackingID)
		if err != nil {
			res.Failed++
			logger.CtxWarn(ctx, "reconcile failed", "order_tracking_id", o.TrackingID, "error", err)
			continue
		}
		if models.PaymentStatus(st.Status).IsTerminal() {
			res.Resolved++
		}
	}
	return res, nil
}

func (s *OrderServiceImpl) findOrder(ctx context.Context, trackingID string) (*models.PaymentOrder, error) {
	order, err := s.orders.FindByTrackingID(ctx, trackingID)
	if err != nil {
		if errors.Is(err, repositories.ErrOrderNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, apperrors.DatabaseError(err)
	}
	return order, nil
}

// newMerchantReference returns LP<yymmddhhmmss><8 hex>, re-drawn on the
// unlikely collision.
func (s *OrderServiceImpl) newMerchantReference(ctx context.Context) (string, error) {
	for i := 0; i < merchantRefAttempts; i++ {
		buf := make([]byte, 4)
		if _, err := rand.Read(buf); err != nil {
			return "", apperrors.InternalError(err)
		}
		ref := merchantRefPrefix + s.now().Format("060102150405") + strings.ToUpper(hex.EncodeToString(buf))

		exists, err := s.orders.ExistsByMerchantReference(ctx, ref)
		if err != nil {
			return "", apperrors.DatabaseError(err)
		}
		if !exists {
			return ref, nil
		}
	}
	return "", apperrors.InternalError(errors.New("could not allocate a unique merchant reference"))
}

func newOrderStatusResponse(o *models.PaymentOrder) *dto.OrderStatusResponse {
	return &dto.OrderStatusResponse{
		OrderTrackingID:   o.TrackingID,
		MerchantReference: o.MerchantReference,
		Status:            string(o.Status),
		Plan:              o.PlanName,
		Period:            o.Period,
		Amount:            o.Amount,
		Currency:          o.Currency,
		ConfirmationCode:  o.ConfirmationCode,
		CompletedAt:       o.CompletedAt,
	}
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
