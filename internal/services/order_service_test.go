package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad_backend/internal/gateway/pesapal"
	"launchpad_backend/internal/models"
	"launchpad_backend/internal/repositories"
	"launchpad_backend/internal/services/dto"
	"launchpad_backend/pkg/apperrors"
)

func proMonthly(amount string) *dto.CreatePaymentRequest {
	return &dto.CreatePaymentRequest{
		Plan:   "Pro",
		Amount: kes(amount),
		Period: "monthly",
		Name:   "Amina Otieno",
		Email:  "a@x.com",
		Phone:  "0712345678",
	}
}

func TestCreateOrder_PriceMismatchMakesNoGatewayCall(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orderSvc.CreateOrder(context.Background(), proMonthly("1"))

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodePriceMismatch))
	assert.Zero(t, env.gateway.ensureCalls)
	assert.Zero(t, env.gateway.submitCalls)
}

func TestCreateOrder_CatalogPrice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.orderSvc.CreateOrder(ctx, proMonthly("2099"))
	require.NoError(t, err)

	assert.NotEmpty(t, resp.OrderTrackingID)
	assert.NotEmpty(t, resp.RedirectURL)
	assert.Regexp(t, `^LP\d{12}[0-9A-F]{8}$`, resp.MerchantReference)

	order, err := env.orders.FindByTrackingID(ctx, resp.OrderTrackingID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, order.Status)
	assert.Equal(t, resp.MerchantReference, order.MerchantReference)
	assert.True(t, order.Amount.Equal(kes("2099")))

	require.Len(t, env.gateway.submitted, 1)
	sent := env.gateway.submitted[0]
	assert.Equal(t, "KES", sent.Currency)
	assert.Equal(t, 2099.0, sent.Amount)
	assert.Equal(t, "ipn-1", sent.NotificationID)
	assert.Equal(t, "Amina", sent.BillingAddress.FirstName)
	assert.Equal(t, "Otieno", sent.BillingAddress.LastName)
}

func TestCreateOrder_UnknownPlan(t *testing.T) {
	env := newTestEnv(t)

	req := proMonthly("2099")
	req.Period = "quarterly"
	_, err := env.orderSvc.CreateOrder(context.Background(), req)

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	assert.Zero(t, env.gateway.submitCalls)
}

func TestCreateOrder_InvalidHolder(t *testing.T) {
	env := newTestEnv(t)

	req := proMonthly("2099")
	req.Email = "not-an-email"
	_, err := env.orderSvc.CreateOrder(context.Background(), req)

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	assert.Zero(t, env.gateway.submitCalls)
}

func TestCreateOrder_GatewayErrorsMapped(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code apperrors.ErrorCode
	}{
		{"unavailable", pesapal.ErrUnavailable, apperrors.CodeGatewayUnavailable},
		{"auth", pesapal.ErrAuth, apperrors.CodeGatewayAuthFailed},
		{"rejected", &pesapal.RejectedError{Code: "invalid_amount", Message: "Amount exceeds limit"}, apperrors.CodeGatewayRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.gateway.submitErr = tc.err

			_, err := env.orderSvc.CreateOrder(context.Background(), proMonthly("2099"))

			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tc.code))
			assert.Equal(t, tc.code == apperrors.CodeGatewayUnavailable, apperrors.IsRetryable(err))
		})
	}
}

func TestCreateOrder_RejectionMessageVerbatim(t *testing.T) {
	env := newTestEnv(t)
	env.gateway.submitErr = &pesapal.RejectedError{Code: "x", Message: "Currency not supported"}

	_, err := env.orderSvc.CreateOrder(context.Background(), proMonthly("2099"))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Currency not supported", appErr.Message)
}

func TestCreateOrder_MerchantReferencesAreUnique(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		resp, err := env.orderSvc.CreateOrder(ctx, proMonthly("2099"))
		require.NoError(t, err)
		assert.False(t, seen[resp.MerchantReference], "duplicate %s", resp.MerchantReference)
		seen[resp.MerchantReference] = true
	}
}

func TestOrders_SameMerchantReferenceStoredOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.orderSvc.CreateOrder(ctx, proMonthly("2099"))
	require.NoError(t, err)
	first, err := env.orders.FindByTrackingID(ctx, resp.OrderTrackingID)
	require.NoError(t, err)

	again := &models.PaymentOrder{
		MerchantReference: resp.MerchantReference,
		TrackingID:        "trk-resubmitted",
		PlanName:          first.PlanName,
		Period:            first.Period,
		Amount:            first.Amount,
		Currency:          first.Currency,
		Holder:            first.Holder,
		Status:            models.PaymentStatusPending,
	}
	err = env.orders.Create(ctx, again)
	assert.ErrorIs(t, err, repositories.ErrOrderDuplicate)

	stored, err := env.orders.FindByMerchantReference(ctx, resp.MerchantReference)
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	_, err = env.orders.FindByTrackingID(ctx, "trk-resubmitted")
	assert.ErrorIs(t, err, repositories.ErrOrderNotFound)
}

func TestApplyStatus_OlderObservationIgnored(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.orderSvc.CreateOrder(ctx, proMonthly("2099"))
	require.NoError(t, err)

	newer := time.Now().UTC().Add(2 * time.Minute)
	older := newer.Add(-time.Minute)

	changed, err := env.orders.ApplyStatus(ctx, resp.OrderTrackingID, repositories.StatusUpdate{
		Status:     models.PaymentStatusInvalid,
		ObservedAt: newer,
	})
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = env.orders.ApplyStatus(ctx, resp.OrderTrackingID, repositories.StatusUpdate{
		Status:           models.PaymentStatusCompleted,
		ObservedAt:       older,
		ConfirmationCode: "LATE123",
	})
	require.NoError(t, err)
	assert.False(t, changed)

	order, err := env.orders.FindByTrackingID(ctx, resp.OrderTrackingID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusInvalid, order.Status)
	assert.Empty(t, order.ConfirmationCode)
	require.NotNil(t, order.StatusObservedAt)
	assert.WithinDuration(t, newer, *order.StatusObservedAt, time.Millisecond)
}

func TestGetOrderStatus_CompletedIssuesOneTicket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.orderSvc.CreateOrder(ctx, proMonthly("2099"))
	require.NoError(t, err)
	env.gateway.setStatus(resp.OrderTrackingID, 1, 2099)

	var wg sync.WaitGroup
	ids := make([]string, 5)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st, err := env.orderSvc.GetOrderStatus(ctx, resp.OrderTrackingID)
			if assert.NoError(t, err) {
				ids[i] = st.TicketID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	ticket, err := env.tickets.FindByGatewayTrackingID(ctx, resp.OrderTrackingID)
	require.NoError(t, err)
	assert.Equal(t, ids[0], ticket.ID)
	assert.Equal(t, models.TicketStateIssued, ticket.State)
	assert.Equal(t, models.PaymentPathGateway, ticket.Path)
	assert.EqualValues(t, 1, env.deliverer.calls)

	rows, err := env.lifecycle.History(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.TicketState(""), rows[0].FromState)
	assert.Equal(t, models.TicketStateCreated, rows[0].ToState)
	assert.Equal(t, models.TicketStateIssued, rows[1].ToState)

	// terminal orders are no longer polled
	before := env.gateway.statusCalls
	st, err := env.orderSvc.GetOrderStatus(ctx, resp.OrderTrackingID)
	require.NoError(t, err)
	assert.Equal(t, "completed", st.Status)
	assert.Equal(t, before, env.gateway.statusCalls)
}

func TestGetOrderStatus_TerminalNotOverwritten(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.orderSvc.CreateOrder(ctx, proMonthly("2099"))
	require.NoError(t, err)

	env.gateway.setStatus(resp.OrderTrackingID, 2, 2099)
	st, err := env.orderSvc.GetOrderStatus(ctx, resp.OrderTrackingID)
	require.NoError(t, err)
	assert.Equal(t, "failed", st.Status)
	assert.Empty(t, st.TicketID)

	env.gateway.setStatus(resp.OrderTrackingID, 1, 2099)
	st, err = env.orderSvc.GetOrderStatus(ctx, resp.OrderTrackingID)
	require.NoError(t, err)
	assert.Equal(t, "failed", st.Status)

	_, err = env.tickets.FindByGatewayTrackingID(ctx, resp.OrderTrackingID)
	assert.Error(t, err)
}

func TestGetOrderStatus_AmountMismatchIsInvalid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.orderSvc.CreateOrder(ctx, proMonthly("2099"))
	require.NoError(t, err)
	env.gateway.setStatus(resp.OrderTrackingID, 1, 10)

	st, err := env.orderSvc.GetOrderStatus(ctx, resp.OrderTrackingID)
	require.NoError(t, err)
	assert.Equal(t, "invalid", st.Status)
	assert.Empty(t, st.TicketID)
}

func TestGetOrderStatus_DeliveryFailureKeepsTicketCreated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.deliverer.fail.Store(true)

	resp, err := env.orderSvc.CreateOrder(ctx, proMonthly("2099"))
	require.NoError(t, err)
	env.gateway.setStatus(resp.OrderTrackingID, 1, 2099)

	st, err := env.orderSvc.GetOrderStatus(ctx, resp.OrderTrackingID)
	require.NoError(t, err)
	assert.Equal(t, string(models.TicketStateCreated), st.TicketState)

	env.deliverer.fail.Store(false)
	ticket, err := env.lifecycle.ResendDelivery(ctx, st.TicketID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.TicketStateIssued, ticket.State)
}

func TestGetOrderStatus_RemovedTicketNotReissued(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.orderSvc.CreateOrder(ctx, proMonthly("2099"))
	require.NoError(t, err)
	env.gateway.setStatus(resp.OrderTrackingID, 1, 2099)

	st, err := env.orderSvc.GetOrderStatus(ctx, resp.OrderTrackingID)
	require.NoError(t, err)
	require.NotEmpty(t, st.TicketID)
	require.NoError(t, env.lifecycle.Remove(ctx, st.TicketID, "admin-1"))

	// holder reloads the callback page
	again, err := env.orderSvc.GetOrderStatus(ctx, resp.OrderTrackingID)
	require.NoError(t, err)
	assert.Equal(t, st.TicketID, again.TicketID)
	assert.Equal(t, string(models.TicketStateRemoved), again.TicketState)

	// gateway replays the notification
	ack := env.orderSvc.HandleIPN(ctx, pesapal.IPNNotification{
		OrderTrackingID:        resp.OrderTrackingID,
		OrderMerchantReference: resp.MerchantReference,
	})
	assert.Equal(t, 200, ack.Status)

	_, err = env.tickets.FindByGatewayTrackingID(ctx, resp.OrderTrackingID)
	assert.ErrorIs(t, err, repositories.ErrTicketNotFound)
	assert.EqualValues(t, 1, env.deliverer.calls)

	order, err := env.orders.FindByTrackingID(ctx, resp.OrderTrackingID)
	require.NoError(t, err)
	require.NotNil(t, order.TicketID)
	assert.Equal(t, st.TicketID, *order.TicketID)
	assert.NotNil(t, order.TicketIssuedAt)
}

func TestIssueFromOrder_StaleOrderAfterRemoval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.orderSvc.CreateOrder(ctx, proMonthly("2099"))
	require.NoError(t, err)
	env.gateway.setStatus(resp.OrderTrackingID, 1, 2099)

	// a copy of the order read before it was stamped as issued
	_, err = env.orderSvc.GetOrderStatus(ctx, resp.OrderTrackingID)
	require.NoError(t, err)
	stale, err := env.orders.FindByTrackingID(ctx, resp.OrderTrackingID)
	require.NoError(t, err)
	require.NotNil(t, stale.TicketID)
	require.NoError(t, env.lifecycle.Remove(ctx, *stale.TicketID, "admin-1"))
	stale.TicketID = nil
	stale.TicketIssuedAt = nil

	ticket, err := env.lifecycle.IssueFromOrder(ctx, stale)
	require.NoError(t, err)
	assert.Nil(t, ticket)
	_, err = env.tickets.FindByGatewayTrackingID(ctx, resp.OrderTrackingID)
	assert.ErrorIs(t, err, repositories.ErrTicketNotFound)
	assert.EqualValues(t, 1, env.deliverer.calls)
}

func TestGetOrderStatus_UnknownOrder(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.orderSvc.GetOrderStatus(context.Background(), "nope")

	assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
}

func TestHandleIPN_ReplaySafe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.orderSvc.CreateOrder(ctx, proMonthly("2099"))
	require.NoError(t, err)
	env.gateway.setStatus(resp.OrderTrackingID, 1, 2099)

	n := pesapal.IPNNotification{
		OrderTrackingID:        resp.OrderTrackingID,
		OrderMerchantReference: resp.MerchantReference,
		OrderNotificationType:  "IPNCHANGE",
	}
	for i := 0; i < 3; i++ {
		ack := env.orderSvc.HandleIPN(ctx, n)
		assert.Equal(t, 200, ack.Status)
		assert.Equal(t, resp.OrderTrackingID, ack.OrderTrackingID)
		assert.Equal(t, "IPNCHANGE", ack.OrderNotificationType)
	}
	assert.EqualValues(t, 1, env.deliverer.calls)
}

func TestHandleIPN_MerchantReferenceMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.orderSvc.CreateOrder(ctx, proMonthly("2099"))
	require.NoError(t, err)

	ack := env.orderSvc.HandleIPN(ctx, pesapal.IPNNotification{
		OrderTrackingID:        resp.OrderTrackingID,
		OrderMerchantReference: "LP-forged",
	})
	assert.Equal(t, 500, ack.Status)
	assert.Zero(t, env.gateway.statusCalls)
}

func TestReconcilePending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, err := env.orderSvc.CreateOrder(ctx, proMonthly("2099"))
	require.NoError(t, err)
	b, err := env.orderSvc.CreateOrder(ctx, proMonthly("2099"))
	require.NoError(t, err)
	env.gateway.setStatus(a.OrderTrackingID, 1, 2099)
	_ = b

	res, err := env.orderSvc.ReconcilePending(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Checked)
	assert.Equal(t, 1, res.Resolved)
	assert.Zero(t, res.Failed)
}
