package services

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"launchpad_backend/internal/config"
	"launchpad_backend/internal/feed"
	"launchpad_backend/internal/gateway/pesapal"
	"launchpad_backend/internal/logger"
	"launchpad_backend/internal/models"
	"launchpad_backend/internal/repositories"
	"launchpad_backend/internal/testutil"
	"launchpad_backend/internal/validator"
)

func TestMain(m *testing.M) {
	logger.Init("test")
	os.Exit(m.Run())
}

// fakeGateway records calls and answers from its fields.
type fakeGateway struct {
	mu sync.Mutex

	ensureCalls int32
	submitCalls int32
	statusCalls int32

	submitErr error
	statusErr error
	nextID    int
	statuses  map[string]*pesapal.TransactionStatus
	submitted []pesapal.OrderRequest
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{statuses: make(map[string]*pesapal.TransactionStatus)}
}

func (g *fakeGateway) EnsureNotificationChannel(ctx context.Context, ipnURL string) (string, error) {
	atomic.AddInt32(&g.ensureCalls, 1)
	return "ipn-1", nil
}

func (g *fakeGateway) SubmitOrder(ctx context.Context, req pesapal.OrderRequest) (*pesapal.OrderResponse, error) {
	atomic.AddInt32(&g.submitCalls, 1)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.submitErr != nil {
		return nil, g.submitErr
	}
	g.nextID++
	g.submitted = append(g.submitted, req)
	id := "trk-" + string(rune('a'+g.nextID-1))
	return &pesapal.OrderResponse{
		OrderTrackingID:   id,
		MerchantReference: req.ID,
		RedirectURL:       "https://pay.example/redirect/" + id,
		Status:            "200",
	}, nil
}

func (g *fakeGateway) GetTransactionStatus(ctx context.Context, trackingID string) (*pesapal.TransactionStatus, error) {
	atomic.AddInt32(&g.statusCalls, 1)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	st, ok := g.statuses[trackingID]
	if !ok {
		return &pesapal.TransactionStatus{StatusCode: 0, ObservedAt: time.Now().UTC()}, nil
	}
	cp := *st
	cp.ObservedAt = time.Now().UTC()
	return &cp, nil
}

func (g *fakeGateway) setStatus(trackingID string, code int, amount float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	desc := map[int]string{0: "INVALID", 1: "COMPLETED", 2: "FAILED", 3: "REVERSED"}[code]
	g.statuses[trackingID] = &pesapal.TransactionStatus{
		StatusCode:               code,
		PaymentStatusDescription: desc,
		Amount:                   amount,
		Currency:                 "KES",
		ConfirmationCode:         "QK12ABC345",
		PaymentMethod:            "MpesaKE",
		Raw:                      []byte(`{"status_code":1}`),
	}
}

// fakeDeliverer counts deliveries and fails while fail is set.
type fakeDeliverer struct {
	calls int32
	fail  atomic.Bool
}

func (d *fakeDeliverer) Deliver(ctx context.Context, t *models.Ticket) error {
	atomic.AddInt32(&d.calls, 1)
	if d.fail.Load() {
		return errors.New("smtp: connection refused")
	}
	return nil
}

type testEnv struct {
	tickets     repositories.TicketRepository
	orders      repositories.PaymentOrderRepository
	subscribers repositories.SubscriberRepository
	catalog     CatalogService
	gateway     *fakeGateway
	deliverer   *fakeDeliverer
	bus         *feed.LocalBus
	lifecycle   TicketLifecycle
	orderSvc    OrderService
	manual      ManualTicketService
	verifier    VerifierService
	subSvc      SubscriberService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	v := validator.New()

	env := &testEnv{
		tickets:     repositories.NewTicketRepository(db),
		orders:      repositories.NewPaymentOrderRepository(db),
		subscribers: repositories.NewSubscriberRepository(db),
		catalog:     NewCatalogService(repositories.NewCatalogRepository(db)),
		gateway:     newFakeGateway(),
		deliverer:   &fakeDeliverer{},
		bus:         feed.NewLocalBus(),
	}
	require.NoError(t, env.catalog.Seed(context.Background(), []config.PlanPrice{
		{Plan: "Basic", Period: "monthly", Price: "999"},
		{Plan: "Pro", Period: "monthly", Price: "2099"},
		{Plan: "Pro", Period: "annual", Price: "20990"},
	}))

	env.lifecycle = NewTicketLifecycle(env.tickets, env.deliverer, env.bus)
	env.orderSvc = NewOrderService(env.orders, env.catalog, env.gateway, env.lifecycle, v, OrderServiceConfig{
		IPNURL:      "https://launchpad.example/api/payments/ipn",
		CallbackURL: "https://launchpad.example/payment/return",
	})
	env.manual = NewManualTicketService(env.tickets, env.catalog, env.lifecycle, v, 30*24*time.Hour)
	env.verifier = NewVerifierService(env.lifecycle, "https://launchpad.example/verify")
	env.subSvc = NewSubscriberService(env.subscribers, env.bus, v)
	return env
}

func kes(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
