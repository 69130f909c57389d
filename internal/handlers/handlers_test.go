package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad_backend/internal/auth"
	"launchpad_backend/internal/config"
	"launchpad_backend/internal/delivery"
	"launchpad_backend/internal/feed"
	"launchpad_backend/internal/gateway/pesapal"
	"launchpad_backend/internal/logger"
	"launchpad_backend/internal/models"
	"launchpad_backend/internal/repositories"
	"launchpad_backend/internal/services"
	"launchpad_backend/internal/testutil"
	"launchpad_backend/internal/validator"
)

func TestMain(m *testing.M) {
	logger.Init("test")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// stubGateway accepts every order and reports it pending.
type stubGateway struct {
	submits int
}

func (g *stubGateway) EnsureNotificationChannel(context.Context, string) (string, error) {
	return "ipn-1", nil
}

func (g *stubGateway) SubmitOrder(_ context.Context, req pesapal.OrderRequest) (*pesapal.OrderResponse, error) {
	g.submits++
	return &pesapal.OrderResponse{
		OrderTrackingID:   "trk-1",
		MerchantReference: req.ID,
		RedirectURL:       "https://pay.example/r/trk-1",
		Status:            "200",
	}, nil
}

func (g *stubGateway) GetTransactionStatus(context.Context, string) (*pesapal.TransactionStatus, error) {
	return &pesapal.TransactionStatus{ObservedAt: time.Now().UTC()}, nil
}

type apiEnv struct {
	router  *gin.Engine
	tokens  *auth.TokenIssuer
	gateway *stubGateway
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	db := testutil.NewDB(t)
	v := validator.New()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	gw := &stubGateway{}

	ticketRepo := repositories.NewTicketRepository(db)
	catalog := services.NewCatalogService(repositories.NewCatalogRepository(db))
	require.NoError(t, catalog.Seed(context.Background(), []config.PlanPrice{
		{Plan: "Pro", Period: "monthly", Price: "2099"},
	}))

	bus := feed.NewLocalBus()
	lifecycle := services.NewTicketLifecycle(ticketRepo, delivery.LogDeliverer{}, bus)
	orders := services.NewOrderService(repositories.NewPaymentOrderRepository(db), catalog, gw, lifecycle, v, services.OrderServiceConfig{
		IPNURL:      "https://launchpad.example/api/payments/ipn",
		CallbackURL: "https://launchpad.example/return",
	})
	subscribers := services.NewSubscriberService(repositories.NewSubscriberRepository(db), bus, v)
	console := services.NewModerationConsole(ticketRepo, subscribers, lifecycle, bus)

	base := NewBaseHandler(v, tokens)
	payment := NewPaymentHandler(base, orders, catalog)
	ticket := NewTicketHandler(base, services.NewManualTicketService(ticketRepo, catalog, lifecycle, v, 24*time.Hour), services.NewVerifierService(lifecycle, "https://launchpad.example/verify"))

	router := gin.New()
	api := router.Group("/api/v1")
	payment.RegisterRoutes(api)
	ticket.RegisterRoutes(api)
	NewAdminHandler(base, console, orders).RegisterRoutes(api)
	NewSubscriberHandler(base, subscribers).RegisterRoutes(api)

	legacy := router.Group("/api")
	payment.RegisterLegacyRoutes(legacy)
	ticket.RegisterLegacyRoutes(legacy)

	return &apiEnv{router: router, tokens: tokens, gateway: gw}
}

func (e *apiEnv) token(t *testing.T, role models.AdminRole) string {
	t.Helper()
	tok, err := e.tokens.Issue("staff-"+string(role), role)
	require.NoError(t, err)
	return tok
}

func (e *apiEnv) do(t *testing.T, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "image/png" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func manualBody(email string) map[string]string {
	return map[string]string{
		"plan":                 "Pro",
		"period":               "monthly",
		"name":                 "Amina Otieno",
		"email":                email,
		"confirmation_message": "QK12ABC345 Confirmed. Ksh2,099.00 sent to LAUNCHPAD",
	}
}

func TestCreatePayment_PriceMismatch(t *testing.T) {
	env := newAPIEnv(t)

	w, body := env.do(t, http.MethodPost, "/api/create-payment", map[string]string{
		"plan": "Pro", "period": "monthly", "amount": "1",
		"name": "Amina Otieno", "email": "a@x.com",
	}, "")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Zero(t, env.gateway.submits)
}

func TestCreatePayment_OK(t *testing.T) {
	env := newAPIEnv(t)

	w, body := env.do(t, http.MethodPost, "/api/v1/payments", map[string]string{
		"plan": "Pro", "period": "monthly", "amount": "2099",
		"name": "Amina Otieno", "email": "a@x.com", "phone": "0712345678",
	}, "")

	require.Equal(t, http.StatusCreated, w.Code, body)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "trk-1", data["order_tracking_id"])
	assert.Equal(t, "https://pay.example/r/trk-1", data["redirect_url"])
}

func TestCreatePayment_InvalidBody(t *testing.T) {
	env := newAPIEnv(t)

	w, body := env.do(t, http.MethodPost, "/api/create-payment", map[string]string{
		"plan": "Pro", "period": "weekly", "amount": "2099", "email": "nope",
	}, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestIPN_UnknownOrderAcksWithError(t *testing.T) {
	env := newAPIEnv(t)

	w, body := env.do(t, http.MethodGet,
		"/api/payments/ipn?OrderTrackingId=missing&OrderMerchantReference=LP1&OrderNotificationType=IPNCHANGE", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 500, body["status"])
	assert.Equal(t, "missing", body["orderTrackingId"])
}

func TestVerify_UnknownTicket(t *testing.T) {
	env := newAPIEnv(t)

	w, body := env.do(t, http.MethodGet, "/api/v1/tickets/00000000-0000-0000-0000-000000000000/verify", nil, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestAdmin_RequiresToken(t *testing.T) {
	env := newAPIEnv(t)

	w, _ := env.do(t, http.MethodGet, "/api/v1/admin/tickets/pending", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = env.do(t, http.MethodGet, "/api/v1/admin/tickets/pending", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdmin_DoorStaffCannotModerate(t *testing.T) {
	env := newAPIEnv(t)

	w, _ := env.do(t, http.MethodPost, "/api/v1/admin/tickets/any/approve", nil, env.token(t, models.AdminRoleDoor))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestManualTicket_ApproveVerifyCheckIn(t *testing.T) {
	env := newAPIEnv(t)
	admin := env.token(t, models.AdminRoleAdmin)
	door := env.token(t, models.AdminRoleDoor)

	w, body := env.do(t, http.MethodPost, "/api/tickets/manual", manualBody("amina@example.com"), "")
	require.Equal(t, http.StatusCreated, w.Code, body)
	ticket := body["data"].(map[string]interface{})
	id := ticket["id"].(string)
	assert.Equal(t, string(models.TicketStatePendingReview), ticket["state"])

	w, _ = env.do(t, http.MethodPost, "/api/v1/tickets/manual", manualBody("amina@example.com"), "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w, body = env.do(t, http.MethodGet, "/api/v1/tickets/"+id+"/verify", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(models.TicketStatePendingReview), body["data"].(map[string]interface{})["state"])

	w, body = env.do(t, http.MethodPost, "/api/v1/admin/tickets/"+id+"/approve", nil, admin)
	require.Equal(t, http.StatusOK, w.Code, body)
	assert.Equal(t, string(models.TicketStateIssued), body["data"].(map[string]interface{})["state"])

	w, body = env.do(t, http.MethodPost, "/api/v1/admin/tickets/"+id+"/reject", map[string]string{"reason": "late"}, admin)
	assert.Equal(t, http.StatusConflict, w.Code, body)

	w, body = env.do(t, http.MethodGet, "/api/v1/tickets/verify?ticket="+id+"&name=amina+otieno&plan=Pro", nil, "")
	require.Equal(t, http.StatusOK, w.Code, body)
	view := body["data"].(map[string]interface{})
	assert.Equal(t, string(models.TicketStateIssued), view["state"])
	assert.Equal(t, true, view["claims_match"])

	w, _ = env.do(t, http.MethodPost, "/api/v1/tickets/"+id+"/check-in", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body = env.do(t, http.MethodPost, "/api/v1/tickets/"+id+"/check-in", nil, door)
	require.Equal(t, http.StatusOK, w.Code, body)

	w, _ = env.do(t, http.MethodPost, "/api/v1/tickets/"+id+"/check-in", nil, door)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, body = env.do(t, http.MethodGet, "/api/v1/admin/tickets/"+id+"/audit", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["data"], 4)
}

func TestQR_ReturnsPNG(t *testing.T) {
	env := newAPIEnv(t)

	_, body := env.do(t, http.MethodPost, "/api/tickets/manual", manualBody("qr@example.com"), "")
	id := body["data"].(map[string]interface{})["id"].(string)
	env.do(t, http.MethodPost, "/api/v1/admin/tickets/"+id+"/approve", nil, env.token(t, models.AdminRoleAdmin))

	w, _ := env.do(t, http.MethodGet, "/api/v1/tickets/"+id+"/qr", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}

func TestAdmin_ReconcilePending(t *testing.T) {
	env := newAPIEnv(t)
	admin := env.token(t, models.AdminRoleAdmin)

	w, body := env.do(t, http.MethodPost, "/api/v1/admin/orders/reconcile?limit=10", nil, admin)
	require.Equal(t, http.StatusOK, w.Code, body)
	assert.Contains(t, body["data"], "checked")

	w, _ = env.do(t, http.MethodPost, "/api/v1/admin/orders/reconcile?limit=0", nil, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, http.MethodPost, "/api/v1/admin/orders/reconcile", nil, env.token(t, models.AdminRoleDoor))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
