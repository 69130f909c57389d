package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"launchpad_backend/internal/gateway/pesapal"
	"launchpad_backend/internal/logger"
	"launchpad_backend/internal/services"
	"launchpad_backend/internal/services/dto"
	"launchpad_backend/pkg/apperrors"
)

type PaymentHandler struct {
	*BaseHandler
	orderService   services.OrderService
	catalogService services.CatalogService
}

func NewPaymentHandler(base *BaseHandler, orderService services.OrderService, catalogService services.CatalogService) *PaymentHandler {
	return &PaymentHandler{
		BaseHandler:    base,
		orderService:   orderService,
		catalogService: catalogService,
	}
}

// RegisterRoutes регистрирует маршруты /api/v1
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/plans", h.ListPlans)

	payments := rg.Group("/payments")
	{
		payments.POST("", h.CreatePayment)
		payments.GET("/:trackingId/status", h.GetStatus)
	}
}

// RegisterLegacyRoutes keeps the paths the site and the gateway already use.
func (h *PaymentHandler) RegisterLegacyRoutes(api *gin.RouterGroup) {
	api.POST("/create-payment", h.CreatePayment)

	payments := api.Group("/payments")
	{
		payments.GET("/ipn", h.IPN)
		payments.POST("/ipn", h.IPN)
		payments.GET("/callback", h.Callback)
	}
}

// ListPlans godoc
// @Summary Каталог планов
// @Tags payments
// @Produce json
// @Success 200 {object} SuccessResponse{data=[]dto.PlanResponse}
// @Router /api/v1/plans [get]
func (h *PaymentHandler) ListPlans(c *gin.Context) {
	plans, err := h.catalogService.ListPlans(c.Request.Context())
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, http.StatusOK, plans, "")
}

// CreatePayment godoc
// @Summary Создать платеж через шлюз
// @Description Сумма сверяется с каталогом; при расхождении шлюз не вызывается.
// @Tags payments
// @Accept json
// @Produce json
// @Param request body dto.CreatePaymentRequest true "План и данные плательщика"
// @Success 201 {object} SuccessResponse{data=dto.CreatePaymentResponse}
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 422 {object} apperrors.ErrorResponse "Сумма не совпадает с каталогом"
// @Failure 502 {object} apperrors.ErrorResponse "Шлюз отклонил заказ"
// @Failure 503 {object} apperrors.ErrorResponse "Шлюз недоступен, можно повторить"
// @Router /api/create-payment [post]
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req dto.CreatePaymentRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.orderService.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, http.StatusCreated, resp, "Redirect the payer to redirect_url")
}

// GetStatus godoc
// @Summary Статус заказа
// @Tags payments
// @Produce json
// @Param trackingId path string true "order_tracking_id"
// @Success 200 {object} SuccessResponse{data=dto.OrderStatusResponse}
// @Failure 404 {object} apperrors.ErrorResponse
// @Router /api/v1/payments/{trackingId}/status [get]
func (h *PaymentHandler) GetStatus(c *gin.Context) {
	status, err := h.orderService.GetOrderStatus(c.Request.Context(), c.Param("trackingId"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, http.StatusOK, status, "")
}

// Callback godoc
// @Summary Возврат плательщика со страницы шлюза
// @Tags payments
// @Produce json
// @Param OrderTrackingId query string true "order_tracking_id"
// @Param OrderMerchantReference query string false "merchant reference"
// @Success 200 {object} SuccessResponse{data=dto.OrderStatusResponse}
// @Router /api/payments/callback [get]
func (h *PaymentHandler) Callback(c *gin.Context) {
	trackingID := c.Query("OrderTrackingId")
	if trackingID == "" {
		apperrors.HandleError(c, apperrors.NewBadRequestError("OrderTrackingId is required"))
		return
	}

	status, err := h.orderService.GetOrderStatus(c.Request.Context(), trackingID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, http.StatusOK, status, "")
}

// IPN godoc
// @Summary Уведомление шлюза (IPN)
// @Description Повторная доставка безопасна: статус перечитывается у шлюза.
// @Tags payments
// @Accept json
// @Produce json
// @Param OrderTrackingId query string false "order_tracking_id"
// @Param OrderMerchantReference query string false "merchant reference"
// @Param OrderNotificationType query string false "IPNCHANGE"
// @Success 200 {object} pesapal.IPNAck
// @Router /api/payments/ipn [get]
// @Router /api/payments/ipn [post]
func (h *PaymentHandler) IPN(c *gin.Context) {
	var n pesapal.IPNNotification
	var err error
	if c.Request.Method == http.MethodPost && c.ContentType() == gin.MIMEJSON {
		err = c.ShouldBindJSON(&n)
	} else {
		err = c.ShouldBindQuery(&n)
	}
	if err != nil {
		logger.CtxWithError(c.Request.Context(), "malformed ipn", err)
	}

	ack := h.orderService.HandleIPN(c.Request.Context(), n)
	// the gateway reads the status field, not the HTTP code
	c.JSON(http.StatusOK, ack)
}
