package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"launchpad_backend/internal/auth"
	"launchpad_backend/internal/middleware"
	"launchpad_backend/internal/services"
	"launchpad_backend/internal/services/dto"
	"launchpad_backend/pkg/apperrors"
)

// AdminHandler is the HTTP face of the moderation console.
type AdminHandler struct {
	*BaseHandler
	console      *services.ModerationConsole
	orderService services.OrderService
}

func NewAdminHandler(base *BaseHandler, console *services.ModerationConsole, orderService services.OrderService) *AdminHandler {
	return &AdminHandler{
		BaseHandler:  base,
		console:      console,
		orderService: orderService,
	}
}

func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(h.RequireAuth())

	tickets := admin.Group("/tickets")
	tickets.Use(middleware.RequirePermission(auth.PermTicketsModerate))
	{
		tickets.GET("/pending", h.PendingTickets)
		tickets.POST("/:id/approve", h.Approve)
		tickets.POST("/:id/reject", h.Reject)
		tickets.POST("/:id/resend", h.Resend)
		tickets.DELETE("/:id", h.Remove)
		tickets.GET("/:id/audit", h.Audit)
	}

	subscribers := admin.Group("/subscribers")
	subscribers.Use(middleware.RequirePermission(auth.PermSubscribers))
	{
		subscribers.GET("/pending", h.PendingSubscribers)
		subscribers.POST("/:id/confirm", h.ConfirmSubscriber)
	}

	orders := admin.Group("/orders")
	orders.Use(middleware.RequirePermission(auth.PermOrdersReconcile))
	{
		orders.POST("/reconcile", h.ReconcilePending)
		orders.POST("/:trackingId/reconcile", h.Reconcile)
	}
}

// PendingTickets godoc
// @Summary Заявки на проверке (старые первыми)
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SuccessResponse{data=[]dto.TicketResponse}
// @Router /api/v1/admin/tickets/pending [get]
func (h *AdminHandler) PendingTickets(c *gin.Context) {
	h.OK(c, http.StatusOK, dto.NewTicketResponses(h.console.PendingTickets()), "")
}

// Approve godoc
// @Summary Одобрить заявку и выслать билет
// @Description Если доставка не удалась, билет остается Approved и ошибка возвращается администратору.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID билета"
// @Success 200 {object} SuccessResponse{data=dto.TicketResponse}
// @Failure 409 {object} apperrors.ErrorResponse "Недопустимый переход"
// @Failure 502 {object} apperrors.ErrorResponse "Ошибка доставки"
// @Router /api/v1/admin/tickets/{id}/approve [post]
func (h *AdminHandler) Approve(c *gin.Context) {
	adminID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	ticket, err := h.console.Approve(c.Request.Context(), c.Param("id"), adminID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, http.StatusOK, dto.NewTicketResponse(ticket), "Ticket approved and issued")
}

// Reject godoc
// @Summary Отклонить заявку
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID билета"
// @Param request body dto.RejectTicketRequest true "Причина"
// @Success 200 {object} SuccessResponse{data=dto.TicketResponse}
// @Failure 409 {object} apperrors.ErrorResponse
// @Router /api/v1/admin/tickets/{id}/reject [post]
func (h *AdminHandler) Reject(c *gin.Context) {
	adminID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	var req dto.RejectTicketRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	ticket, err := h.console.Reject(c.Request.Context(), c.Param("id"), adminID, req.Reason)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, http.StatusOK, dto.NewTicketResponse(ticket), "Ticket rejected")
}

// Resend godoc
// @Summary Повторить доставку билета
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID билета"
// @Success 200 {object} SuccessResponse{data=dto.TicketResponse}
// @Router /api/v1/admin/tickets/{id}/resend [post]
func (h *AdminHandler) Resend(c *gin.Context) {
	adminID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	ticket, err := h.console.ResendDelivery(c.Request.Context(), c.Param("id"), adminID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, http.StatusOK, dto.NewTicketResponse(ticket), "Ticket delivered")
}

// Remove godoc
// @Summary Удалить билет
// @Tags admin
// @Security BearerAuth
// @Param id path string true "ID билета"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/admin/tickets/{id} [delete]
func (h *AdminHandler) Remove(c *gin.Context) {
	adminID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	if err := h.console.Remove(c.Request.Context(), c.Param("id"), adminID); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, http.StatusOK, nil, "Ticket removed")
}

// Audit godoc
// @Summary История переходов билета
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID билета"
// @Success 200 {object} SuccessResponse{data=[]dto.AuditEntry}
// @Router /api/v1/admin/tickets/{id}/audit [get]
func (h *AdminHandler) Audit(c *gin.Context) {
	rows, err := h.console.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, http.StatusOK, dto.NewAuditEntries(rows), "")
}

// PendingSubscribers godoc
// @Summary Подписчики, ожидающие подтверждения
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SuccessResponse{data=[]dto.SubscriberResponse}
// @Router /api/v1/admin/subscribers/pending [get]
func (h *AdminHandler) PendingSubscribers(c *gin.Context) {
	h.OK(c, http.StatusOK, dto.NewSubscriberResponses(h.console.PendingSubscribers()), "")
}

// ConfirmSubscriber godoc
// @Summary Подтвердить подписчика
// @Tags admin
// @Security BearerAuth
// @Param id path string true "ID подписчика"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/admin/subscribers/{id}/confirm [post]
func (h *AdminHandler) ConfirmSubscriber(c *gin.Context) {
	if err := h.console.ConfirmSubscriber(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, http.StatusOK, nil, "Subscriber confirmed")
}

// Reconcile godoc
// @Summary Перечитать статус заказа у шлюза
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param trackingId path string true "order_tracking_id"
// @Success 200 {object} SuccessResponse{data=dto.OrderStatusResponse}
// @Router /api/v1/admin/orders/{trackingId}/reconcile [post]
func (h *AdminHandler) Reconcile(c *gin.Context) {
	trackingID := c.Param("trackingId")
	if trackingID == "" {
		apperrors.HandleError(c, apperrors.NewBadRequestError("trackingId is required"))
		return
	}

	status, err := h.orderService.GetOrderStatus(c.Request.Context(), trackingID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, http.StatusOK, status, "")
}

// ReconcilePending godoc
// @Summary Сверить зависшие заказы сейчас
// @Description Тот же проход, что делает фоновый воркер.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Сколько заказов проверить" default(50)
// @Param min_age_minutes query int false "Минимальный возраст заказа" default(0)
// @Success 200 {object} SuccessResponse{data=dto.ReconcileResult}
// @Router /api/v1/admin/orders/reconcile [post]
func (h *AdminHandler) ReconcilePending(c *gin.Context) {
	limit := ParseQueryInt(c, "limit", 50)
	if limit <= 0 || limit > 500 {
		apperrors.HandleError(c, apperrors.NewBadRequestError("limit must be between 1 and 500"))
		return
	}
	minAge := time.Duration(ParseQueryInt(c, "min_age_minutes", 0)) * time.Minute

	result, err := h.orderService.ReconcilePending(c.Request.Context(), minAge, limit)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, http.StatusOK, result, "")
}
