package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"launchpad_backend/internal/auth"
	"launchpad_backend/internal/middleware"
	"launchpad_backend/internal/services"
	"launchpad_backend/internal/services/dto"
)

// TicketHandler serves manual submissions and the public door check.
type TicketHandler struct {
	*BaseHandler
	manualService   services.ManualTicketService
	verifierService services.VerifierService
}

func NewTicketHandler(base *BaseHandler, manualService services.ManualTicketService, verifierService services.VerifierService) *TicketHandler {
	return &TicketHandler{
		BaseHandler:     base,
		manualService:   manualService,
		verifierService: verifierService,
	}
}

func (h *TicketHandler) RegisterRoutes(rg *gin.RouterGroup) {
	tickets := rg.Group("/tickets")
	{
		tickets.POST("/manual", h.SubmitManual)
		tickets.GET("/verify", h.VerifyByQuery)
		tickets.GET("/:id/verify", h.Verify)
		tickets.GET("/:id/qr", h.QR)

		door := tickets.Group("")
		door.Use(h.RequireAuth(), middleware.RequirePermission(auth.PermTicketsCheckIn))
		door.POST("/:id/check-in", h.CheckIn)
	}
}

func (h *TicketHandler) RegisterLegacyRoutes(api *gin.RouterGroup) {
	api.POST("/tickets/manual", h.SubmitManual)
}

// SubmitManual godoc
// @Summary Подтверждение ручной оплаты
// @Description Создает билет в состоянии PendingReview; повтор для того же email, плана и периода отклоняется.
// @Tags tickets
// @Accept json
// @Produce json
// @Param request body dto.ManualTicketRequest true "Данные подтверждения"
// @Success 201 {object} SuccessResponse{data=dto.TicketResponse}
// @Failure 409 {object} apperrors.ErrorResponse "Повторная заявка"
// @Router /api/tickets/manual [post]
func (h *TicketHandler) SubmitManual(c *gin.Context) {
	var req dto.ManualTicketRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	ticket, err := h.manualService.Submit(c.Request.Context(), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, http.StatusCreated, dto.NewTicketResponse(ticket), "Submission received and awaiting review")
}

// VerifyByQuery godoc
// @Summary Проверка билета по ссылке из QR
// @Tags tickets
// @Produce json
// @Param ticket query string true "Код билета"
// @Param name query string false "Имя на билете"
// @Param plan query string false "План на билете"
// @Param verified query string false "Флаг из QR"
// @Success 200 {object} SuccessResponse{data=dto.VerifyResponse}
// @Failure 404 {object} apperrors.ErrorResponse
// @Router /api/v1/tickets/verify [get]
func (h *TicketHandler) VerifyByQuery(c *gin.Context) {
	var q dto.VerifyQuery
	if !h.BindAndValidate_Query(c, &q) {
		return
	}

	view, err := h.verifierService.Verify(c.Request.Context(), q.Ticket, &q)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, http.StatusOK, view, "")
}

// Verify godoc
// @Summary Проверка билета по ID
// @Tags tickets
// @Produce json
// @Param id path string true "ID или код билета"
// @Success 200 {object} SuccessResponse{data=dto.VerifyResponse}
// @Failure 404 {object} apperrors.ErrorResponse
// @Router /api/v1/tickets/{id}/verify [get]
func (h *TicketHandler) Verify(c *gin.Context) {
	view, err := h.verifierService.Verify(c.Request.Context(), c.Param("id"), nil)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, http.StatusOK, view, "")
}

// QR godoc
// @Summary QR-код билета
// @Tags tickets
// @Produce png
// @Param id path string true "ID или код билета"
// @Success 200 {file} binary
// @Router /api/v1/tickets/{id}/qr [get]
func (h *TicketHandler) QR(c *gin.Context) {
	png, err := h.verifierService.QRImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}

// CheckIn godoc
// @Summary Отметить вход по билету
// @Tags tickets
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID или код билета"
// @Success 200 {object} SuccessResponse{data=dto.VerifyResponse}
// @Failure 409 {object} apperrors.ErrorResponse "Уже отмечен"
// @Router /api/v1/tickets/{id}/check-in [post]
func (h *TicketHandler) CheckIn(c *gin.Context) {
	actor, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	view, err := h.verifierService.CheckIn(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, http.StatusOK, view, "Checked in")
}
