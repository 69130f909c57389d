package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"launchpad_backend/internal/services"
	"launchpad_backend/internal/services/dto"
)

type SubscriberHandler struct {
	*BaseHandler
	subscriberService services.SubscriberService
}

func NewSubscriberHandler(base *BaseHandler, subscriberService services.SubscriberService) *SubscriberHandler {
	return &SubscriberHandler{
		BaseHandler:       base,
		subscriberService: subscriberService,
	}
}

func (h *SubscriberHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/newsletter/subscribe", h.Subscribe)
}

// Subscribe godoc
// @Summary Подписка на рассылку
// @Tags newsletter
// @Accept json
// @Produce json
// @Param request body dto.SubscribeRequest true "Email"
// @Success 201 {object} SuccessResponse
// @Failure 409 {object} apperrors.ErrorResponse "Уже подписан"
// @Router /api/v1/newsletter/subscribe [post]
func (h *SubscriberHandler) Subscribe(c *gin.Context) {
	var req dto.SubscribeRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if _, err := h.subscriberService.Subscribe(c.Request.Context(), &req); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.OK(c, http.StatusCreated, nil, "Subscription received")
}
