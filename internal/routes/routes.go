package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"launchpad_backend/internal/auth"
	"launchpad_backend/internal/handlers"
	"launchpad_backend/internal/logger"
	"launchpad_backend/internal/middleware"
	"launchpad_backend/internal/models"
	"launchpad_backend/ws"
)

// RegisterRoutes регистрирует все HTTP и WebSocket маршруты.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	wsHandler *ws.WebSocketHandler,
	tokens *auth.TokenIssuer,
) {
	ginRouter.GET("/health", func(c *gin.Context) {
		resp := gin.H{"status": "ok"}
		if wsHandler != nil {
			resp["admin_connections"] = wsHandler.Manager.GetClientCount()
		}
		c.JSON(http.StatusOK, resp)
	})
	ginRouter.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Регистрация HTTP API v1
	api := ginRouter.Group("/api/v1")
	{
		appHandlers.AuthHandler.RegisterRoutes(api)
		appHandlers.PaymentHandler.RegisterRoutes(api)
		appHandlers.TicketHandler.RegisterRoutes(api)
		appHandlers.SubscriberHandler.RegisterRoutes(api)
		appHandlers.AdminHandler.RegisterRoutes(api)
	}

	// Старые пути, на которые уже настроены шлюз и фронтенд
	legacy := ginRouter.Group("/api")
	{
		appHandlers.PaymentHandler.RegisterLegacyRoutes(legacy)
		appHandlers.TicketHandler.RegisterLegacyRoutes(legacy)
	}

	if wsHandler != nil {
		wsGroup := ginRouter.Group("/ws")
		wsGroup.Use(middleware.AuthMiddleware(tokens), middleware.RequireRoles(models.AdminRoleAdmin))
		{
			wsGroup.GET("/admin", wsHandler.ServeWS)
		}
		logger.Info("WebSocket route /ws/admin registered")
	}
}
