package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"launchpad_backend/database"
	"launchpad_backend/internal/auth"
	"launchpad_backend/internal/config"
	"launchpad_backend/internal/delivery"
	"launchpad_backend/internal/email"
	"launchpad_backend/internal/feed"
	"launchpad_backend/internal/gateway/pesapal"
	"launchpad_backend/internal/handlers"
	"launchpad_backend/internal/logger"
	"launchpad_backend/internal/middleware"
	"launchpad_backend/internal/repositories"
	"launchpad_backend/internal/routes"
	"launchpad_backend/internal/services"
	"launchpad_backend/internal/storage"
	"launchpad_backend/internal/validator"
	"launchpad_backend/internal/workers"
	"launchpad_backend/pkg/apperrors"
	"launchpad_backend/ws"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	apperrors.SetDebug(cfg.Server.Env == "development")
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...", "driver", cfg.Database.Driver)
	gormDB, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	if err := database.AutoMigrate(gormDB); err != nil {
		logger.Fatal("Migration failed", "error", err)
	}
	logger.Info("Database connected")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens := auth.NewTokenIssuer(cfg.JWT.Secret, time.Duration(cfg.JWT.TTL)*time.Minute)
	container := initializeServices(cfg, gormDB, tokens)

	if err := seed(ctx, cfg, container); err != nil {
		// без каталога и админа сервер бесполезен
		logger.Fatal("Failed to seed catalog or admin", "error", err)
	}

	go func() {
		if err := container.Console.Run(ctx); err != nil {
			logger.Error("Moderation feed stopped", "error", err)
		}
	}()

	wsManager := ws.NewWebSocketManager(container.Console)
	go wsManager.Run()
	defer wsManager.Stop()

	workers.NewReconcileWorker(
		container.OrderService,
		cfg.Workers.ReconcileInterval,
		cfg.Workers.ReconcileMinAge,
		cfg.Workers.ReconcileBatch,
	).Start(ctx)

	ginRouter := initializeGinRouter(cfg)
	appHandlers := initializeHandlers(container, tokens)
	routes.RegisterRoutes(ginRouter, appHandlers, ws.NewWebSocketHandler(wsManager, cfg.Server.CORSOrigins), tokens)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              address,
		Handler:           ginRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info(fmt.Sprintf("🚀 Server starting on %s", address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server startup error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func initializeServices(cfg *config.Config, gormDB *gorm.DB, tokens *auth.TokenIssuer) *services.ServiceContainer {
	storageInstance, err := storage.NewStorage(storage.Config{
		Type:       cfg.Storage.Type,
		BasePath:   cfg.Storage.BasePath,
		BaseURL:    cfg.Storage.BaseURL,
		Bucket:     cfg.Storage.Bucket,
		AccountID:  cfg.Storage.AccountID,
		AccessKey:  cfg.Storage.AccessKey,
		SecretKey:  cfg.Storage.SecretKey,
		PublicRead: cfg.Storage.PublicRead,
	})
	if err != nil {
		logger.Fatal("Failed to initialize storage", "error", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	deliverer := initializeDelivery(cfg, storageInstance)
	publisher, source := initializeFeed(cfg, gormDB)

	// --- Инициализация репозиториев ---
	ticketRepo := repositories.NewTicketRepository(gormDB)
	orderRepo := repositories.NewPaymentOrderRepository(gormDB)
	catalogRepo := repositories.NewCatalogRepository(gormDB)
	adminRepo := repositories.NewAdminRepository(gormDB)
	subscriberRepo := repositories.NewSubscriberRepository(gormDB)

	// --- Платёжный шлюз ---
	client := pesapal.NewClient(pesapal.Config{
		BaseURL:        cfg.Gateway.BaseURL,
		ConsumerKey:    cfg.Gateway.ConsumerKey,
		ConsumerSecret: cfg.Gateway.ConsumerSecret,
		RequestTimeout: cfg.Gateway.RequestTimeout,
		RetryBackoff:   cfg.Gateway.RetryBackoff,
	}, nil)
	gateway := pesapal.NewGateway(pesapal.NewTokenManager(client, cfg.Gateway.TokenMargin))

	// --- Инициализация сервисов ---
	v := validator.New()
	catalogService := services.NewCatalogService(catalogRepo)
	lifecycle := services.NewTicketLifecycle(ticketRepo, deliverer, publisher)
	orderService := services.NewOrderService(orderRepo, catalogService, gateway, lifecycle, v, services.OrderServiceConfig{
		IPNURL:      cfg.Gateway.IPNURL,
		CallbackURL: cfg.Gateway.CallbackURL,
	})
	subscriberService := services.NewSubscriberService(subscriberRepo, publisher, v)

	return &services.ServiceContainer{
		CatalogService:      catalogService,
		OrderService:        orderService,
		TicketLifecycle:     lifecycle,
		ManualTicketService: services.NewManualTicketService(ticketRepo, catalogService, lifecycle, v, cfg.Tickets.DuplicateWindow),
		VerifierService:     services.NewVerifierService(lifecycle, cfg.Tickets.VerifyBaseURL),
		SubscriberService:   subscriberService,
		AuthService:         services.NewAuthService(adminRepo, tokens, v),
		Console:             services.NewModerationConsole(ticketRepo, subscriberService, lifecycle, source),
	}
}

func initializeDelivery(cfg *config.Config, store storage.Storage) delivery.Deliverer {
	if !cfg.Email.Enabled {
		logger.Warn("Email disabled, tickets will only be logged")
		return delivery.LogDeliverer{}
	}

	templates, err := email.NewTemplateManager()
	if err != nil {
		logger.Fatal("Failed to load email templates", "error", err)
	}
	if cfg.Email.TemplatesDir != "" {
		if err := templates.LoadTemplates(cfg.Email.TemplatesDir); err != nil {
			logger.Fatal("Failed to load email templates", "dir", cfg.Email.TemplatesDir, "error", err)
		}
	}

	provider, err := email.NewGomailProvider(&email.SMTPConfig{
		Host:      cfg.Email.SMTPHost,
		Port:      cfg.Email.SMTPPort,
		Username:  cfg.Email.SMTPUsername,
		Password:  cfg.Email.SMTPPassword,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
	}, templates)
	if err != nil {
		logger.Fatal("Failed to initialize email provider", "error", err)
	}
	return delivery.NewTicketMailer(provider, store, cfg.Tickets.VerifyBaseURL)
}

// initializeFeed picks push notifications on Postgres and falls back to
// polling the pending rows everywhere else.
func initializeFeed(cfg *config.Config, gormDB *gorm.DB) (feed.Publisher, feed.Source) {
	if cfg.Database.Driver == "postgres" && cfg.Database.FeedMode == "listen" {
		logger.Info("Moderation feed: LISTEN/NOTIFY", "channel", feed.Channel)
		return feed.NewPQPublisher(gormDB), feed.NewPQSource(cfg.Database.DSN)
	}
	logger.Info("Moderation feed: polling", "interval", cfg.Database.PollInterval)
	return feed.NoopPublisher{}, feed.NewPollSource(repositories.NewFeedCursor(gormDB), cfg.Database.PollInterval)
}

func initializeHandlers(container *services.ServiceContainer, tokens *auth.TokenIssuer) *handlers.AppHandlers {
	baseHandler := handlers.NewBaseHandler(validator.New(), tokens)

	return &handlers.AppHandlers{
		AuthHandler:       handlers.NewAuthHandler(baseHandler, container.AuthService),
		PaymentHandler:    handlers.NewPaymentHandler(baseHandler, container.OrderService, container.CatalogService),
		TicketHandler:     handlers.NewTicketHandler(baseHandler, container.ManualTicketService, container.VerifierService),
		AdminHandler:      handlers.NewAdminHandler(baseHandler, container.Console, container.OrderService),
		SubscriberHandler: handlers.NewSubscriberHandler(baseHandler, container.SubscriberService),
	}
}

func initializeGinRouter(cfg *config.Config) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Server.CORSOrigins))
	return router
}

func seed(ctx context.Context, cfg *config.Config, container *services.ServiceContainer) error {
	if err := container.CatalogService.Seed(ctx, cfg.Catalog); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		logger.Warn("ADMIN_EMAIL or ADMIN_PASSWORD is not set. Skipping admin seeding.")
		return nil
	}
	if err := container.AuthService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}
