package services

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	CatalogService      CatalogService
	OrderService        OrderService
	TicketLifecycle     TicketLifecycle
	ManualTicketService ManualTicketService
	VerifierService     VerifierService
	SubscriberService   SubscriberService
	AuthService         AuthService
	Console             *ModerationConsole
}
