package handlers

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	AuthHandler       *AuthHandler
	PaymentHandler    *PaymentHandler
	TicketHandler     *TicketHandler
	AdminHandler      *AdminHandler
	SubscriberHandler *SubscriberHandler
}
