package pesapal

import (
	"context"
)

// Gateway is the order-level API used by the payment services.
type Gateway struct {
	tokens *TokenManager
}

func NewGateway(tokens *TokenManager) *Gateway {
	return &Gateway{tokens: tokens}
}

func (g *Gateway) EnsureNotificationChannel(ctx context.Context, ipnURL string) (string, error) {
	return g.tokens.EnsureNotificationChannel(ctx, ipnURL)
}

func (g *Gateway) SubmitOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	v, err := g.tokens.withToken(ctx, func(token string) (interface{}, error) {
		return g.tokens.client.submitOrder(ctx, token, req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*OrderResponse), nil
}

func (g *Gateway) GetTransactionStatus(ctx context.Context, trackingID string) (*TransactionStatus, error) {
	v, err := g.tokens.withToken(ctx, func(token string) (interface{}, error) {
		return g.tokens.client.transactionStatus(ctx, token, trackingID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*TransactionStatus), nil
}
