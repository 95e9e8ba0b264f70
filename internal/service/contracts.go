package service

import (
	"context"

	"klarna-payments-backend/internal/payments"
	"klarna-payments-backend/internal/payments/klarna"
)

// PaymentsClient is the slice of the Klarna REST client the services use.
type PaymentsClient interface {
	CreateSession(ctx context.Context, lines payments.OrderLines) (*klarna.SessionHandle, error)
	UpdateSession(ctx context.Context, sessionID string, lines payments.OrderLines) error
	PlaceOrder(ctx context.Context, authToken string, order klarna.OrderRequest) (*klarna.PlacedOrder, error)
}

// ClientSource hands out a client built from the current gateway settings,
// so credential changes take effect without restarting.
type ClientSource interface {
	Client() (PaymentsClient, error)
	TestMode() bool
}

// OrderLinesProvider computes a fresh order-lines snapshot for a checkout.
type OrderLinesProvider interface {
	OrderLines(ctx context.Context, checkoutID string) (payments.OrderLines, error)
}
