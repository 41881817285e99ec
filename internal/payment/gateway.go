package payment

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned when the gateway does not know the session id.
var ErrSessionNotFound = errors.New("payment: checkout session not found")

// LineItem is a priced, quantified entry submitted to the gateway.
// UnitAmount is in the smallest currency unit.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
	Currency   string
}

// SessionRequest captures what is needed to open a hosted checkout session.
type SessionRequest struct {
	OrderID    string
	LineItems  []LineItem
	SuccessURL string
	CancelURL  string
	// IdempotencyKey makes a retried create return the same session.
	IdempotencyKey string
}

// Session is the gateway-hosted checkout returned to the client.
type Session struct {
	ID      string
	URL     string
	OrderID string
	Paid    bool
}

// Gateway is the narrow surface of the payment provider this service needs.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (Session, error)
}
