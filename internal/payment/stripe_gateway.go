package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"go.uber.org/zap"
)

const metadataOrderID = "orderId"

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeGatewayConfig configures the StripeGateway.
type StripeGatewayConfig struct {
	APIKey   string
	Backends *stripe.Backends
	Logger   *zap.Logger
	// Sessions overrides the Stripe client, used by tests.
	Sessions stripeSessionAPI
}

// StripeGateway implements Gateway on top of Stripe Checkout.
type StripeGateway struct {
	sessions stripeSessionAPI
	log      *zap.Logger
}

// NewStripeGateway builds a Stripe-backed Gateway.
func NewStripeGateway(cfg StripeGatewayConfig) (*StripeGateway, error) {
	sessions := cfg.Sessions
	if sessions == nil {
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			return nil, errors.New("stripe: api key is required")
		}
		sc := client.New(apiKey, cfg.Backends)
		sessions = sc.CheckoutSessions
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &StripeGateway{sessions: sessions, log: log}, nil
}

// CreateCheckoutSession opens a one-time payment Checkout session.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if req.OrderID != "" {
		params.ClientReferenceID = stripe.String(req.OrderID)
		params.Metadata = map[string]string{metadataOrderID: req.OrderID}
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(item.Currency)),
				UnitAmount: stripe.Int64(item.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}
	params.LineItems = lineItems

	s, err := g.sessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	g.log.Info("payment session created",
		zap.String("session_id", s.ID),
		zap.String("order_id", req.OrderID),
		zap.Int("line_items", len(lineItems)),
	)

	return toSession(s), nil
}

// GetCheckoutSession fetches a session to check its payment status.
func (g *StripeGateway) GetCheckoutSession(ctx context.Context, sessionID string) (Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Session{}, ErrSessionNotFound
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := g.sessions.Get(sessionID, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == http.StatusNotFound {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("stripe: get checkout session: %w", err)
	}
	return toSession(s), nil
}

func toSession(s *stripe.CheckoutSession) Session {
	if s == nil {
		return Session{}
	}
	orderID := s.ClientReferenceID
	if orderID == "" && s.Metadata != nil {
		orderID = s.Metadata[metadataOrderID]
	}
	return Session{
		ID:      s.ID,
		URL:     s.URL,
		OrderID: orderID,
		Paid: s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
			s.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired,
	}
}
