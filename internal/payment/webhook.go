package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

var (
	// ErrInvalidSignature is returned when the webhook payload is not signed by the gateway.
	ErrInvalidSignature = errors.New("payment: invalid webhook signature")
	// ErrWebhookNotConfigured is returned when no signing secret is set.
	ErrWebhookNotConfigured = errors.New("payment: webhook secret not configured")
)

// EventKind is the normalised outcome carried by a gateway webhook.
type EventKind string

const (
	EventPaymentSucceeded EventKind = "payment_succeeded"
	EventPaymentFailed    EventKind = "payment_failed"
	EventIgnored          EventKind = "ignored"
)

// Event is a verified gateway notification about one checkout session.
type Event struct {
	ID        string
	Type      string
	Kind      EventKind
	SessionID string
	OrderID   string
}

// WebhookVerifier checks the Stripe-Signature header and decodes checkout events.
type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

// NewWebhookVerifier builds a verifier for the given endpoint secret.
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret, tolerance: webhook.DefaultTolerance}
}

// Parse verifies the signature and maps the Stripe event to an Event.
func (v *WebhookVerifier) Parse(payload []byte, signatureHeader string) (Event, error) {
	if v == nil || v.secret == "" {
		return Event{}, ErrWebhookNotConfigured
	}

	evt, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := Event{ID: evt.ID, Type: string(evt.Type), Kind: EventIgnored}

	var paidRequired bool
	switch evt.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		out.Kind = EventPaymentSucceeded
		paidRequired = true
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		out.Kind = EventPaymentFailed
	default:
		return out, nil
	}

	if evt.Data == nil || len(evt.Data.Raw) == 0 {
		return Event{}, errors.New("payment: webhook event has no data")
	}
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &cs); err != nil {
		return Event{}, fmt.Errorf("payment: decode checkout session: %w", err)
	}

	s := toSession(&cs)
	out.SessionID = s.ID
	out.OrderID = s.OrderID

	// a completed session paid by a delayed method is still unpaid here
	if paidRequired && !s.Paid {
		out.Kind = EventIgnored
	}
	return out, nil
}
