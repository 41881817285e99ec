package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"foodorder/internal/payment"
	"foodorder/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Stripeの推奨上限
const maxWebhookBody = 65536

type EventParser interface {
	Parse(payload []byte, signatureHeader string) (payment.Event, error)
}

type PaymentEventHandler interface {
	HandlePaymentEvent(ctx context.Context, evt payment.Event) error
}

type WebhookHandler struct {
	parser EventParser
	uc     PaymentEventHandler
	log    *zap.Logger
}

func NewWebhookHandler(parser EventParser, uc PaymentEventHandler, log *zap.Logger) *WebhookHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookHandler{parser: parser, uc: uc, log: log}
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

// 署名で認証するのでJWTは付けない
func (h *WebhookHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/order/webhook", h.receive)
}

func (h *WebhookHandler) receive(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return badRequest(c)
	}

	evt, err := h.parser.Parse(payload, c.Request().Header.Get("Stripe-Signature"))
	switch {
	case errors.Is(err, payment.ErrWebhookNotConfigured):
		h.log.Error("webhook received but no signing secret configured")
		return c.JSON(http.StatusServiceUnavailable, errorJSON(usecase.KindGateway))
	case err != nil:
		h.log.Warn("webhook rejected", zap.Error(err))
		return badRequest(c)
	}

	if err := h.uc.HandlePaymentEvent(c.Request().Context(), evt); err != nil {
		h.log.Error("webhook handling failed",
			zap.String("event_id", evt.ID),
			zap.String("order_id", evt.OrderID),
			zap.Error(err),
		)
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, WebhookResponse{Received: true})
}
