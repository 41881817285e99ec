package server

import (
	"net/http"

	"foodorder/internal/handler"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Order   *handler.OrderHandler
	Cart    *handler.CartHandler
	Webhook *handler.WebhookHandler
}

type healthResponse struct {
	Status string `json:"status"`
}

func RegisterRoutes(e *echo.Echo, h Handlers, jwtSecret string, gatherer prometheus.Gatherer) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
	})
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	if h.Order != nil {
		h.Order.RegisterRoutes(e, jwtSecret)
	}
	if h.Cart != nil {
		h.Cart.RegisterRoutes(e, jwtSecret)
	}
	if h.Webhook != nil {
		h.Webhook.RegisterRoutes(e)
	}
}
