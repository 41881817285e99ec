package handler

import (
	"context"
	"net/http"
	"strings"

	"foodorder/internal/domain/model"
	"foodorder/internal/middleware"
	"foodorder/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, userID string, in usecase.PlaceOrderInput) (usecase.PlaceOrderOutput, error)
	VerifyOrder(ctx context.Context, orderID string, success bool) (usecase.VerifyOrderOutput, error)
	UserOrders(ctx context.Context, userID string) ([]model.Order, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	UpdateStatus(ctx context.Context, actorID, orderID, status string) error
}

type OrderHandler struct {
	uc OrderService
}

func NewOrderHandler(uc OrderService) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type PlaceOrderRequest struct {
	Items   model.OrderItems `json:"items"`
	Amount  decimal.Decimal  `json:"amount"`
	Address model.Address    `json:"address"`
}

type PlaceOrderResponse struct {
	Success    bool   `json:"success"`
	SessionURL string `json:"session_url"`
}

type VerifyOrderRequest struct {
	OrderID string   `json:"orderId"`
	Success flexBool `json:"success"`
}

type UpdateStatusRequest struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, jwtSecret string) {
	auth := middleware.AuthJWT(jwtSecret)
	admin := middleware.AdminRoleGuard()

	g := e.Group("/api/order")
	g.POST("/place", h.place, auth)
	//決済画面からの戻り。認証なし
	g.POST("/verify", h.verify)
	g.POST("/userorders", h.userOrders, auth)

	//管理画面
	g.GET("/list", h.list, auth, admin)
	g.POST("/status", h.updateStatus, auth, admin)
}

func (h *OrderHandler) place(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, errorJSON(usecase.KindUnauthorized))
	}

	var req PlaceOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}

	out, err := h.uc.PlaceOrder(c.Request().Context(), userID, usecase.PlaceOrderInput{
		Items:   req.Items,
		Amount:  req.Amount,
		Address: req.Address,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, PlaceOrderResponse{Success: true, SessionURL: out.SessionURL})
}

func (h *OrderHandler) verify(c echo.Context) error {
	var req VerifyOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}

	out, err := h.uc.VerifyOrder(c.Request().Context(), strings.TrimSpace(req.OrderID), bool(req.Success))
	if err != nil {
		return writeError(c, err)
	}
	if out.Paid {
		return c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Paid"})
	}
	return c.JSON(http.StatusOK, MessageResponse{Success: false, Message: "Not Paid"})
}

func (h *OrderHandler) userOrders(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, errorJSON(usecase.KindUnauthorized))
	}

	orders, err := h.uc.UserOrders(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, DataResponse{Success: true, Data: orders})
}

func (h *OrderHandler) list(c echo.Context) error {
	orders, err := h.uc.ListOrders(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, DataResponse{Success: true, Data: orders})
}

func (h *OrderHandler) updateStatus(c echo.Context) error {
	actorID, _ := getUserIDFromContext(c)

	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}

	if err := h.uc.UpdateStatus(c.Request().Context(), actorID, req.OrderID, req.Status); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Status Updated"})
}
