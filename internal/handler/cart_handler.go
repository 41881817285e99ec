package handler

import (
	"context"
	"net/http"

	"foodorder/internal/domain/model"
	"foodorder/internal/middleware"
	"foodorder/internal/usecase"

	"github.com/labstack/echo/v4"
)

type CartService interface {
	GetCart(ctx context.Context, userID string) (model.CartData, error)
	AddToCart(ctx context.Context, userID, itemID string) error
	RemoveFromCart(ctx context.Context, userID, itemID string) error
}

type CartHandler struct {
	uc CartService
}

func NewCartHandler(uc CartService) *CartHandler {
	return &CartHandler{uc: uc}
}

type CartItemRequest struct {
	ItemID string `json:"itemId"`
}

type CartResponse struct {
	Success  bool           `json:"success"`
	CartData model.CartData `json:"cartData"`
}

// /api/cart は全部ログイン必須
func (h *CartHandler) RegisterRoutes(e *echo.Echo, jwtSecret string) {
	g := e.Group("/api/cart")
	g.Use(middleware.AuthJWT(jwtSecret))

	g.POST("/add", h.add)
	g.POST("/remove", h.remove)
	g.POST("/get", h.get)
}

func (h *CartHandler) add(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, errorJSON(usecase.KindUnauthorized))
	}

	var req CartItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}

	if err := h.uc.AddToCart(c.Request().Context(), userID, req.ItemID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Added To Cart"})
}

func (h *CartHandler) remove(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, errorJSON(usecase.KindUnauthorized))
	}

	var req CartItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}

	if err := h.uc.RemoveFromCart(c.Request().Context(), userID, req.ItemID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "Removed From Cart"})
}

func (h *CartHandler) get(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, errorJSON(usecase.KindUnauthorized))
	}

	cart, err := h.uc.GetCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, CartResponse{Success: true, CartData: cart})
}
