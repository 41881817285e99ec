package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"foodorder/internal/middleware"
	"foodorder/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 失敗時は常にこの形（messageは"Error"固定、種類はkindで返す）
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type DataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func errorJSON(kind usecase.ErrorKind) ErrorResponse {
	return ErrorResponse{Success: false, Message: "Error", Kind: string(kind)}
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if e, ok := usecase.AsError(err); ok {
		return c.JSON(e.Status(), errorJSON(e.Kind))
	}

	//500
	return c.JSON(http.StatusInternalServerError, errorJSON(usecase.KindPersistence))
}

func badRequest(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, errorJSON(usecase.KindValidation))
}

// AuthJWTが入れたuser_idを取り出す
func getUserIDFromContext(c echo.Context) (string, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// true/false と "true"/"false" の両方を受け付ける（クエリ文字列をそのまま送ってくるクライアント向け）
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.New("success must be boolean")
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		*b = true
	case "false", "":
		*b = false
	default:
		return errors.New("success must be boolean")
	}
	return nil
}
