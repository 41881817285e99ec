package repository

import (
	"context"

	"foodorder/internal/domain/model"
)

type OrderRepository interface {
	Create(ctx context.Context, order model.Order) error
	FindByID(ctx context.Context, orderID string) (model.Order, error)
	ListByUserID(ctx context.Context, userID string) ([]model.Order, error)
	//管理者用。絞り込みなし
	ListAll(ctx context.Context) ([]model.Order, error)

	// payment=false の行だけ true にする。更新したらtrue
	MarkPaid(ctx context.Context, orderID string) (bool, error)
	UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error
	SetSessionID(ctx context.Context, orderID string, sessionID string) error
	// payment=false の行だけ消す。消したらtrue
	DeleteUnpaid(ctx context.Context, orderID string) (bool, error)
	// 支払い状態に関係なく消す。消したらtrue
	Delete(ctx context.Context, orderID string) (bool, error)
}
