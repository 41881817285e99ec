package event

import (
	"context"
	"time"

	"foodorder/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 注文ライフサイクルのイベント種別
type Type string

const (
	TypeOrderPlaced        Type = "order.placed"
	TypeOrderPaid          Type = "order.paid"
	TypeOrderRemoved       Type = "order.removed"
	TypeOrderStatusUpdated Type = "order.status_updated"
)

type OrderEvent struct {
	Type       Type            `json:"type"`
	OrderID    string          `json:"orderId"`
	UserID     string          `json:"userId"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	Payment    bool            `json:"payment"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// NewOrderEvent は注文の現在値からイベントを作る
func NewOrderEvent(t Type, o model.Order, now time.Time) OrderEvent {
	return OrderEvent{
		Type:       t,
		OrderID:    o.ID,
		UserID:     o.UserID,
		Amount:     o.Amount,
		Status:     string(o.Status),
		Payment:    o.Payment,
		OccurredAt: now,
	}
}

type Publisher interface {
	Publish(ctx context.Context, evt OrderEvent) error
}

// ブローカー未設定のとき用
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }
