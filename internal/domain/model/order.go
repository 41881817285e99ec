package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// 注文の明細（リクエストのまま保存する）
type OrderItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

// jsonbカラムに入れる明細リスト
type OrderItems []OrderItem

func (items OrderItems) Value() (driver.Value, error) {
	if items == nil {
		return "[]", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (items *OrderItems) Scan(src any) error {
	return scanJSON(src, items)
}

// Subtotal は Σ price×quantity
func (items OrderItems) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(it.Quantity)))
	}
	return total
}

// 配送先住所。中身は検証せずそのまま保存
type Address map[string]any

func (a Address) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *Address) Scan(src any) error {
	return scanJSON(src, a)
}

type Order struct {
	ID        string          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string          `gorm:"type:varchar(64);not null;index" json:"userId"`
	Items     OrderItems      `gorm:"type:jsonb;not null" json:"items"`
	Amount    decimal.Decimal `gorm:"type:numeric;not null" json:"amount"`
	Address   Address         `gorm:"type:jsonb;not null" json:"address"`
	Status    OrderStatus     `gorm:"type:text;not null;default:'Food Processing'" json:"status"`
	Payment   bool            `gorm:"not null;default:false;index" json:"payment"`
	SessionID string          `gorm:"type:varchar(255)" json:"-"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime" json:"-"`
}

func scanJSON(src any, dst any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
	if len(data) == 0 {
		return errors.New("empty json column")
	}
	return json.Unmarshal(data, dst)
}
