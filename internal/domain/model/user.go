package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// 商品ID -> 数量
type CartData map[string]int64

func (c CartData) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *CartData) Scan(src any) error {
	return scanJSON(src, c)
}

// Clone はスナップショット用のコピーを返す
func (c CartData) Clone() CartData {
	out := make(CartData, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// ユーザー本体は認証側の持ち物。ここではcart_dataだけ読み書きする
type User struct {
	ID        string   `gorm:"type:varchar(64);primaryKey"`
	Name      string   `gorm:"type:varchar(255)"`
	Email     string   `gorm:"type:varchar(255);index"`
	Role      Role     `gorm:"type:varchar(20);not null;default:'USER'"`
	CartData  CartData `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
