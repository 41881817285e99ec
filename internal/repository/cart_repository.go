package repository

import (
	"context"

	"foodorder/internal/domain/model"
)

// users.cart_data の読み書き
type CartRepository interface {
	// ユーザーがいなければ空のカートを返す
	FindByUserID(ctx context.Context, userID string) (model.CartData, error)
	// 行ロック付き（トランザクション内で使う）
	FindByUserIDForUpdate(ctx context.Context, userID string) (model.CartData, error)
	Save(ctx context.Context, userID string, cart model.CartData) error
	// ユーザーがいなくてもエラーにしない
	Clear(ctx context.Context, userID string) error
}
