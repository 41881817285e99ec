package usecase

import (
	"context"
	"strings"

	"foodorder/internal/domain/model"
	repo "foodorder/internal/repository"

	"go.uber.org/zap"
)

// CartUsecase は users.cart_data の業務ロジックです。
type CartUsecase struct {
	tx  repo.TransactionManager
	log *zap.Logger
}

func NewCartUsecase(tx repo.TransactionManager, log *zap.Logger) *CartUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartUsecase{tx: tx, log: log}
}

// GetCart はカート取得（ユーザーがいなければ空）
func (u *CartUsecase) GetCart(ctx context.Context, userID string) (model.CartData, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return model.CartData{}, NewError(KindUnauthorized, "unauthorized", nil)
	}

	var out model.CartData
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindByUserID(ctx, userID)
		if err != nil {
			return dbError(err)
		}
		out = cart
		return nil
	})
	if err != nil {
		u.log.Error("get cart failed", zap.String("user_id", userID), zap.Error(err))
		return model.CartData{}, err
	}
	if out == nil {
		out = model.CartData{}
	}
	return out, nil
}

// AddToCart は数量を1増やす
func (u *CartUsecase) AddToCart(ctx context.Context, userID, itemID string) error {
	return u.modify(ctx, "add to cart", userID, itemID, func(cart model.CartData, id string) {
		cart[id]++
	})
}

// RemoveFromCart は数量を1減らす。0になったら消す
func (u *CartUsecase) RemoveFromCart(ctx context.Context, userID, itemID string) error {
	return u.modify(ctx, "remove from cart", userID, itemID, func(cart model.CartData, id string) {
		if cart[id] <= 1 {
			delete(cart, id)
			return
		}
		cart[id]--
	})
}

// ClearCart は cart_data を {} に戻す（ユーザーがいなくてもOK）
func (u *CartUsecase) ClearCart(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return NewError(KindUnauthorized, "unauthorized", nil)
	}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Carts().Clear(ctx, userID); err != nil {
			return dbError(err)
		}
		return nil
	})
	if err != nil {
		u.log.Error("clear cart failed", zap.String("user_id", userID), zap.Error(err))
	}
	return err
}

// 行ロックして読み→書き
func (u *CartUsecase) modify(ctx context.Context, op, userID, itemID string, fn func(cart model.CartData, id string)) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return NewError(KindUnauthorized, "unauthorized", nil)
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return validationError("itemId required")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindByUserIDForUpdate(ctx, userID)
		if err != nil {
			return dbError(err)
		}
		cart = cart.Clone()
		fn(cart, itemID)
		if err := r.Carts().Save(ctx, userID, cart); err != nil {
			return dbError(err)
		}
		return nil
	})
	if err != nil {
		u.log.Error(op+" failed", zap.String("user_id", userID), zap.String("item_id", itemID), zap.Error(err))
	}
	return err
}
