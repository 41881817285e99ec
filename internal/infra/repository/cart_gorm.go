package repository

import (
	"context"
	"errors"

	"foodorder/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

func (r *CartGormRepository) FindByUserID(ctx context.Context, userID string) (model.CartData, error) {
	return r.find(r.db.WithContext(ctx), userID)
}

// SELECT ... FOR UPDATE
func (r *CartGormRepository) FindByUserIDForUpdate(ctx context.Context, userID string) (model.CartData, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), userID)
}

func (r *CartGormRepository) find(q *gorm.DB, userID string) (model.CartData, error) {
	var u model.User
	err := q.Select("id", "cart_data").Where("id = ?", userID).First(&u).Error

	//ユーザーがいない＝空カート
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.CartData{}, nil
	}
	if err != nil {
		return nil, err
	}
	if u.CartData == nil {
		return model.CartData{}, nil
	}
	return u.CartData, nil
}

// ユーザー行がなければ作る
func (r *CartGormRepository) Save(ctx context.Context, userID string, cart model.CartData) error {
	if cart == nil {
		cart = model.CartData{}
	}
	u := model.User{ID: userID, CartData: cart}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"cart_data", "updated_at"}),
		}).
		Create(&u).Error
}

// cart_dataを{}に戻す
func (r *CartGormRepository) Clear(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("cart_data", model.CartData{}).Error
}
