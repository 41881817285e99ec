package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"foodorder/internal/domain/model"
	"foodorder/internal/infra/db"
	repo "foodorder/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 実DBがあるときだけ動かす
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN / DATABASE_URL not set")
	}

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

func newTestOrder(t *testing.T, gdb *gorm.DB, userID string, paid bool) model.Order {
	t.Helper()
	o := model.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Items:     model.OrderItems{{Name: "Pizza", Price: decimal.RequireFromString("10.50"), Quantity: 2}},
		Amount:    decimal.RequireFromString("23"),
		Address:   model.Address{"city": "X"},
		Status:    model.OrderStatusFoodProcessing,
		Payment:   paid,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, NewOrderGormRepository(gdb).Create(context.Background(), o))
	t.Cleanup(func() { gdb.Where("id = ?", o.ID).Delete(&model.Order{}) })
	return o
}

func TestOrderGorm_MarkPaidOnlyOnce(t *testing.T) {
	gdb := testDB(t)
	ctx := context.Background()
	r := NewOrderGormRepository(gdb)
	o := newTestOrder(t, gdb, "it-user-"+uuid.NewString(), false)

	updated, err := r.MarkPaid(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, updated)

	updated, err = r.MarkPaid(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, updated)

	got, err := r.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.Payment)
	assert.Equal(t, "Pizza", got.Items[0].Name)
	assert.True(t, got.Items[0].Price.Equal(decimal.RequireFromString("10.5")))
	assert.Equal(t, "X", got.Address["city"])

	updated, err = r.MarkPaid(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestOrderGorm_DeleteUnpaidKeepsPaidRow(t *testing.T) {
	gdb := testDB(t)
	ctx := context.Background()
	r := NewOrderGormRepository(gdb)
	paid := newTestOrder(t, gdb, "it-user-"+uuid.NewString(), true)
	unpaid := newTestOrder(t, gdb, "it-user-"+uuid.NewString(), false)

	deleted, err := r.DeleteUnpaid(ctx, paid.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
	_, err = r.FindByID(ctx, paid.ID)
	require.NoError(t, err)

	deleted, err = r.DeleteUnpaid(ctx, unpaid.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	_, err = r.FindByID(ctx, unpaid.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	// Delete は支払い済みでも消す
	deleted, err = r.Delete(ctx, paid.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = r.Delete(ctx, paid.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestOrderGorm_StoresAmountAndStatusAsGiven(t *testing.T) {
	gdb := testDB(t)
	ctx := context.Background()
	r := NewOrderGormRepository(gdb)
	o := newTestOrder(t, gdb, "it-user-"+uuid.NewString(), false)

	o2 := o
	o2.ID = uuid.NewString()
	o2.Amount = decimal.RequireFromString("12.345")
	require.NoError(t, r.Create(ctx, o2))
	t.Cleanup(func() { gdb.Where("id = ?", o2.ID).Delete(&model.Order{}) })

	got, err := r.FindByID(ctx, o2.ID)
	require.NoError(t, err)
	assert.Equal(t, "12.345", got.Amount.String())

	status := model.OrderStatus(`waiting for the courier to find the "back" door`)
	require.NoError(t, r.UpdateStatus(ctx, o.ID, status))
	got, err = r.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, status, got.Status)

	assert.ErrorIs(t, r.UpdateStatus(ctx, uuid.NewString(), status), repo.ErrNotFound)
}

func TestOrderGorm_ListByUserID(t *testing.T) {
	gdb := testDB(t)
	ctx := context.Background()
	r := NewOrderGormRepository(gdb)
	userID := "it-user-" + uuid.NewString()
	first := newTestOrder(t, gdb, userID, false)
	second := newTestOrder(t, gdb, userID, true)
	newTestOrder(t, gdb, "it-user-"+uuid.NewString(), false)

	orders, err := r.ListByUserID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, []string{orders[0].ID, orders[1].ID})
}

func TestCartGorm_SaveUpsertsAndClear(t *testing.T) {
	gdb := testDB(t)
	ctx := context.Background()
	r := NewCartGormRepository(gdb)
	userID := "it-user-" + uuid.NewString()
	t.Cleanup(func() { gdb.Where("id = ?", userID).Delete(&model.User{}) })

	cart, err := r.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, cart)

	require.NoError(t, r.Save(ctx, userID, model.CartData{"pizza": 1}))
	require.NoError(t, r.Save(ctx, userID, model.CartData{"pizza": 3, "salad": 1}))

	cart, err = r.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, model.CartData{"pizza": 3, "salad": 1}, cart)

	require.NoError(t, r.Clear(ctx, userID))
	cart, err = r.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, cart)

	// いないユーザーのClearはエラーにしない
	require.NoError(t, r.Clear(ctx, "it-user-"+uuid.NewString()))
}

func TestTxManagerGorm_RollsBackOnError(t *testing.T) {
	gdb := testDB(t)
	ctx := context.Background()
	tm := NewTxManagerGorm(gdb)
	id := uuid.NewString()
	boom := errors.New("boom")

	err := tm.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Orders().Create(ctx, model.Order{
			ID:      id,
			UserID:  "it-user-" + uuid.NewString(),
			Items:   model.OrderItems{{Name: "Pizza", Price: decimal.NewFromInt(10), Quantity: 1}},
			Amount:  decimal.NewFromInt(12),
			Address: model.Address{},
			Status:  model.OrderStatusFoodProcessing,
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = NewOrderGormRepository(gdb).FindByID(ctx, id)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}
