package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	st, err := ParseOrderStatus("  out FOR delivery ")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusOutForDelivery, st)

	_, err = ParseOrderStatus("Shipped")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		paid     bool
		want     error
	}{
		{OrderStatusFoodProcessing, OrderStatusFoodProcessing, false, nil},
		{OrderStatusFoodProcessing, OrderStatusOutForDelivery, true, nil},
		{OrderStatusFoodProcessing, OrderStatusOutForDelivery, false, ErrOrderNotPaid},
		{OrderStatusFoodProcessing, OrderStatusDelivered, true, ErrIllegalTransition},
		{OrderStatusOutForDelivery, OrderStatusDelivered, true, nil},
		{OrderStatusDelivered, OrderStatusOutForDelivery, true, ErrIllegalTransition},
		{OrderStatus("Lost"), OrderStatusDelivered, true, ErrUnknownStatus},
	}
	for _, tc := range cases {
		err := CanTransition(tc.from, tc.to, tc.paid)
		if tc.want == nil {
			assert.NoError(t, err, "%s -> %s", tc.from, tc.to)
			continue
		}
		assert.ErrorIs(t, err, tc.want, "%s -> %s", tc.from, tc.to)
	}
}

func TestOrderItems_JSONColumn(t *testing.T) {
	var items OrderItems
	require.NoError(t, items.Scan([]byte(`[{"name":"Pizza","price":"10.5","quantity":2}]`)))
	require.Len(t, items, 1)
	assert.Equal(t, "21", items.Subtotal().String())

	v, err := OrderItems(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestCartData_CloneIsIndependent(t *testing.T) {
	c := CartData{"pizza": 1}
	cp := c.Clone()
	cp["pizza"] = 5

	assert.Equal(t, int64(1), c["pizza"])
	assert.NotNil(t, CartData(nil).Clone())
}
