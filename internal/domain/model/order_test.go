package model

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

// 金額とステータスは丸めず切り詰めずに保存する
func TestOrderColumnsKeepValuesAsGiven(t *testing.T) {
	s, err := schema.Parse(&Order{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	amount := s.LookUpField("Amount")
	require.NotNil(t, amount)
	assert.Equal(t, "numeric", amount.TagSettings["TYPE"])

	status := s.LookUpField("Status")
	require.NotNil(t, status)
	assert.Equal(t, "text", status.TagSettings["TYPE"])
}

func TestOrderItems_ValueAndScan(t *testing.T) {
	items := OrderItems{{Name: "Pizza", Price: decimal.RequireFromString("12.345"), Quantity: 2}}

	v, err := items.Value()
	require.NoError(t, err)

	var got OrderItems
	require.NoError(t, got.Scan([]byte(v.(string))))
	require.Len(t, got, 1)
	assert.Equal(t, "12.345", got[0].Price.String())
	assert.True(t, got.Subtotal().Equal(decimal.RequireFromString("24.69")))

	empty, err := OrderItems(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)
}
