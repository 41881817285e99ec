package payment

import (
	"fmt"
	"net/url"

	"foodorder/internal/domain/model"

	"github.com/shopspring/decimal"
)

// DeliveryItemName is the label of the fixed delivery surcharge line.
const DeliveryItemName = "Delivery Charges"

var hundred = decimal.NewFromInt(100)

// MinorUnits converts a major-unit amount (dollars) to cents, rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// BuildLineItems prices every order item and appends exactly one delivery line.
func BuildLineItems(items model.OrderItems, deliveryFee decimal.Decimal, currency string) []LineItem {
	out := make([]LineItem, 0, len(items)+1)
	for _, it := range items {
		out = append(out, LineItem{
			Name:       it.Name,
			UnitAmount: MinorUnits(it.Price),
			Quantity:   it.Quantity,
			Currency:   currency,
		})
	}
	out = append(out, LineItem{
		Name:       DeliveryItemName,
		UnitAmount: MinorUnits(deliveryFee),
		Quantity:   1,
		Currency:   currency,
	})
	return out
}

// ExpectedTotal is Σ price×quantity plus the delivery fee.
func ExpectedTotal(items model.OrderItems, deliveryFee decimal.Decimal) decimal.Decimal {
	return items.Subtotal().Add(deliveryFee)
}

// RedirectURLs builds the success and cancel URLs the gateway sends the browser back to.
func RedirectURLs(frontendURL, orderID string) (successURL, cancelURL string) {
	id := url.QueryEscape(orderID)
	successURL = fmt.Sprintf("%s/verify?success=true&orderId=%s", frontendURL, id)
	cancelURL = fmt.Sprintf("%s/verify?success=false&orderId=%s", frontendURL, id)
	return successURL, cancelURL
}
