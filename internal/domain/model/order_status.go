package model

import (
	"errors"
	"strings"
)

// 調理〜配達までの進み具合
type OrderStatus string

const (
	OrderStatusFoodProcessing OrderStatus = "Food Processing"
	OrderStatusOutForDelivery OrderStatus = "Out for delivery"
	OrderStatusDelivered      OrderStatus = "Delivered"
)

var (
	ErrUnknownStatus     = errors.New("unknown order status")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrOrderNotPaid      = errors.New("order is not paid")
)

// 遷移表。ここにない組み合わせは不正
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusFoodProcessing: {OrderStatusOutForDelivery},
	OrderStatusOutForDelivery: {OrderStatusDelivered},
	OrderStatusDelivered:      {},
}

// ParseOrderStatus はラベルを大文字小文字を無視して解釈する。
func ParseOrderStatus(s string) (OrderStatus, error) {
	v := strings.TrimSpace(s)
	for st := range statusTransitions {
		if strings.EqualFold(string(st), v) {
			return st, nil
		}
	}
	return "", ErrUnknownStatus
}

// CanTransition は from -> to が許されるかを返す。
// 調理中から先に進めるには支払い済みであること。
func CanTransition(from, to OrderStatus, paid bool) error {
	if from == to {
		return nil
	}
	next, ok := statusTransitions[from]
	if !ok {
		return ErrUnknownStatus
	}
	for _, n := range next {
		if n == to {
			if from == OrderStatusFoodProcessing && !paid {
				return ErrOrderNotPaid
			}
			return nil
		}
	}
	return ErrIllegalTransition
}
