package domain

import "errors"

type OrderStatus string

// remember to add new statuses to the validOrderStatuses map
const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var validOrderStatuses = map[OrderStatus]struct{}{
	OrderStatusPending:   {},
	OrderStatusCompleted: {},
	OrderStatusShipped:   {},
	OrderStatusCancelled: {},
}

func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := validOrderStatuses[status]; ok {
		return status, nil
	}

	return "", errors.New("invalid order status")
}

func OrderStatuses() []OrderStatus {
	result := make([]OrderStatus, 0, len(validOrderStatuses))
	for status := range validOrderStatuses {
		result = append(result, status)
	}
	return result
}

// CanTransitionTo reports whether an order may move from s to next.
// Cancelled is terminal: stock compensation already ran and nothing
// un-runs it. Repeating the current status is an idempotent no-op,
// which keeps cancelled -> cancelled accepted without a second
// compensation. All other pairs are allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if _, ok := validOrderStatuses[next]; !ok {
		return false
	}

	if s == next {
		return true
	}

	return s != OrderStatusCancelled
}
