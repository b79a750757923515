package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// VariantNotFoundError reports a placement line referencing a variant ID
// that does not exist.
type VariantNotFoundError struct {
	VariantID uuid.UUID
}

func (e VariantNotFoundError) Error() string {
	return fmt.Sprintf("variant with ID %s not found", e.VariantID)
}

// InsufficientStockError reports a requested quantity exceeding the
// quantity on hand for the named SKU.
type InsufficientStockError struct {
	SKU string
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant SKU %s", e.SKU)
}

type OrderNotFoundError struct {
	OrderID uuid.UUID
}

func (e OrderNotFoundError) Error() string {
	return "order not found"
}

type InvalidStatusTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e InvalidStatusTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}
