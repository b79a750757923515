package domain

import (
	"time"

	"github.com/google/uuid"
)

type Order struct {
	ID           uuid.UUID
	CustomerID   string
	CustomerName string
	Items        []OrderItem
	TotalPrice   Money
	Status       OrderStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem is an immutable snapshot of one purchased variant at order
// time. SKU and Price are captured from the variant when the order is
// placed and never follow later catalog changes.
type OrderItem struct {
	Variant  VariantRef
	SKU      string
	Price    Money
	Quantity int

	CreatedAt time.Time
}

// OrderLine is one requested (variant, quantity) pair of a placement
// request, before any validation or price snapshotting.
type OrderLine struct {
	VariantID uuid.UUID
	Quantity  int
}
