package domain

import (
	"time"

	"github.com/google/uuid"
)

// Variant is the stock-bearing unit of a product: a specific size/color
// combination with its own SKU, price and quantity on hand. Stock is only
// ever mutated through the variant repository's AdjustStock inside a
// transaction, never by direct assignment.
type Variant struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	SKU       string
	Size      string
	Color     string
	Price     Money
	Stock     int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// VariantRef points at a variant by ID and may additionally carry the
// resolved variant when a read path joined it in. A nil Resolved means the
// variant was not loaded (or no longer exists); the snapshot fields on the
// order item remain the permanent record either way.
type VariantRef struct {
	ID       uuid.UUID
	Resolved *Variant
}

func (r VariantRef) IsResolved() bool {
	return r.Resolved != nil
}
