package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/mklnz/shopcore/internal/domain"
)

// VariantRepository is the stock ledger. FindManyForUpdate and AdjustStock
// must run on a transaction-bound repository so the locked read and the
// adjustments share one atomic unit.
type VariantRepository interface {
	InsertVariant(ctx context.Context, variant domain.Variant) (uuid.UUID, error)

	GetVariant(ctx context.Context, variantID uuid.UUID) (domain.Variant, error)

	// FindManyForUpdate reads the variants with row locks, keyed by ID.
	// Missing IDs are simply absent from the result.
	FindManyForUpdate(ctx context.Context, variantIDs []uuid.UUID) (map[uuid.UUID]domain.Variant, error)

	// AdjustStock applies a signed delta to the quantity on hand. It does
	// not enforce non-negativity, sufficiency is the coordinator's
	// precondition checked against the locked pre-adjustment snapshot.
	AdjustStock(ctx context.Context, variantID uuid.UUID, delta int) (domain.Variant, error)

	ListVariantsByProduct(ctx context.Context, productID uuid.UUID) ([]domain.Variant, error)
	DeleteVariantsByProduct(ctx context.Context, productID uuid.UUID) error
}
