package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/mklnz/shopcore/internal/domain"
)

type ProductRepository interface {
	InsertProduct(ctx context.Context, product domain.Product) (uuid.UUID, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)

	// DeleteProduct removes the product and all of its variants in one
	// transaction.
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
}
