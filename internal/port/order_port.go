package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/mklnz/shopcore/internal/domain"
)

// OrderRepository owns order documents. Orders are immutable once created
// except for the status field; mutating reads (GetOrderForUpdate,
// UpdateOrderStatus) must run on a transaction-bound repository.
type OrderRepository interface {
	// InsertOrder persists the order and its items, forcing status to
	// pending regardless of the caller's input.
	InsertOrder(ctx context.Context, order domain.Order) (domain.Order, error)

	GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error)

	// GetOrderForUpdate reads the order with a row lock so a concurrent
	// status change on the same order waits instead of losing the update.
	GetOrderForUpdate(ctx context.Context, orderID uuid.UUID) (domain.Order, error)

	// GetOrderExpanded joins current variants into the items, resolving
	// each VariantRef where the variant still exists.
	GetOrderExpanded(ctx context.Context, orderID uuid.UUID) (domain.Order, error)

	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) error

	ListOrders(ctx context.Context) ([]domain.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerName string) ([]domain.Order, error)
}
