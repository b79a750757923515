package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/mklnz/shopcore/internal/domain"
)

// OrderService coordinates order placement and status transitions as
// all-or-nothing units of work across the variant and order repositories.
type OrderService interface {
	// PlaceOrder atomically checks stock for every line, decrements it,
	// snapshots SKU and price into an immutable order and persists it.
	// On any failure nothing is committed and the original error is
	// returned.
	PlaceOrder(ctx context.Context, customerID, customerName string, lines []domain.OrderLine) (domain.Order, error)

	// UpdateOrderStatus transitions the order, restoring stock exactly
	// once when moving from a non-cancelled status into cancelled.
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (domain.Order, error)

	GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
	GetOrderExpanded(ctx context.Context, orderID uuid.UUID) (domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerName string) ([]domain.Order, error)
}
