package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mklnz/shopcore/internal/domain"
	"github.com/mklnz/shopcore/internal/port"
	"github.com/mklnz/shopcore/internal/repository"
	"github.com/samber/lo"
)

// orderService coordinates placement and status transitions as single
// postgres transactions spanning the variant and order repositories. It
// holds no state besides the injected pool; concurrent requests are
// serialized by row locks, not in-process synchronization.
type orderService struct {
	pool   *pgxpool.Pool
	orders port.OrderRepository // pool-bound, for reads outside any transaction
}

func NewOrder(pool *pgxpool.Pool) port.OrderService {
	return &orderService{
		pool:   pool,
		orders: repository.NewOrder(pool),
	}
}

func (s *orderService) PlaceOrder(ctx context.Context, customerID, customerName string, lines []domain.OrderLine) (domain.Order, error) {
	var o domain.Order

	if customerID == "" {
		return o, errors.New("customerID is empty")
	}
	if len(lines) == 0 {
		return o, errors.New("no lines in order")
	}
	for i, line := range lines {
		if line.Quantity < 1 {
			return o, fmt.Errorf("line[%d]: quantity must be at least 1", i)
		}
	}

	order, err := repository.WithTx(ctx, s.pool, func(tx pgx.Tx) (domain.Order, error) {
		var (
			variants = repository.NewVariantWithTx(tx)
			orders   = repository.NewOrderWithTx(tx)
		)

		variantIDs := lo.Uniq(lo.Map(lines, func(line domain.OrderLine, _ int) uuid.UUID {
			return line.VariantID
		}))

		found, err := variants.FindManyForUpdate(ctx, variantIDs)
		if err != nil {
			return o, fmt.Errorf("variants.FindManyForUpdate: %w", err)
		}

		// Demand per variant is summed across lines before the stock check,
		// so duplicate variant IDs in one request cannot each pass alone
		// while jointly overdrawing stock.
		demand := make(map[uuid.UUID]int, len(variantIDs))
		for _, line := range lines {
			demand[line.VariantID] += line.Quantity
		}

		checked := make(map[uuid.UUID]struct{}, len(variantIDs))
		for _, line := range lines {
			variant, ok := found[line.VariantID]
			if !ok {
				return o, domain.VariantNotFoundError{VariantID: line.VariantID}
			}

			if _, done := checked[line.VariantID]; done {
				continue
			}
			checked[line.VariantID] = struct{}{}

			if variant.Stock < demand[line.VariantID] {
				return o, domain.InsufficientStockError{SKU: variant.SKU}
			}
		}

		// Snapshot SKU and price per requested line, at this instant.
		var (
			items []domain.OrderItem
			total domain.Money
		)
		for i, line := range lines {
			variant := found[line.VariantID]
			subtotal := variant.Price.Mul(int64(line.Quantity))

			if i == 0 {
				total = subtotal
			} else {
				total, err = total.Add(subtotal)
				if err != nil {
					return o, fmt.Errorf("total.Add: %w", err)
				}
			}

			items = append(items, domain.OrderItem{
				Variant:  domain.VariantRef{ID: variant.ID},
				SKU:      variant.SKU,
				Price:    variant.Price,
				Quantity: line.Quantity,
			})
		}

		for _, variantID := range variantIDs {
			if _, err := variants.AdjustStock(ctx, variantID, -demand[variantID]); err != nil {
				return o, fmt.Errorf("variants.AdjustStock: %w", err)
			}
		}

		persisted, err := orders.InsertOrder(ctx, domain.Order{
			CustomerID:   customerID,
			CustomerName: customerName,
			Items:        items,
			TotalPrice:   total,
		})
		if err != nil {
			return o, fmt.Errorf("orders.InsertOrder: %w", err)
		}

		return persisted, nil
	})
	if err != nil {
		return o, err
	}

	return order, nil
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (domain.Order, error) {
	var o domain.Order

	if _, err := domain.ToOrderStatus(string(status)); err != nil {
		return o, err
	}

	order, err := repository.WithTx(ctx, s.pool, func(tx pgx.Tx) (domain.Order, error) {
		var (
			variants = repository.NewVariantWithTx(tx)
			orders   = repository.NewOrderWithTx(tx)
		)

		order, err := orders.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return o, fmt.Errorf("orders.GetOrderForUpdate: %w", err)
		}

		if !order.Status.CanTransitionTo(status) {
			return o, domain.InvalidStatusTransitionError{From: order.Status, To: status}
		}

		// Compensation runs exactly once, on the edge into cancelled.
		// Cancelled -> cancelled is an accepted no-op and must not credit
		// stock a second time.
		if order.Status != domain.OrderStatusCancelled && status == domain.OrderStatusCancelled {
			for _, item := range order.Items {
				if _, err := variants.AdjustStock(ctx, item.Variant.ID, item.Quantity); err != nil {
					return o, fmt.Errorf("variants.AdjustStock: %w", err)
				}
			}
		}

		if err := orders.UpdateOrderStatus(ctx, orderID, status); err != nil {
			return o, fmt.Errorf("orders.UpdateOrderStatus: %w", err)
		}

		return orders.GetOrder(ctx, orderID)
	})
	if err != nil {
		return o, err
	}

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	return s.orders.GetOrder(ctx, orderID)
}

func (s *orderService) GetOrderExpanded(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	return s.orders.GetOrderExpanded(ctx, orderID)
}

func (s *orderService) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.orders.ListOrders(ctx)
}

func (s *orderService) ListOrdersByCustomer(ctx context.Context, customerName string) ([]domain.Order, error) {
	return s.orders.ListOrdersByCustomer(ctx, customerName)
}
