package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mklnz/shopcore/internal/domain"
	"github.com/mklnz/shopcore/internal/port"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const orderColumns = "id, customer_id, customer_name, total_amount, total_currency, status, created_at, updated_at"

type orderRepository struct {
	db DB
}

func NewOrder(pool *pgxpool.Pool) port.OrderRepository {
	return &orderRepository{db: pool}
}

func NewOrderWithTx(tx pgx.Tx) port.OrderRepository {
	return &orderRepository{db: tx}
}

func (r *orderRepository) InsertOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	var o domain.Order

	if len(order.Items) == 0 {
		return o, errors.New("no items in order")
	}
	if order.CustomerID == "" {
		return o, errors.New("customerID is empty")
	}

	persisted, err := WithTx(ctx, r.db, func(tx pgx.Tx) (domain.Order, error) {
		inserted := order
		inserted.Items = append([]domain.OrderItem(nil), order.Items...)
		// Status is forced to pending regardless of caller input.
		inserted.Status = domain.OrderStatusPending

		err := tx.QueryRow(ctx,
			`INSERT INTO orders (customer_id, customer_name, total_amount, total_currency, status)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, created_at, updated_at`,
			order.CustomerID, order.CustomerName,
			order.TotalPrice.Amount, order.TotalPrice.Currency.String(),
			string(domain.OrderStatusPending),
		).Scan(&inserted.ID, &inserted.CreatedAt, &inserted.UpdatedAt)
		if err != nil {
			return inserted, fmt.Errorf("insert order: %w", err)
		}

		// TODO: batch with pgx.Batch once orders grow beyond a handful of lines
		for i, item := range order.Items {
			err := tx.QueryRow(ctx,
				`INSERT INTO order_items (order_id, position, variant_id, sku, price_amount, price_currency, quantity)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)
				 RETURNING created_at`,
				inserted.ID, i, item.Variant.ID, item.SKU,
				item.Price.Amount, item.Price.Currency.String(), item.Quantity,
			).Scan(&inserted.Items[i].CreatedAt)
			if err != nil {
				return inserted, fmt.Errorf("insert order item[%d]: %w", i, err)
			}
		}

		return inserted, nil
	})
	if err != nil {
		return o, fmt.Errorf("WithTx: %w", err)
	}

	return persisted, nil
}

func (r *orderRepository) GetOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	return r.getOrder(ctx, orderID, false)
}

func (r *orderRepository) GetOrderForUpdate(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	return r.getOrder(ctx, orderID, true)
}

func (r *orderRepository) getOrder(ctx context.Context, orderID uuid.UUID, forUpdate bool) (domain.Order, error) {
	var o domain.Order

	if orderID == uuid.Nil {
		return o, errors.New("orderID is empty")
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	o, err := scanOrder(r.db.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return o, domain.OrderNotFoundError{OrderID: orderID}
		}
		return o, fmt.Errorf("scanOrder: %w", err)
	}

	items, err := r.getOrderItems(ctx, orderID)
	if err != nil {
		return o, fmt.Errorf("r.getOrderItems: %w", err)
	}
	o.Items = items

	return o, nil
}

func (r *orderRepository) getOrderItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT variant_id, sku, price_amount, price_currency, quantity, created_at
		 FROM order_items WHERE order_id = $1 ORDER BY position`, orderID)
	if err != nil {
		return nil, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem

	for rows.Next() {
		item, err := scanOrderItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanOrderItem: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return items, nil
}

func (r *orderRepository) GetOrderExpanded(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return o, domain.OrderNotFoundError{OrderID: orderID}
		}
		return o, fmt.Errorf("scanOrder: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT i.variant_id, i.sku, i.price_amount, i.price_currency, i.quantity, i.created_at,
		        v.id, v.product_id, v.sku, v.size, v.color, v.price_amount, v.price_currency, v.stock, v.created_at, v.updated_at
		 FROM order_items i
		 LEFT JOIN variants v ON v.id = i.variant_id
		 WHERE i.order_id = $1
		 ORDER BY i.position`, orderID)
	if err != nil {
		return o, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanOrderItemJoinVariant(rows)
		if err != nil {
			return o, fmt.Errorf("scanOrderItemJoinVariant: %w", err)
		}
		o.Items = append(o.Items, item)
	}

	if err := rows.Err(); err != nil {
		return o, fmt.Errorf("rows.Err: %w", err)
	}

	return o, nil
}

func (r *orderRepository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) error {
	if orderID == uuid.Nil {
		return errors.New("orderID is empty")
	}
	if status == "" {
		return errors.New("status is empty")
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`,
		orderID, string(status))
	if err != nil {
		return fmt.Errorf("db.Exec: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return domain.OrderNotFoundError{OrderID: orderID}
	}

	return nil
}

func (r *orderRepository) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return r.listOrders(ctx, "", nil)
}

func (r *orderRepository) ListOrdersByCustomer(ctx context.Context, customerName string) ([]domain.Order, error) {
	if customerName == "" {
		return nil, errors.New("customerName is empty")
	}

	return r.listOrders(ctx, ` WHERE o.customer_name = $1`, []any{customerName})
}

// listOrders joins orders with their items, newest order first, and groups
// the rows back into domain orders preserving that ordering.
func (r *orderRepository) listOrders(ctx context.Context, where string, args []any) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx,
		`SELECT o.id, o.customer_id, o.customer_name, o.total_amount, o.total_currency, o.status, o.created_at, o.updated_at,
		        i.variant_id, i.sku, i.price_amount, i.price_currency, i.quantity, i.created_at
		 FROM orders o
		 JOIN order_items i ON i.order_id = o.id`+where+`
		 ORDER BY o.created_at DESC, o.id, i.position`, args...)
	if err != nil {
		return nil, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	var (
		orders  []domain.Order
		indexOf = make(map[uuid.UUID]int)
	)

	for rows.Next() {
		order, item, err := scanOrderJoinItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanOrderJoinItem: %w", err)
		}

		idx, exists := indexOf[order.ID]
		if !exists {
			idx = len(orders)
			indexOf[order.ID] = idx
			orders = append(orders, order)
		}

		orders[idx].Items = append(orders[idx].Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return orders, nil
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o            domain.Order
		currencyCode string
		status       string
	)

	err := row.Scan(&o.ID, &o.CustomerID, &o.CustomerName,
		&o.TotalPrice.Amount, &currencyCode, &status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}

	o.Status, err = domain.ToOrderStatus(status)
	if err != nil {
		return o, fmt.Errorf("domain.ToOrderStatus[%s]: %w", status, err)
	}

	o.TotalPrice.Currency, err = currency.ParseISO(currencyCode)
	if err != nil {
		return o, fmt.Errorf("currency[%s] is not valid: %w", currencyCode, err)
	}

	return o, nil
}

func scanOrderItem(row pgx.Row) (domain.OrderItem, error) {
	var (
		item         domain.OrderItem
		currencyCode string
	)

	err := row.Scan(&item.Variant.ID, &item.SKU,
		&item.Price.Amount, &currencyCode, &item.Quantity, &item.CreatedAt)
	if err != nil {
		return item, err
	}

	item.Price.Currency, err = currency.ParseISO(currencyCode)
	if err != nil {
		return item, fmt.Errorf("currency[%s] is not valid: %w", currencyCode, err)
	}

	return item, nil
}

func scanOrderJoinItem(row pgx.Row) (domain.Order, domain.OrderItem, error) {
	var (
		o                 domain.Order
		item              domain.OrderItem
		orderCurrencyCode string
		itemCurrencyCode  string
		status            string
	)

	err := row.Scan(&o.ID, &o.CustomerID, &o.CustomerName,
		&o.TotalPrice.Amount, &orderCurrencyCode, &status, &o.CreatedAt, &o.UpdatedAt,
		&item.Variant.ID, &item.SKU, &item.Price.Amount, &itemCurrencyCode, &item.Quantity, &item.CreatedAt)
	if err != nil {
		return o, item, err
	}

	o.Status, err = domain.ToOrderStatus(status)
	if err != nil {
		return o, item, fmt.Errorf("domain.ToOrderStatus[%s]: %w", status, err)
	}

	o.TotalPrice.Currency, err = currency.ParseISO(orderCurrencyCode)
	if err != nil {
		return o, item, fmt.Errorf("currency[%s] is not valid: %w", orderCurrencyCode, err)
	}

	item.Price.Currency, err = currency.ParseISO(itemCurrencyCode)
	if err != nil {
		return o, item, fmt.Errorf("currency[%s] is not valid: %w", itemCurrencyCode, err)
	}

	return o, item, nil
}

func scanOrderItemJoinVariant(row pgx.Row) (domain.OrderItem, error) {
	var (
		item             domain.OrderItem
		itemCurrencyCode string

		variantID          *uuid.UUID
		productID          *uuid.UUID
		sku                *string
		size, color        *string
		priceAmount        *decimal.Decimal
		priceCurrency      *string
		stock              *int
		vCreated, vUpdated *time.Time
	)

	err := row.Scan(&item.Variant.ID, &item.SKU,
		&item.Price.Amount, &itemCurrencyCode, &item.Quantity, &item.CreatedAt,
		&variantID, &productID, &sku, &size, &color,
		&priceAmount, &priceCurrency, &stock, &vCreated, &vUpdated)
	if err != nil {
		return item, err
	}

	item.Price.Currency, err = currency.ParseISO(itemCurrencyCode)
	if err != nil {
		return item, fmt.Errorf("currency[%s] is not valid: %w", itemCurrencyCode, err)
	}

	// Variant deleted since the order was placed: the ref stays unresolved,
	// the snapshot fields remain the record of what was sold.
	if variantID == nil {
		return item, nil
	}

	parsedCurrency, err := currency.ParseISO(lo.FromPtr(priceCurrency))
	if err != nil {
		return item, fmt.Errorf("currency[%s] is not valid: %w", lo.FromPtr(priceCurrency), err)
	}

	item.Variant.Resolved = &domain.Variant{
		ID:        *variantID,
		ProductID: lo.FromPtr(productID),
		SKU:       lo.FromPtr(sku),
		Size:      lo.FromPtr(size),
		Color:     lo.FromPtr(color),
		Price:     domain.Money{Amount: lo.FromPtr(priceAmount), Currency: parsedCurrency},
		Stock:     lo.FromPtr(stock),
		CreatedAt: lo.FromPtr(vCreated),
		UpdatedAt: lo.FromPtr(vUpdated),
	}

	return item, nil
}
