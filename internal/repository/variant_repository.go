package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mklnz/shopcore/internal/domain"
	"github.com/mklnz/shopcore/internal/port"
	"github.com/samber/lo"
	"golang.org/x/text/currency"
)

const variantColumns = "id, product_id, sku, size, color, price_amount, price_currency, stock, created_at, updated_at"

type variantRepository struct {
	db DB
}

func NewVariant(pool *pgxpool.Pool) port.VariantRepository {
	return &variantRepository{db: pool}
}

func NewVariantWithTx(tx pgx.Tx) port.VariantRepository {
	return &variantRepository{db: tx}
}

func (r *variantRepository) InsertVariant(ctx context.Context, variant domain.Variant) (uuid.UUID, error) {
	if variant.SKU == "" {
		return uuid.Nil, errors.New("sku is empty")
	}
	if variant.Price.IsNegative() {
		return uuid.Nil, errors.New("price is negative")
	}
	if variant.Stock < 0 {
		return uuid.Nil, errors.New("stock is negative")
	}

	var variantID uuid.UUID

	err := r.db.QueryRow(ctx,
		`INSERT INTO variants (product_id, sku, size, color, price_amount, price_currency, stock)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		variant.ProductID, variant.SKU,
		nilIfEmpty(variant.Size), nilIfEmpty(variant.Color),
		variant.Price.Amount, variant.Price.Currency.String(), variant.Stock,
	).Scan(&variantID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("row.Scan: %w", err)
	}

	return variantID, nil
}

func (r *variantRepository) GetVariant(ctx context.Context, variantID uuid.UUID) (domain.Variant, error) {
	var v domain.Variant

	row := r.db.QueryRow(ctx,
		`SELECT `+variantColumns+` FROM variants WHERE id = $1`, variantID)

	v, err := scanVariant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return v, domain.VariantNotFoundError{VariantID: variantID}
		}
		return v, fmt.Errorf("scanVariant: %w", err)
	}

	return v, nil
}

func (r *variantRepository) FindManyForUpdate(ctx context.Context, variantIDs []uuid.UUID) (map[uuid.UUID]domain.Variant, error) {
	if len(variantIDs) == 0 {
		return nil, errors.New("variantIDs is empty")
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+variantColumns+` FROM variants WHERE id = ANY($1) FOR UPDATE`, variantIDs)
	if err != nil {
		return nil, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID]domain.Variant, len(variantIDs))

	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("scanVariant: %w", err)
		}
		result[v.ID] = v
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return result, nil
}

func (r *variantRepository) AdjustStock(ctx context.Context, variantID uuid.UUID, delta int) (domain.Variant, error) {
	var v domain.Variant

	row := r.db.QueryRow(ctx,
		`UPDATE variants
		 SET stock = stock + $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+variantColumns,
		variantID, delta)

	v, err := scanVariant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return v, domain.VariantNotFoundError{VariantID: variantID}
		}
		return v, fmt.Errorf("scanVariant: %w", err)
	}

	return v, nil
}

func (r *variantRepository) ListVariantsByProduct(ctx context.Context, productID uuid.UUID) ([]domain.Variant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+variantColumns+` FROM variants WHERE product_id = $1 ORDER BY sku`, productID)
	if err != nil {
		return nil, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	var variants []domain.Variant

	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("scanVariant: %w", err)
		}
		variants = append(variants, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return variants, nil
}

func (r *variantRepository) DeleteVariantsByProduct(ctx context.Context, productID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM variants WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("db.Exec: %w", err)
	}

	return nil
}

func scanVariant(row pgx.Row) (domain.Variant, error) {
	var (
		v            domain.Variant
		size, color  *string
		currencyCode string
	)

	err := row.Scan(&v.ID, &v.ProductID, &v.SKU, &size, &color,
		&v.Price.Amount, &currencyCode, &v.Stock, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return v, err
	}

	parsedCurrency, err := currency.ParseISO(currencyCode)
	if err != nil {
		return v, fmt.Errorf("currency[%s] is not valid: %w", currencyCode, err)
	}

	v.Price.Currency = parsedCurrency
	v.Size = lo.FromPtr(size)
	v.Color = lo.FromPtr(color)

	return v, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
