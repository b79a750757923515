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
)

var ErrProductNotFound = errors.New("product not found")

type productRepository struct {
	db DB
}

func NewProduct(pool *pgxpool.Pool) port.ProductRepository {
	return &productRepository{db: pool}
}

func NewProductWithTx(tx pgx.Tx) port.ProductRepository {
	return &productRepository{db: tx}
}

func (r *productRepository) InsertProduct(ctx context.Context, product domain.Product) (uuid.UUID, error) {
	if product.Name == "" {
		return uuid.Nil, errors.New("name is empty")
	}

	var productID uuid.UUID

	err := r.db.QueryRow(ctx,
		`INSERT INTO products (name, description, category)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		product.Name, product.Description, product.Category,
	).Scan(&productID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("row.Scan: %w", err)
	}

	return productID, nil
}

func (r *productRepository) GetProduct(ctx context.Context, productID uuid.UUID) (domain.Product, error) {
	var p domain.Product

	err := r.db.QueryRow(ctx,
		`SELECT id, name, description, category, created_at, updated_at
		 FROM products WHERE id = $1`, productID,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, ErrProductNotFound
		}
		return p, fmt.Errorf("row.Scan: %w", err)
	}

	return p, nil
}

func (r *productRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, description, category, created_at, updated_at
		 FROM products ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	var products []domain.Product

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return products, nil
}

func (r *productRepository) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if productID == uuid.Nil {
		return errors.New("productID is empty")
	}

	_, err := WithTx(ctx, r.db, func(tx pgx.Tx) (struct{}, error) {
		if err := NewVariantWithTx(tx).DeleteVariantsByProduct(ctx, productID); err != nil {
			return struct{}{}, fmt.Errorf("DeleteVariantsByProduct: %w", err)
		}

		cmdTag, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, productID)
		if err != nil {
			return struct{}{}, fmt.Errorf("tx.Exec: %w", err)
		}

		if cmdTag.RowsAffected() == 0 {
			return struct{}{}, ErrProductNotFound
		}

		return struct{}{}, nil
	})
	if err != nil {
		return fmt.Errorf("WithTx: %w", err)
	}

	return nil
}
