package repository_test

import (
	"context"
	"path/filepath"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/text/currency"

	"github.com/mklnz/shopcore/internal/domain"
)

func startPostgres(ctx context.Context) (testcontainers.Container, string, error) {
	container, err := postgres.Run(ctx, "postgres:17-alpine",
		postgres.WithInitScripts(filepath.Join("..", "..", "migrations", "001_init.sql")),
		postgres.WithDatabase("shopcore"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return container, "", err
	}

	return container, connStr, nil
}

func fakeProduct() domain.Product {
	return domain.Product{
		// suffix keeps the unique name constraint happy across cases
		Name:        gofakeit.ProductName() + " " + gofakeit.UUID(),
		Description: gofakeit.Sentence(8),
		Category:    gofakeit.ProductCategory(),
	}
}

func fakeVariant(productID uuid.UUID) domain.Variant {
	return domain.Variant{
		ProductID: productID,
		SKU:       gofakeit.UUID(),
		Size:      gofakeit.RandomString([]string{"S", "M", "L", "XL"}),
		Color:     gofakeit.Color(),
		Price: domain.Money{
			Amount:   decimal.NewFromFloat(gofakeit.Price(1, 100)),
			Currency: currency.EUR,
		},
		Stock: gofakeit.Number(1, 100),
	}
}
