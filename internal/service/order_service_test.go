package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/goleak"
	"golang.org/x/text/currency"

	"github.com/mklnz/shopcore/internal/domain"
	"github.com/mklnz/shopcore/internal/port"
	"github.com/mklnz/shopcore/internal/repository"
	"github.com/mklnz/shopcore/internal/service"
)

type orderServiceSuite struct {
	suite.Suite

	pool      *pgxpool.Pool
	svc       port.OrderService
	variants  port.VariantRepository
	products  port.ProductRepository
	container testcontainers.Container
}

// entry point to run the tests in the suite
func TestOrderServiceSuite(t *testing.T) {
	// Verifies no leaks after all tests in the suite run.
	defer goleak.VerifyNone(t)

	suite.Run(t, new(orderServiceSuite))
}

// before all tests in the suite
func (suite *orderServiceSuite) SetupSuite() {
	ctx := suite.T().Context()

	var (
		connStr string
		err     error
	)

	suite.container, connStr, err = startPostgres(ctx)
	suite.NoError(err)

	suite.pool, err = pgxpool.New(ctx, connStr)
	suite.NoError(err)

	suite.svc = service.NewOrder(suite.pool)
	suite.variants = repository.NewVariant(suite.pool)
	suite.products = repository.NewProduct(suite.pool)
}

// after all tests in the suite
func (suite *orderServiceSuite) TearDownSuite() {
	ctx := suite.T().Context()

	if suite.pool != nil {
		suite.pool.Close()
	}
	if suite.container != nil {
		suite.NoError(suite.container.Terminate(ctx))
	}
}

func (suite *orderServiceSuite) TestPlaceOrderSnapshotsAndDecrements() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()

	v1 := suite.seedVariant(10, "25.50")
	v2 := suite.seedVariant(5, "10.00")

	order, err := suite.svc.PlaceOrder(ctx, gofakeit.UUID(), gofakeit.Name(), []domain.OrderLine{
		{VariantID: v1.ID, Quantity: 2},
		{VariantID: v2.ID, Quantity: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 2)

	// total = 2*25.50 + 3*10.00
	assert.True(t, decimal.RequireFromString("81.00").Equal(order.TotalPrice.Amount),
		"total was %s", order.TotalPrice.Amount)

	// item snapshots carry SKU and price at order time
	assert.Equal(t, v1.SKU, order.Items[0].SKU)
	assert.True(t, v1.Price.Amount.Equal(order.Items[0].Price.Amount))
	assert.Equal(t, 2, order.Items[0].Quantity)

	suite.assertStock(v1.ID, 8)
	suite.assertStock(v2.ID, 2)
}

func (suite *orderServiceSuite) TestPlaceOrderTotalUnaffectedByLaterPriceChange() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()

	variant := suite.seedVariant(10, "20.00")

	order, err := suite.svc.PlaceOrder(ctx, gofakeit.UUID(), gofakeit.Name(), []domain.OrderLine{
		{VariantID: variant.ID, Quantity: 1},
	})
	require.NoError(t, err)

	_, err = suite.pool.Exec(ctx, "UPDATE variants SET price_amount = 99 WHERE id = $1", variant.ID)
	require.NoError(t, err)

	reread, err := suite.svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("20.00").Equal(reread.TotalPrice.Amount))
	assert.True(t, decimal.RequireFromString("20.00").Equal(reread.Items[0].Price.Amount))
}

func (suite *orderServiceSuite) TestPlaceOrderDuplicateLinesSummed() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()

	variant := suite.seedVariant(10, "5.00")

	// each line alone fits, the sum does not
	_, err := suite.svc.PlaceOrder(ctx, gofakeit.UUID(), gofakeit.Name(), []domain.OrderLine{
		{VariantID: variant.ID, Quantity: 6},
		{VariantID: variant.ID, Quantity: 6},
	})

	var insufficient domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, variant.SKU, insufficient.SKU)

	suite.assertStock(variant.ID, 10)
	suite.assertOrderCount(0)

	// a fitting sum decrements once, keeps both lines
	order, err := suite.svc.PlaceOrder(ctx, gofakeit.UUID(), gofakeit.Name(), []domain.OrderLine{
		{VariantID: variant.ID, Quantity: 3},
		{VariantID: variant.ID, Quantity: 4},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 2)

	suite.assertStock(variant.ID, 3)
}

func (suite *orderServiceSuite) TestPlaceOrderVariantNotFound() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()

	variant := suite.seedVariant(10, "5.00")
	missingID := uuid.MustParse(gofakeit.UUID())

	_, err := suite.svc.PlaceOrder(ctx, gofakeit.UUID(), gofakeit.Name(), []domain.OrderLine{
		{VariantID: variant.ID, Quantity: 1},
		{VariantID: missingID, Quantity: 1},
	})

	var notFound domain.VariantNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, missingID, notFound.VariantID)

	// nothing committed
	suite.assertStock(variant.ID, 10)
	suite.assertOrderCount(0)
}

func (suite *orderServiceSuite) TestPlaceOrderInvalidInput() {
	t := suite.T()
	ctx := t.Context()

	_, err := suite.svc.PlaceOrder(ctx, "", gofakeit.Name(), []domain.OrderLine{
		{VariantID: uuid.MustParse(gofakeit.UUID()), Quantity: 1},
	})
	require.EqualError(t, err, "customerID is empty")

	_, err = suite.svc.PlaceOrder(ctx, gofakeit.UUID(), gofakeit.Name(), nil)
	require.EqualError(t, err, "no lines in order")

	_, err = suite.svc.PlaceOrder(ctx, gofakeit.UUID(), gofakeit.Name(), []domain.OrderLine{
		{VariantID: uuid.MustParse(gofakeit.UUID()), Quantity: 0},
	})
	require.EqualError(t, err, "line[0]: quantity must be at least 1")
}

// The end-to-end scenario: stock 10, place 4, fail 7, cancel, back to 10.
func (suite *orderServiceSuite) TestPlaceAndCancelScenario() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()

	variant := suite.seedVariant(10, "12.00")
	customerID := gofakeit.UUID()

	first, err := suite.svc.PlaceOrder(ctx, customerID, gofakeit.Name(), []domain.OrderLine{
		{VariantID: variant.ID, Quantity: 4},
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("48.00").Equal(first.TotalPrice.Amount))
	suite.assertStock(variant.ID, 6)

	_, err = suite.svc.PlaceOrder(ctx, customerID, gofakeit.Name(), []domain.OrderLine{
		{VariantID: variant.ID, Quantity: 7},
	})
	var insufficient domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	suite.assertStock(variant.ID, 6)

	cancelled, err := suite.svc.UpdateOrderStatus(ctx, first.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	suite.assertStock(variant.ID, 10)

	// cancelling again must not credit stock a second time
	cancelled, err = suite.svc.UpdateOrderStatus(ctx, first.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	suite.assertStock(variant.ID, 10)
}

func (suite *orderServiceSuite) TestUpdateOrderStatusNoCompensationOnOtherEdges() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()

	variant := suite.seedVariant(10, "7.00")

	order, err := suite.svc.PlaceOrder(ctx, gofakeit.UUID(), gofakeit.Name(), []domain.OrderLine{
		{VariantID: variant.ID, Quantity: 3},
	})
	require.NoError(t, err)
	suite.assertStock(variant.ID, 7)

	for _, status := range []domain.OrderStatus{domain.OrderStatusCompleted, domain.OrderStatusShipped} {
		_, err = suite.svc.UpdateOrderStatus(ctx, order.ID, status)
		require.NoError(t, err)
		suite.assertStock(variant.ID, 7)
	}
}

func (suite *orderServiceSuite) TestUpdateOrderStatusNotFound() {
	t := suite.T()

	_, err := suite.svc.UpdateOrderStatus(t.Context(), uuid.MustParse(gofakeit.UUID()), domain.OrderStatusShipped)

	var notFound domain.OrderNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func (suite *orderServiceSuite) TestUpdateOrderStatusCancelledIsTerminal() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()

	variant := suite.seedVariant(5, "3.00")

	order, err := suite.svc.PlaceOrder(ctx, gofakeit.UUID(), gofakeit.Name(), []domain.OrderLine{
		{VariantID: variant.ID, Quantity: 1},
	})
	require.NoError(t, err)

	_, err = suite.svc.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)

	_, err = suite.svc.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusShipped)

	var invalid domain.InvalidStatusTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, domain.OrderStatusCancelled, invalid.From)
	assert.Equal(t, domain.OrderStatusShipped, invalid.To)
}

// Two concurrent placements of 6 against stock 10: exactly one succeeds,
// final stock is 4, never negative.
func (suite *orderServiceSuite) TestConcurrentPlacements() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()

	variant := suite.seedVariant(10, "9.99")

	var wg sync.WaitGroup
	errs := make([]error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = suite.svc.PlaceOrder(ctx, gofakeit.UUID(), gofakeit.Name(), []domain.OrderLine{
				{VariantID: variant.ID, Quantity: 6},
			})
		}(i)
	}
	wg.Wait()

	var insufficientCount, successCount int
	for _, err := range errs {
		var insufficient domain.InsufficientStockError
		switch {
		case err == nil:
			successCount++
		case assert.ErrorAs(t, err, &insufficient):
			insufficientCount++
		}
	}

	assert.Equal(t, 1, successCount)
	assert.Equal(t, 1, insufficientCount)

	suite.assertStock(variant.ID, 4)
	suite.assertOrderCount(1)
}

func (suite *orderServiceSuite) TestListOrders() {
	defer suite.deleteAll()

	t := suite.T()
	ctx := t.Context()

	variant := suite.seedVariant(20, "2.00")
	customerName := gofakeit.Name()

	_, err := suite.svc.PlaceOrder(ctx, gofakeit.UUID(), customerName, []domain.OrderLine{
		{VariantID: variant.ID, Quantity: 1},
	})
	require.NoError(t, err)
	_, err = suite.svc.PlaceOrder(ctx, gofakeit.UUID(), gofakeit.Name(), []domain.OrderLine{
		{VariantID: variant.ID, Quantity: 2},
	})
	require.NoError(t, err)

	orders, err := suite.svc.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	byCustomer, err := suite.svc.ListOrdersByCustomer(ctx, customerName)
	require.NoError(t, err)
	require.Len(t, byCustomer, 1)
	assert.Equal(t, customerName, byCustomer[0].CustomerName)
}

func (suite *orderServiceSuite) seedVariant(stock int, price string) domain.Variant {
	ctx := suite.T().Context()

	productID, err := suite.products.InsertProduct(ctx, domain.Product{
		Name:        gofakeit.ProductName() + " " + gofakeit.UUID(),
		Description: gofakeit.Sentence(8),
		Category:    gofakeit.ProductCategory(),
	})
	suite.NoError(err)

	variantID, err := suite.variants.InsertVariant(ctx, domain.Variant{
		ProductID: productID,
		SKU:       gofakeit.UUID(),
		Price: domain.Money{
			Amount:   decimal.RequireFromString(price),
			Currency: currency.EUR,
		},
		Stock: stock,
	})
	suite.NoError(err)

	variant, err := suite.variants.GetVariant(ctx, variantID)
	suite.NoError(err)

	return variant
}

func (suite *orderServiceSuite) assertStock(variantID uuid.UUID, want int) {
	variant, err := suite.variants.GetVariant(suite.T().Context(), variantID)
	suite.NoError(err)
	suite.Equal(want, variant.Stock)
}

func (suite *orderServiceSuite) assertOrderCount(want int) {
	var count int
	err := suite.pool.QueryRow(suite.T().Context(), "SELECT count(*) FROM orders").Scan(&count)
	suite.NoError(err)
	suite.Equal(want, count)
}

func (suite *orderServiceSuite) deleteAll() {
	_, err := suite.pool.Exec(suite.T().Context(),
		"TRUNCATE TABLE orders, order_items, variants, products CASCADE")
	suite.NoError(err)
}

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
