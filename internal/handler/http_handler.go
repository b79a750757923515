package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mklnz/shopcore/internal/domain"
	"github.com/mklnz/shopcore/internal/port"
	"github.com/mklnz/shopcore/internal/repository"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Handler is the request layer over the order service and the catalog
// repositories. Authentication and role checks are expected to happen in
// middleware before these handlers run.
type Handler struct {
	orders   port.OrderService
	variants port.VariantRepository
	products port.ProductRepository
}

func New(orders port.OrderService, variants port.VariantRepository, products port.ProductRepository) *Handler {
	return &Handler{
		orders:   orders,
		variants: variants,
		products: products,
	}
}

func (h *Handler) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Post("/orders", h.PlaceOrder)
	api.Get("/orders", h.ListOrders)
	api.Get("/orders/:id", h.GetOrder)
	api.Patch("/orders/:id/status", h.UpdateOrderStatus)

	api.Post("/products", h.CreateProduct)
	api.Get("/products", h.ListProducts)
	api.Get("/products/:id", h.GetProduct)
	api.Delete("/products/:id", h.DeleteProduct)

	api.Post("/variants", h.CreateVariant)
	api.Get("/variants/:id", h.GetVariant)
}

type placeOrderRequest struct {
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	Items        []struct {
		VariantID string `json:"variant_id"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
}

type moneyResponse struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type orderItemResponse struct {
	VariantID string           `json:"variant_id"`
	SKU       string           `json:"sku"`
	Price     moneyResponse    `json:"price"`
	Quantity  int              `json:"quantity"`
	Variant   *variantResponse `json:"variant,omitempty"`
}

type orderResponse struct {
	ID           string              `json:"id"`
	CustomerID   string              `json:"customer_id"`
	CustomerName string              `json:"customer_name"`
	Items        []orderItemResponse `json:"items"`
	TotalPrice   moneyResponse       `json:"total_price"`
	Status       string              `json:"status"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

type variantResponse struct {
	ID        string        `json:"id"`
	ProductID string        `json:"product_id"`
	SKU       string        `json:"sku"`
	Size      string        `json:"size,omitempty"`
	Color     string        `json:"color,omitempty"`
	Price     moneyResponse `json:"price"`
	Stock     int           `json:"stock"`
}

func (h *Handler) PlaceOrder(c *fiber.Ctx) error {
	var req placeOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if req.CustomerID == "" || len(req.Items) == 0 {
		return badRequest(c, "customer_id and items are required")
	}

	lines := make([]domain.OrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		variantID, err := uuid.Parse(item.VariantID)
		if err != nil {
			return badRequest(c, "invalid variant_id")
		}
		if item.Quantity < 1 {
			return badRequest(c, "quantity must be at least 1")
		}
		lines = append(lines, domain.OrderLine{VariantID: variantID, Quantity: item.Quantity})
	}

	order, err := h.orders.PlaceOrder(c.UserContext(), req.CustomerID, req.CustomerName, lines)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toOrderResponse(order))
}

func (h *Handler) GetOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid order id")
	}

	var order domain.Order
	if c.Query("expand") == "variants" {
		order, err = h.orders.GetOrderExpanded(c.UserContext(), orderID)
	} else {
		order, err = h.orders.GetOrder(c.UserContext(), orderID)
	}
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(toOrderResponse(order))
}

func (h *Handler) ListOrders(c *fiber.Ctx) error {
	var (
		orders []domain.Order
		err    error
	)

	if customer := c.Query("customer"); customer != "" {
		orders, err = h.orders.ListOrdersByCustomer(c.UserContext(), customer)
	} else {
		orders, err = h.orders.ListOrders(c.UserContext())
	}
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(lo.Map(orders, func(o domain.Order, _ int) orderResponse {
		return toOrderResponse(o)
	}))
}

func (h *Handler) UpdateOrderStatus(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid order id")
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	status, err := domain.ToOrderStatus(req.Status)
	if err != nil {
		return badRequest(c, err.Error())
	}

	order, err := h.orders.UpdateOrderStatus(c.UserContext(), orderID, status)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(toOrderResponse(order))
}

type createProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func (h *Handler) CreateProduct(c *fiber.Ctx) error {
	var req createProductRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Name == "" {
		return badRequest(c, "name is required")
	}

	productID, err := h.products.InsertProduct(c.UserContext(), domain.Product{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		return respondError(c, err)
	}

	product, err := h.products.GetProduct(c.UserContext(), productID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(product)
}

func (h *Handler) GetProduct(c *fiber.Ctx) error {
	productID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid product id")
	}

	product, err := h.products.GetProduct(c.UserContext(), productID)
	if err != nil {
		return respondError(c, err)
	}

	variants, err := h.variants.ListVariantsByProduct(c.UserContext(), productID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"product": product,
		"variants": lo.Map(variants, func(v domain.Variant, _ int) variantResponse {
			return toVariantResponse(v)
		}),
	})
}

func (h *Handler) ListProducts(c *fiber.Ctx) error {
	products, err := h.products.ListProducts(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(products)
}

func (h *Handler) DeleteProduct(c *fiber.Ctx) error {
	productID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid product id")
	}

	if err := h.products.DeleteProduct(c.UserContext(), productID); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type createVariantRequest struct {
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Price     string `json:"price"`
	Currency  string `json:"currency"`
	Stock     int    `json:"stock"`
}

func (h *Handler) CreateVariant(c *fiber.Ctx) error {
	var req createVariantRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return badRequest(c, "invalid product_id")
	}

	amount, err := decimal.NewFromString(req.Price)
	if err != nil {
		return badRequest(c, "invalid price")
	}

	unit, err := currency.ParseISO(req.Currency)
	if err != nil {
		return badRequest(c, "invalid currency")
	}

	variantID, err := h.variants.InsertVariant(c.UserContext(), domain.Variant{
		ProductID: productID,
		SKU:       req.SKU,
		Size:      req.Size,
		Color:     req.Color,
		Price:     domain.Money{Amount: amount, Currency: unit},
		Stock:     req.Stock,
	})
	if err != nil {
		return respondError(c, err)
	}

	variant, err := h.variants.GetVariant(c.UserContext(), variantID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toVariantResponse(variant))
}

func (h *Handler) GetVariant(c *fiber.Ctx) error {
	variantID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid variant id")
	}

	variant, err := h.variants.GetVariant(c.UserContext(), variantID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(toVariantResponse(variant))
}

func toOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		ID:           o.ID.String(),
		CustomerID:   o.CustomerID,
		CustomerName: o.CustomerName,
		Items: lo.Map(o.Items, func(item domain.OrderItem, _ int) orderItemResponse {
			resp := orderItemResponse{
				VariantID: item.Variant.ID.String(),
				SKU:       item.SKU,
				Price:     toMoneyResponse(item.Price),
				Quantity:  item.Quantity,
			}
			if item.Variant.IsResolved() {
				resolved := toVariantResponse(*item.Variant.Resolved)
				resp.Variant = &resolved
			}
			return resp
		}),
		TotalPrice: toMoneyResponse(o.TotalPrice),
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

func toVariantResponse(v domain.Variant) variantResponse {
	return variantResponse{
		ID:        v.ID.String(),
		ProductID: v.ProductID.String(),
		SKU:       v.SKU,
		Size:      v.Size,
		Color:     v.Color,
		Price:     toMoneyResponse(v.Price),
		Stock:     v.Stock,
	}
}

func toMoneyResponse(m domain.Money) moneyResponse {
	return moneyResponse{
		Amount:   m.Amount.String(),
		Currency: m.Currency.String(),
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

// respondError maps the coordinator's error taxonomy onto HTTP statuses:
// not-found kinds to 404, stock and transition violations to 400,
// anything else (transactional failures included) to 500.
func respondError(c *fiber.Ctx, err error) error {
	var (
		variantNotFound domain.VariantNotFoundError
		orderNotFound   domain.OrderNotFoundError
		insufficient    domain.InsufficientStockError
		badTransition   domain.InvalidStatusTransitionError
	)

	switch {
	case errors.As(err, &variantNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": variantNotFound.Error()})
	case errors.As(err, &orderNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": orderNotFound.Error()})
	case errors.Is(err, repository.ErrProductNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": repository.ErrProductNotFound.Error()})
	case errors.As(err, &insufficient):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": insufficient.Error()})
	case errors.As(err, &badTransition):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": badTransition.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
