package handlers

import (
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

type createOrderRequest struct {
	Timestamp timestamp `json:"timestamp"`
	Signature string    `json:"signature"`
	Order     struct {
		ProductID       string                  `json:"productId"`
		Currency        string                  `json:"currency"`
		ShippingAddress *models.ShippingAddress `json:"shippingAddress"`
	} `json:"order"`
}

type updateOrderRequest struct {
	Timestamp timestamp `json:"timestamp"`
	Signature string    `json:"signature"`
	Order     struct {
		ProductID       string                  `json:"productId"`
		Status          models.OrderStatus      `json:"status"`
		ShippingAddress *models.ShippingAddress `json:"shippingAddress"`
	} `json:"order"`
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/user/:uuid/orders")
	orderRoutes.Put("/", h.HandleCreateOrder)
	orderRoutes.Get("/", h.HandleListBuyerOrders)
	orderRoutes.Patch("/:orderId", h.HandleUpdateOrder)
	orderRoutes.Get("/:productId", h.HandleListProductOrders)
}

// HandleCreateOrder records a new order for the signing buyer.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	order, err := h.service.CreateOrder(c.UserContext(), c.Params("uuid"), services.CreateOrderInput{
		Timestamp:       string(req.Timestamp),
		Signature:       req.Signature,
		ProductID:       req.Order.ProductID,
		Currency:        req.Order.Currency,
		ShippingAddress: req.Order.ShippingAddress,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandleUpdateOrder changes the status or shipping address of an order.
func (h *OrderHandler) HandleUpdateOrder(c *fiber.Ctx) error {
	var req updateOrderRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return respondError(c, h.logger, err)
	}

	order, err := h.service.UpdateOrder(c.UserContext(), c.Params("uuid"), c.Params("orderId"), services.UpdateOrderInput{
		Timestamp:       string(req.Timestamp),
		Signature:       req.Signature,
		ProductID:       req.Order.ProductID,
		Status:          req.Order.Status,
		ShippingAddress: req.Order.ShippingAddress,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(order)
}

// HandleListBuyerOrders returns the signer's orders.
func (h *OrderHandler) HandleListBuyerOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListBuyerOrders(c.UserContext(), c.Params("uuid"), c.Query("timestamp"), c.Query("signature"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(orders)
}

// HandleListProductOrders returns the orders of one of the signer's products.
func (h *OrderHandler) HandleListProductOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListProductOrders(c.UserContext(), c.Params("uuid"), c.Params("productId"), c.Query("timestamp"), c.Query("signature"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(orders)
}
