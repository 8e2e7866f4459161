package services

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/errs"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Routing keys of order events.
const (
	OrderCreatedEvent = "order.created"
	OrderUpdatedEvent = "order.updated"
)

// CreateOrderInput is the signed body of an order creation.
type CreateOrderInput struct {
	Timestamp       string
	Signature       string
	ProductID       string
	Currency        string
	ShippingAddress *models.ShippingAddress
}

// UpdateOrderInput is the signed body of an order update.
type UpdateOrderInput struct {
	Timestamp       string
	Signature       string
	ProductID       string
	Status          models.OrderStatus
	ShippingAddress *models.ShippingAddress
}

// OrderService handles business logic related to orders.
type OrderService struct {
	orders   repositories.OrderRepository
	products repositories.ProductRepository
	auth     *RequestAuthenticator
	events   OrderEventPublisher
	validate *validator.Validate
	logger   *zap.Logger
}

// NewOrderService creates a new OrderService. events may be nil.
func NewOrderService(orders repositories.OrderRepository, products repositories.ProductRepository, auth *RequestAuthenticator, events OrderEventPublisher, logger *zap.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		auth:     auth,
		events:   events,
		validate: validator.New(),
		logger:   logger,
	}
}

// CreateOrder records a pending order of buyerUUID for a product. The price is taken
// from the product, not from the request.
func (s *OrderService) CreateOrder(ctx context.Context, buyerUUID string, in CreateOrderInput) (*models.Order, error) {
	if in.ProductID == "" {
		return nil, fmt.Errorf("productId is required: %w", errs.ErrValidation)
	}
	identity, err := s.auth.Authenticate(ctx, buyerUUID, in.Timestamp, in.Signature, CreateOrderMessage(in.Timestamp, buyerUUID, in.ProductID, in.Currency, in.ShippingAddress))
	if err != nil {
		return nil, err
	}
	if err := s.validate.Var(in.Currency, "omitempty,alpha,max=16"); err != nil {
		return nil, fmt.Errorf("invalid currency %q: %w: %w", in.Currency, errs.ErrValidation, err)
	}
	if err := s.validateShipping(in.ShippingAddress); err != nil {
		return nil, err
	}

	product, err := s.products.GetProductByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.CreateOrder(ctx, identity.UUID, product.ProductID, product.Price, in.Currency, in.ShippingAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	s.publish(ctx, OrderCreatedEvent, order)
	return order, nil
}

// UpdateOrder changes the status or shipping address of an order. Either the buyer or
// the seller of the ordered product may sign the update.
func (s *OrderService) UpdateOrder(ctx context.Context, uuid, orderID string, in UpdateOrderInput) (*models.Order, error) {
	if in.ProductID == "" {
		return nil, fmt.Errorf("productId is required: %w", errs.ErrValidation)
	}
	msg := UpdateOrderMessage(in.Timestamp, uuid, orderID, in.ProductID, in.Status, in.ShippingAddress)
	if _, err := s.auth.Authenticate(ctx, uuid, in.Timestamp, in.Signature, msg); err != nil {
		return nil, err
	}
	if in.Status != "" && !in.Status.Valid() {
		return nil, fmt.Errorf("invalid order status %q: %w", in.Status, errs.ErrValidation)
	}
	if err := s.validateShipping(in.ShippingAddress); err != nil {
		return nil, err
	}

	existing, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing.BuyerUUID != uuid {
		if err := s.requireSeller(ctx, uuid, existing.ProductID); err != nil {
			return nil, err
		}
	}

	order, err := s.orders.UpdateOrder(ctx, existing.BuyerUUID, &models.Order{
		OrderID:         orderID,
		ProductID:       in.ProductID,
		Status:          in.Status,
		ShippingAddress: in.ShippingAddress,
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, OrderUpdatedEvent, order)
	return order, nil
}

// ListBuyerOrders returns the signer's own orders.
func (s *OrderService) ListBuyerOrders(ctx context.Context, uuid, timestamp, signature string) ([]models.Order, error) {
	if _, err := s.auth.Authenticate(ctx, uuid, timestamp, signature, ListOrdersMessage(timestamp, uuid)); err != nil {
		return nil, err
	}
	return s.orders.ListOrdersForBuyer(ctx, uuid)
}

// ListProductOrders returns the orders of a product to its seller.
func (s *OrderService) ListProductOrders(ctx context.Context, uuid, productID, timestamp, signature string) ([]models.Order, error) {
	if _, err := s.auth.Authenticate(ctx, uuid, timestamp, signature, ListProductOrdersMessage(timestamp, uuid, productID)); err != nil {
		return nil, err
	}
	if err := s.requireSeller(ctx, uuid, productID); err != nil {
		return nil, err
	}
	return s.orders.ListOrdersForProduct(ctx, productID)
}

// ListAllOrders returns every order. Callers must be operators.
func (s *OrderService) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	return s.orders.ListAllOrders(ctx)
}

func (s *OrderService) requireSeller(ctx context.Context, uuid, productID string) error {
	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	if err != nil || product.OwnerUUID != uuid {
		s.logger.Debug("request rejected",
			zap.String("stage", string(StageAuthorized)),
			zap.String("uuid", uuid),
			zap.String("productId", productID))
		return newAuthError(StageAuthorized, "signer does not own product %s", productID)
	}
	return nil
}

func (s *OrderService) validateShipping(addr *models.ShippingAddress) error {
	if addr == nil {
		return nil
	}
	if err := s.validate.Struct(addr); err != nil {
		return fmt.Errorf("invalid shipping address: %w: %w", errs.ErrValidation, err)
	}
	return nil
}

func (s *OrderService) publish(ctx context.Context, routingKey string, order *models.Order) {
	if s.events == nil {
		s.logger.Debug("order event publisher is not configured, skipping", zap.String("event", routingKey))
		return
	}
	if err := s.events.PublishOrderEvent(ctx, routingKey, order); err != nil {
		s.logger.Warn("failed to publish order event",
			zap.String("event", routingKey), zap.String("orderId", order.OrderID), zap.Error(err))
	}
}
