package repositories

import (
	"context"

	"storefront/internal/models"
)

// OrderRepository defines the interface for order data access.
//
// The buyer and product listings come from denormalized indices and are eventually
// consistent with the primary order records.
type OrderRepository interface {
	CreateOrder(ctx context.Context, buyerUUID, productID string, price int64, currency string, shipping *models.ShippingAddress) (*models.Order, error)
	UpdateOrder(ctx context.Context, buyerUUID string, order *models.Order) (*models.Order, error)
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	ListOrdersForBuyer(ctx context.Context, buyerUUID string) ([]models.Order, error)
	ListOrdersForProduct(ctx context.Context, productID string) ([]models.Order, error)
	ListAllOrders(ctx context.Context) ([]models.Order, error)
	Reindex(ctx context.Context) (int, error)
}
