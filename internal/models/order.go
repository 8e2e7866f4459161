package models

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var validOrderStatuses = map[OrderStatus]bool{
	OrderStatusPending:    true,
	OrderStatusProcessing: true,
	OrderStatusShipped:    true,
	OrderStatusDelivered:  true,
	OrderStatusCancelled:  true,
}

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	return validOrderStatuses[s]
}

// ShippingAddress is the optional delivery address of a physical order.
type ShippingAddress struct {
	RecipientName string `json:"recipientName" validate:"required"`
	Street        string `json:"street" validate:"required"`
	Street2       string `json:"street2,omitempty"`
	City          string `json:"city" validate:"required"`
	State         string `json:"state,omitempty"`
	Zip           string `json:"zip,omitempty"`
	Country       string `json:"country,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

// Order represents a buyer's order for one product.
type Order struct {
	OrderID         string           `json:"orderId"`
	BuyerUUID       string           `json:"userUUID"`
	ProductID       string           `json:"productId"`
	Price           int64            `json:"price"` // minor units, copied from the product at creation
	Currency        string           `json:"currency,omitempty"`
	Status          OrderStatus      `json:"status"`
	ShippingAddress *ShippingAddress `json:"shippingAddress,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}
