package services

import (
	"encoding/json"
	"strconv"

	"storefront/internal/models"
)

// Canonical messages. Clients sign exactly these byte strings; integers are rendered
// in base 10 with no padding and nothing is inserted between fields.

// RegisterMessage is signed when registering a new key.
func RegisterMessage(timestamp, pubKey string) string {
	return timestamp + pubKey
}

// GetIdentityMessage is signed when reading one's own identity.
func GetIdentityMessage(timestamp, uuid string) string {
	return timestamp + uuid
}

// UpsertProductMessage is signed when creating or editing a product. An omitted
// description or price contributes an empty string.
func UpsertProductMessage(timestamp, uuid, title string, description *string, price *int64) string {
	msg := timestamp + uuid + title
	if description != nil {
		msg += *description
	}
	if price != nil {
		msg += strconv.FormatInt(*price, 10)
	}
	return msg
}

// AttachMessage is signed when uploading a product image or artifact.
func AttachMessage(timestamp, uuid, title string) string {
	return timestamp + uuid + title
}

// CreateOrderMessage is signed by the buyer when placing an order. The currency and the
// shipping address are part of the message.
func CreateOrderMessage(timestamp, buyerUUID, productID, currency string, shipping *models.ShippingAddress) string {
	return timestamp + buyerUUID + productID + currency + ShippingComponent(shipping)
}

// UpdateOrderMessage is signed by the buyer or the seller when changing an order. An
// omitted status or address contributes an empty string.
func UpdateOrderMessage(timestamp, uuid, orderID, productID string, status models.OrderStatus, shipping *models.ShippingAddress) string {
	return timestamp + uuid + orderID + productID + string(status) + ShippingComponent(shipping)
}

// ShippingComponent renders an address as compact JSON with fields in declaration order
// and empty optional fields left out. A nil address renders as "".
func ShippingComponent(addr *models.ShippingAddress) string {
	if addr == nil {
		return ""
	}
	raw, err := json.Marshal(addr)
	if err != nil {
		return ""
	}
	return string(raw)
}

// ListOrdersMessage is signed by a buyer listing their orders.
func ListOrdersMessage(timestamp, uuid string) string {
	return timestamp + uuid
}

// ListProductOrdersMessage is signed by a seller listing the orders of one product.
func ListProductOrdersMessage(timestamp, uuid, productID string) string {
	return timestamp + uuid + productID
}

// AttachProcessorMessage is signed when linking a payment processor account.
func AttachProcessorMessage(timestamp, uuid, processor string) string {
	return timestamp + uuid + processor
}

// PaymentIntentMessage is signed by the buyer requesting a payment intent.
func PaymentIntentMessage(timestamp, uuid string, amount int64, currency string) string {
	return timestamp + uuid + strconv.FormatInt(amount, 10) + currency
}

// OperatorTokenMessage is signed by an operator requesting a bearer token.
func OperatorTokenMessage(timestamp, uuid string) string {
	return timestamp + uuid
}
