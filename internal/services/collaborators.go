package services

import (
	"context"
	"encoding/json"

	"storefront/internal/models"
	"storefront/pkg/upstream"
)

// BlobStore persists uploaded images and artifacts.
type BlobStore interface {
	Save(ctx context.Context, data []byte, ext string) (string, error)
	Open(ctx context.Context, ref string) ([]byte, error)
}

// Splitter is the payment-splitting service that owns processor accounts.
type Splitter interface {
	CreateUser(ctx context.Context, req upstream.Registration) (json.RawMessage, error)
	AttachProcessor(ctx context.Context, splitterUUID, processor string, body json.RawMessage) (json.RawMessage, error)
}

// PaymentProcessor creates payment intents.
type PaymentProcessor interface {
	CreateIntent(ctx context.Context, processor string, intent upstream.Intent) (json.RawMessage, error)
}

// PageRenderer turns a product into an HTML page for a template type.
type PageRenderer interface {
	Render(templateType string, product *models.Product) ([]byte, error)
}

// OrderEventPublisher announces order changes to other services.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, routingKey string, order *models.Order) error
}
