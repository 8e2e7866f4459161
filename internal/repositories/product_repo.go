package repositories

import (
	"context"

	"storefront/internal/models"
)

// ProductRepository defines the interface for product data access.
//
// Listing reads are served from the per-seller index, which is updated after the primary
// record. Under concurrent writers a listing can briefly show the previous version of a
// product; GetProduct always reads the primary.
type ProductRepository interface {
	PutProduct(ctx context.Context, ownerUUID, title string, fields models.ProductFields) (*models.Product, error)
	GetProduct(ctx context.Context, ownerUUID, title string) (*models.Product, error)
	GetProductByID(ctx context.Context, productID string) (*models.Product, error)
	ListProducts(ctx context.Context, ownerUUID string) (map[string]models.Product, error)
	ListAllProductsAcrossSellers(ctx context.Context) ([]map[string]models.Product, error)
	AttachImage(ctx context.Context, ownerUUID, title, blobRef string) (*models.Product, error)
	AttachArtifact(ctx context.Context, ownerUUID, title, blobRef string) (*models.Product, error)
	Reindex(ctx context.Context) (int, error)
}
