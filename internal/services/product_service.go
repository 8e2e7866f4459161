package services

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/errs"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"go.uber.org/zap"
)

// DefaultPageTemplate is used when a product page is requested without a known template.
const DefaultPageTemplate = "generic"

// UpsertProductInput is the signed body of a product upsert.
type UpsertProductInput struct {
	Timestamp string
	Signature string
	Fields    models.ProductFields
}

// Upload is a signed file attached to a product.
type Upload struct {
	Timestamp string
	Signature string
	Data      []byte
	Ext       string
}

// ProductService handles business logic related to products.
type ProductService struct {
	products repositories.ProductRepository
	auth     *RequestAuthenticator
	blobs    BlobStore
	renderer PageRenderer
	logger   *zap.Logger
}

// NewProductService creates a new ProductService.
func NewProductService(products repositories.ProductRepository, auth *RequestAuthenticator, blobs BlobStore, renderer PageRenderer, logger *zap.Logger) *ProductService {
	return &ProductService{
		products: products,
		auth:     auth,
		blobs:    blobs,
		renderer: renderer,
		logger:   logger,
	}
}

// UpsertProduct creates or edits the seller's product titled title.
func (s *ProductService) UpsertProduct(ctx context.Context, uuid, title string, in UpsertProductInput) (*models.Product, error) {
	msg := UpsertProductMessage(in.Timestamp, uuid, title, in.Fields.Description, in.Fields.Price)
	identity, err := s.auth.Authenticate(ctx, uuid, in.Timestamp, in.Signature, msg)
	if err != nil {
		return nil, err
	}
	return s.products.PutProduct(ctx, identity.UUID, title, in.Fields)
}

// GetProduct retrieves a single product.
func (s *ProductService) GetProduct(ctx context.Context, uuid, title string) (*models.Product, error) {
	return s.products.GetProduct(ctx, uuid, title)
}

// ListProducts retrieves the seller's products keyed by title.
func (s *ProductService) ListProducts(ctx context.Context, uuid string) (map[string]models.Product, error) {
	return s.products.ListProducts(ctx, uuid)
}

// ListAllProducts retrieves every seller's products.
func (s *ProductService) ListAllProducts(ctx context.Context) ([]map[string]models.Product, error) {
	return s.products.ListAllProductsAcrossSellers(ctx)
}

// AttachImage stores the upload and makes it the product image.
func (s *ProductService) AttachImage(ctx context.Context, uuid, title string, up Upload) (*models.Product, error) {
	ref, err := s.storeUpload(ctx, uuid, title, up)
	if err != nil {
		return nil, err
	}
	return s.products.AttachImage(ctx, uuid, title, ref)
}

// AttachArtifact stores the upload and appends it to the product artifacts.
func (s *ProductService) AttachArtifact(ctx context.Context, uuid, title string, up Upload) (*models.Product, error) {
	ref, err := s.storeUpload(ctx, uuid, title, up)
	if err != nil {
		return nil, err
	}
	return s.products.AttachArtifact(ctx, uuid, title, ref)
}

// OpenBlob returns the content of an uploaded image or artifact.
func (s *ProductService) OpenBlob(ctx context.Context, ref string) ([]byte, error) {
	return s.blobs.Open(ctx, ref)
}

// RenderPage renders the product page using templateType, falling back to the generic
// template when the type is unknown.
func (s *ProductService) RenderPage(ctx context.Context, uuid, title, templateType string) ([]byte, error) {
	product, err := s.products.GetProduct(ctx, uuid, title)
	if err != nil {
		return nil, err
	}
	page, err := s.renderer.Render(templateType, product)
	if errors.Is(err, errs.ErrNotFound) && templateType != DefaultPageTemplate {
		s.logger.Debug("unknown page template, using default", zap.String("template", templateType))
		return s.renderer.Render(DefaultPageTemplate, product)
	}
	return page, err
}

func (s *ProductService) storeUpload(ctx context.Context, uuid, title string, up Upload) (string, error) {
	if _, err := s.auth.Authenticate(ctx, uuid, up.Timestamp, up.Signature, AttachMessage(up.Timestamp, uuid, title)); err != nil {
		return "", err
	}
	if len(up.Data) == 0 {
		return "", fmt.Errorf("upload is empty: %w", errs.ErrValidation)
	}
	// No blob is written for a product that does not exist.
	if _, err := s.products.GetProduct(ctx, uuid, title); err != nil {
		return "", err
	}
	ref, err := s.blobs.Save(ctx, up.Data, up.Ext)
	if err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	return ref, nil
}
