package services_test

import (
	"context"
	"fmt"
	"testing"

	"storefront/internal/errs"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/signing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newProductService(f *fixture, blobs services.BlobStore, renderer services.PageRenderer) *services.ProductService {
	return services.NewProductService(f.products, f.auth, blobs, renderer, zap.NewNop())
}

func signedUpsert(t *testing.T, s *signer, title string, description string, price int64) services.UpsertProductInput {
	ts := nowTimestamp()
	fields := models.ProductFields{Description: strPtr(description), Price: pricePtr(price)}
	return services.UpsertProductInput{
		Timestamp: ts,
		Signature: s.sign(t, services.UpsertProductMessage(ts, s.uuid(), title, fields.Description, fields.Price)),
		Fields:    fields,
	}
}

func signedUpload(t *testing.T, s *signer, title string, data []byte, ext string) services.Upload {
	ts := nowTimestamp()
	return services.Upload{
		Timestamp: ts,
		Signature: s.sign(t, services.AttachMessage(ts, s.uuid(), title)),
		Data:      data,
		Ext:       ext,
	}
}

func TestProductService_UpsertIsIdempotent(t *testing.T) {
	f := newFixture()
	service := newProductService(f, new(MockBlobStore), new(MockPageRenderer))
	s := f.newSigner(t)
	ctx := context.Background()

	first, err := service.UpsertProduct(ctx, s.uuid(), "Widget", signedUpsert(t, s, "Widget", "A widget", 1500))
	require.NoError(t, err)
	second, err := service.UpsertProduct(ctx, s.uuid(), "Widget", signedUpsert(t, s, "Widget", "A widget", 1500))
	require.NoError(t, err)
	assert.Equal(t, first.ProductID, second.ProductID)

	products, err := service.ListProducts(ctx, s.uuid())
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestProductService_RegisterUpsertAttachScenario(t *testing.T) {
	f := newFixture()
	blobs := new(MockBlobStore)
	service := newProductService(f, blobs, new(MockPageRenderer))
	s := f.newSigner(t)
	ctx := context.Background()

	_, err := service.UpsertProduct(ctx, s.uuid(), "Widget", signedUpsert(t, s, "Widget", "A widget", 1500))
	require.NoError(t, err)

	data := []byte("artifact bytes")
	blobs.On("Save", ctx, data, ".zip").Return("a1", nil).Once()
	product, err := service.AttachArtifact(ctx, s.uuid(), "Widget", signedUpload(t, s, "Widget", data, ".zip"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, product.Artifacts)

	got, err := service.GetProduct(ctx, s.uuid(), "Widget")
	require.NoError(t, err)
	assert.Equal(t, "Widget", got.Title)
	assert.Equal(t, int64(1500), got.Price)
	assert.Equal(t, "a1", got.PrimaryArtifact())
	blobs.AssertExpectations(t)
}

func TestProductService_UnregisteredKeyWritesNothing(t *testing.T) {
	f := newFixture()
	service := newProductService(f, new(MockBlobStore), new(MockPageRenderer))
	ctx := context.Background()

	keys, err := signing.GenerateKeys()
	require.NoError(t, err)
	stranger := &signer{keys: keys, identity: &models.Identity{UUID: "3f0d2c4e-8a1b-4c7d-9e2f-1a2b3c4d5e6f"}}

	_, err = service.UpsertProduct(ctx, stranger.uuid(), "Widget", signedUpsert(t, stranger, "Widget", "A widget", 1500))
	assert.ErrorIs(t, err, errs.ErrAuth)

	entries, err := f.store.Scan(ctx, "product")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProductService_AttachToMissingProductStoresNoBlob(t *testing.T) {
	f := newFixture()
	blobs := new(MockBlobStore)
	service := newProductService(f, blobs, new(MockPageRenderer))
	s := f.newSigner(t)

	_, err := service.AttachImage(context.Background(), s.uuid(), "Ghost", signedUpload(t, s, "Ghost", []byte("png"), ".png"))
	assert.ErrorIs(t, err, errs.ErrNotFound)
	blobs.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductService_AttachImageReplaces(t *testing.T) {
	f := newFixture()
	blobs := new(MockBlobStore)
	service := newProductService(f, blobs, new(MockPageRenderer))
	s := f.newSigner(t)
	ctx := context.Background()

	_, err := service.UpsertProduct(ctx, s.uuid(), "Widget", signedUpsert(t, s, "Widget", "", 0))
	require.NoError(t, err)

	blobs.On("Save", ctx, []byte("one"), ".png").Return("img-1", nil).Once()
	blobs.On("Save", ctx, []byte("two"), ".png").Return("img-2", nil).Once()
	_, err = service.AttachImage(ctx, s.uuid(), "Widget", signedUpload(t, s, "Widget", []byte("one"), ".png"))
	require.NoError(t, err)
	product, err := service.AttachImage(ctx, s.uuid(), "Widget", signedUpload(t, s, "Widget", []byte("two"), ".png"))
	require.NoError(t, err)
	assert.Equal(t, "img-2", product.Image)

	_, err = service.AttachImage(ctx, s.uuid(), "Widget", signedUpload(t, s, "Widget", nil, ".png"))
	assert.ErrorIs(t, err, errs.ErrValidation)
}

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

var _ repositories.ProductRepository = (*MockProductRepository)(nil)

func (m *MockProductRepository) PutProduct(ctx context.Context, ownerUUID, title string, fields models.ProductFields) (*models.Product, error) {
	args := m.Called(ctx, ownerUUID, title, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) GetProduct(ctx context.Context, ownerUUID, title string) (*models.Product, error) {
	args := m.Called(ctx, ownerUUID, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) GetProductByID(ctx context.Context, productID string) (*models.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) ListProducts(ctx context.Context, ownerUUID string) (map[string]models.Product, error) {
	args := m.Called(ctx, ownerUUID)
	return args.Get(0).(map[string]models.Product), args.Error(1)
}

func (m *MockProductRepository) ListAllProductsAcrossSellers(ctx context.Context) ([]map[string]models.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]map[string]models.Product), args.Error(1)
}

func (m *MockProductRepository) AttachImage(ctx context.Context, ownerUUID, title, blobRef string) (*models.Product, error) {
	args := m.Called(ctx, ownerUUID, title, blobRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) AttachArtifact(ctx context.Context, ownerUUID, title, blobRef string) (*models.Product, error) {
	args := m.Called(ctx, ownerUUID, title, blobRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Reindex(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestProductService_ListAllProducts(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil, nil, nil, zap.NewNop())
	ctx := context.Background()

	expected := []map[string]models.Product{
		{"Book": {OwnerUUID: "seller-a", Title: "Book", Price: 1000}},
		{"Mug": {OwnerUUID: "seller-b", Title: "Mug", Price: 500}},
	}
	mockRepo.On("ListAllProductsAcrossSellers", ctx).Return(expected, nil).Once()

	products, err := service.ListAllProducts(ctx)
	assert.NoError(t, err)
	assert.Equal(t, expected, products)
	mockRepo.AssertExpectations(t)
}

func TestProductService_RenderPage(t *testing.T) {
	mockRepo := new(MockProductRepository)
	renderer := new(MockPageRenderer)
	service := services.NewProductService(mockRepo, nil, nil, renderer, zap.NewNop())
	ctx := context.Background()

	product := &models.Product{OwnerUUID: "seller-a", Title: "Book"}
	mockRepo.On("GetProduct", ctx, "seller-a", "Book").Return(product, nil)
	renderer.On("Render", "ebook", product).Return([]byte("<html>ebook</html>"), nil).Once()
	renderer.On("Render", "nonsense", product).Return(nil, fmt.Errorf("template nonsense: %w", errs.ErrNotFound)).Once()
	renderer.On("Render", services.DefaultPageTemplate, product).Return([]byte("<html>generic</html>"), nil).Once()

	page, err := service.RenderPage(ctx, "seller-a", "Book", "ebook")
	assert.NoError(t, err)
	assert.Equal(t, "<html>ebook</html>", string(page))

	page, err = service.RenderPage(ctx, "seller-a", "Book", "nonsense")
	assert.NoError(t, err)
	assert.Equal(t, "<html>generic</html>", string(page))

	mockRepo.On("GetProduct", ctx, "seller-a", "Missing").Return(nil, fmt.Errorf("product: %w", errs.ErrNotFound)).Once()
	_, err = service.RenderPage(ctx, "seller-a", "Missing", "ebook")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	renderer.AssertExpectations(t)
}
