package services_test

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReindexService_Reindex(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	product, err := f.products.PutProduct(ctx, "seller-1", "Widget", models.ProductFields{})
	require.NoError(t, err)
	_, err = f.orders.CreateOrder(ctx, "buyer-1", product.ProductID, 0, "", nil)
	require.NoError(t, err)
	require.NoError(t, f.store.Delete(ctx, "productidx:seller-1:Widget"))

	result, err := services.NewReindexService(f.products, f.orders, zap.NewNop()).Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Products)
	assert.Equal(t, 1, result.Orders)

	listed, err := f.products.ListProducts(ctx, "seller-1")
	require.NoError(t, err)
	assert.Contains(t, listed, "Widget")
}

func TestReindexService_Failure(t *testing.T) {
	f := newFixture()
	mockRepo := new(MockProductRepository)
	mockRepo.On("Reindex", mock.Anything).Return(0, errors.New("store unreachable")).Once()

	_, err := services.NewReindexService(mockRepo, f.orders, zap.NewNop()).Reindex(context.Background())
	assert.Error(t, err)
}
