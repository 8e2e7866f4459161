package services

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/repositories"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ReindexResult reports how many primaries each index rebuild covered.
type ReindexResult struct {
	Products int           `json:"products"`
	Orders   int           `json:"orders"`
	Took     time.Duration `json:"took"`
}

// ReindexService rebuilds the catalog and order indices from their primary records.
type ReindexService struct {
	products repositories.ProductRepository
	orders   repositories.OrderRepository
	logger   *zap.Logger
}

// NewReindexService creates a new ReindexService.
func NewReindexService(products repositories.ProductRepository, orders repositories.OrderRepository, logger *zap.Logger) *ReindexService {
	return &ReindexService{
		products: products,
		orders:   orders,
		logger:   logger,
	}
}

// Reindex rebuilds both index families concurrently.
func (s *ReindexService) Reindex(ctx context.Context) (*ReindexResult, error) {
	start := time.Now()
	result := &ReindexResult{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.products.Reindex(gctx)
		if err != nil {
			return fmt.Errorf("failed to reindex products: %w", err)
		}
		result.Products = n
		return nil
	})
	g.Go(func() error {
		n, err := s.orders.Reindex(gctx)
		if err != nil {
			return fmt.Errorf("failed to reindex orders: %w", err)
		}
		result.Orders = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Took = time.Since(start)
	s.logger.Info("reindex complete",
		zap.Int("products", result.Products),
		zap.Int("orders", result.Orders),
		zap.Duration("took", result.Took))
	return result, nil
}
