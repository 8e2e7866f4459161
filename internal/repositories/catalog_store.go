package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"storefront/internal/errs"
	"storefront/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	productKeyPrefix      = "product:"
	productIndexKeyPrefix = "productidx:"
	productIDKeyPrefix    = "productid:"

	// MaxTitleLength bounds product titles, counted in characters.
	MaxTitleLength = 256
)

// productNamespace scopes the UUIDv5 product IDs of this storefront.
var productNamespace = uuid.MustParse("6f1c2b1e-3c1d-5a8e-9a57-2f0e4c7d9b31")

// ProductID derives the stable external handle of (ownerUUID, title).
func ProductID(ownerUUID, title string) string {
	return uuid.NewSHA1(productNamespace, []byte(ownerUUID+"\x00"+title)).String()
}

type productPointer struct {
	OwnerUUID string `json:"uuid"`
	Title     string `json:"title"`
}

// CatalogStore is a KeyValueStore implementation of ProductRepository.
//
// Layout:
//
//	product:{owner}:{title}     primary record
//	productidx:{owner}:{title}  per-seller index entry (copy of the record)
//	productid:{productId}       pointer back to {owner, title}
//
// Index entries are one key each, so concurrent upserts of different titles never
// overwrite each other's entries.
type CatalogStore struct {
	store  KeyValueStore
	logger *zap.Logger
	now    func() time.Time
}

// NewCatalogStore creates a new CatalogStore.
func NewCatalogStore(store KeyValueStore, logger *zap.Logger) *CatalogStore {
	return &CatalogStore{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func productKey(ownerUUID, title string) string {
	return productKeyPrefix + ownerUUID + ":" + title
}

func productIndexPrefix(ownerUUID string) string {
	return productIndexKeyPrefix + ownerUUID + ":"
}

// PutProduct creates or updates the product (ownerUUID, title), merging fields over
// the stored record.
func (s *CatalogStore) PutProduct(ctx context.Context, ownerUUID, title string, fields models.ProductFields) (*models.Product, error) {
	if ownerUUID == "" || title == "" {
		return nil, fmt.Errorf("owner and title are required: %w", errs.ErrValidation)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, fmt.Errorf("title is longer than %d characters: %w", MaxTitleLength, errs.ErrValidation)
	}
	if fields.Price != nil && *fields.Price < 0 {
		return nil, fmt.Errorf("price must not be negative: %w", errs.ErrValidation)
	}

	product, err := s.GetProduct(ctx, ownerUUID, title)
	switch {
	case err == nil:
	case errors.Is(err, errs.ErrNotFound):
		product = &models.Product{
			OwnerUUID: ownerUUID,
			Title:     title,
			Tags:      []string{},
			Artifacts: []string{},
			CreatedAt: s.now().UTC(),
		}
	default:
		return nil, err
	}

	if fields.Description != nil {
		product.Description = *fields.Description
	}
	if fields.Price != nil {
		product.Price = *fields.Price
	}
	if fields.Tags != nil {
		product.Tags = fields.Tags
	}
	if fields.Category != nil {
		product.Category = *fields.Category
	}
	if fields.ContentType != nil {
		product.ContentType = *fields.ContentType
	}
	if fields.Metadata != nil {
		product.Metadata = fields.Metadata
	}
	product.ProductID = ProductID(ownerUUID, title)
	product.UpdatedAt = s.now().UTC()

	if err := s.write(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// GetProduct reads the primary record of (ownerUUID, title).
func (s *CatalogStore) GetProduct(ctx context.Context, ownerUUID, title string) (*models.Product, error) {
	raw, err := s.store.Get(ctx, productKey(ownerUUID, title))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("product %q of %s: %w", title, ownerUUID, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product %q of %s: %w", title, ownerUUID, err)
	}
	return decodeProduct(raw)
}

// GetProductByID resolves a productId through its pointer record.
func (s *CatalogStore) GetProductByID(ctx context.Context, productID string) (*models.Product, error) {
	raw, err := s.store.Get(ctx, productIDKeyPrefix+productID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("product %s: %w", productID, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product %s: %w", productID, err)
	}

	var ptr productPointer
	if err := json.Unmarshal([]byte(raw), &ptr); err != nil {
		return nil, fmt.Errorf("failed to decode product pointer %s: %w", productID, err)
	}
	product, err := s.GetProduct(ctx, ptr.OwnerUUID, ptr.Title)
	if errors.Is(err, errs.ErrNotFound) {
		s.logger.Error("productId pointer references a missing product",
			zap.String("productId", productID), zap.String("owner", ptr.OwnerUUID), zap.String("title", ptr.Title))
	}
	return product, err
}

// ListProducts returns the seller's products keyed by title. A seller without
// products gets an empty map.
func (s *CatalogStore) ListProducts(ctx context.Context, ownerUUID string) (map[string]models.Product, error) {
	entries, err := s.store.Scan(ctx, productIndexPrefix(ownerUUID))
	if err != nil {
		return nil, fmt.Errorf("failed to list products of %s: %w", ownerUUID, err)
	}

	products := make(map[string]models.Product, len(entries))
	for _, e := range entries {
		p, err := decodeProduct(e.Value)
		if err != nil {
			return nil, err
		}
		products[p.Title] = *p
	}
	return products, nil
}

// ListAllProductsAcrossSellers returns one title->product map per seller, ordered by seller UUID.
func (s *CatalogStore) ListAllProductsAcrossSellers(ctx context.Context) ([]map[string]models.Product, error) {
	entries, err := s.store.Scan(ctx, productIndexKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	byOwner := make(map[string]map[string]models.Product)
	for _, e := range entries {
		owner, _, ok := strings.Cut(strings.TrimPrefix(e.Key, productIndexKeyPrefix), ":")
		if !ok {
			s.logger.Warn("skipping malformed product index key", zap.String("key", e.Key))
			continue
		}
		p, err := decodeProduct(e.Value)
		if err != nil {
			return nil, err
		}
		if byOwner[owner] == nil {
			byOwner[owner] = make(map[string]models.Product)
		}
		byOwner[owner][p.Title] = *p
	}

	owners := make([]string, 0, len(byOwner))
	for owner := range byOwner {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	out := make([]map[string]models.Product, 0, len(owners))
	for _, owner := range owners {
		out = append(out, byOwner[owner])
	}
	return out, nil
}

// AttachImage replaces the product image.
func (s *CatalogStore) AttachImage(ctx context.Context, ownerUUID, title, blobRef string) (*models.Product, error) {
	return s.modify(ctx, ownerUUID, title, func(p *models.Product) {
		p.Image = blobRef
	})
}

// AttachArtifact appends an artifact. The first artifact is the primary one.
func (s *CatalogStore) AttachArtifact(ctx context.Context, ownerUUID, title, blobRef string) (*models.Product, error) {
	return s.modify(ctx, ownerUUID, title, func(p *models.Product) {
		p.Artifacts = append(p.Artifacts, blobRef)
	})
}

// Reindex rewrites every index entry and productId pointer from the primary records
// and drops index entries whose primary no longer exists. It returns the number of
// products indexed.
func (s *CatalogStore) Reindex(ctx context.Context) (int, error) {
	primaries, err := s.store.Scan(ctx, productKeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to scan products: %w", err)
	}

	live := make(map[string]bool, len(primaries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, e := range primaries {
		e := e
		p, err := decodeProduct(e.Value)
		if err != nil {
			s.logger.Error("skipping undecodable product", zap.String("key", e.Key), zap.Error(err))
			continue
		}
		live[productIndexPrefix(p.OwnerUUID)+p.Title] = true
		g.Go(func() error {
			return s.writeIndices(gctx, p, e.Value)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	indexed, err := s.store.Scan(ctx, productIndexKeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to scan product index: %w", err)
	}
	for _, e := range indexed {
		if live[e.Key] {
			continue
		}
		s.logger.Info("removing stale product index entry", zap.String("key", e.Key))
		if err := s.store.Delete(ctx, e.Key); err != nil {
			return 0, fmt.Errorf("failed to delete stale index entry %s: %w", e.Key, err)
		}
	}
	return len(live), nil
}

func (s *CatalogStore) modify(ctx context.Context, ownerUUID, title string, apply func(*models.Product)) (*models.Product, error) {
	product, err := s.GetProduct(ctx, ownerUUID, title)
	if err != nil {
		return nil, err
	}
	apply(product)
	product.UpdatedAt = s.now().UTC()
	if err := s.write(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// write issues the primary write and then both index writes. A failure after the
// primary write is reported as a partial write.
func (s *CatalogStore) write(ctx context.Context, product *models.Product) error {
	raw, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to encode product %q: %w", product.Title, err)
	}
	if err := s.store.Set(ctx, productKey(product.OwnerUUID, product.Title), string(raw)); err != nil {
		return fmt.Errorf("failed to write product %q: %w", product.Title, err)
	}
	if err := s.writeIndices(ctx, product, string(raw)); err != nil {
		s.logger.Error("product index write failed",
			zap.String("owner", product.OwnerUUID), zap.String("title", product.Title), zap.Error(err))
		return fmt.Errorf("product %q: %w: %w", product.Title, errs.ErrPartialWrite, err)
	}
	return nil
}

func (s *CatalogStore) writeIndices(ctx context.Context, product *models.Product, raw string) error {
	if err := s.store.Set(ctx, productIndexPrefix(product.OwnerUUID)+product.Title, raw); err != nil {
		return fmt.Errorf("failed to write product index: %w", err)
	}
	ptr, err := json.Marshal(productPointer{OwnerUUID: product.OwnerUUID, Title: product.Title})
	if err != nil {
		return fmt.Errorf("failed to encode product pointer: %w", err)
	}
	if err := s.store.Set(ctx, productIDKeyPrefix+product.ProductID, string(ptr)); err != nil {
		return fmt.Errorf("failed to write product pointer: %w", err)
	}
	return nil
}

func decodeProduct(raw string) (*models.Product, error) {
	var p models.Product
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("failed to decode product: %w", err)
	}
	if p.Artifacts == nil {
		p.Artifacts = []string{}
	}
	return &p, nil
}
