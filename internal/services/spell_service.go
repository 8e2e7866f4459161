package services

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront/internal/errs"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// EnchantProductSpell upserts a product on behalf of a trusted caller.
const EnchantProductSpell = "enchant-product"

// EnchantProductPayload is the payload of the enchant-product spell.
type EnchantProductPayload struct {
	UUID   string               `json:"uuid" validate:"required"`
	Title  string               `json:"title" validate:"required"`
	Fields models.ProductFields `json:"-"`
}

// SpellService runs spells forwarded by an operator. The operator token is the only
// authentication; the payload carries no user signature.
type SpellService struct {
	products repositories.ProductRepository
	validate *validator.Validate
	logger   *zap.Logger
}

// NewSpellService creates a new SpellService.
func NewSpellService(products repositories.ProductRepository, logger *zap.Logger) *SpellService {
	return &SpellService{
		products: products,
		validate: validator.New(),
		logger:   logger,
	}
}

// Cast runs spellName with the raw JSON payload and returns its result.
func (s *SpellService) Cast(ctx context.Context, spellName string, payload json.RawMessage) (interface{}, error) {
	switch spellName {
	case EnchantProductSpell:
		return s.enchantProduct(ctx, payload)
	default:
		return nil, fmt.Errorf("spell %q: %w", spellName, errs.ErrNotFound)
	}
}

func (s *SpellService) enchantProduct(ctx context.Context, payload json.RawMessage) (*models.Product, error) {
	var in EnchantProductPayload
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, fmt.Errorf("invalid spell payload: %w: %w", errs.ErrValidation, err)
	}
	if err := json.Unmarshal(payload, &in.Fields); err != nil {
		return nil, fmt.Errorf("invalid spell payload: %w: %w", errs.ErrValidation, err)
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid spell payload: %w: %w", errs.ErrValidation, err)
	}

	product, err := s.products.PutProduct(ctx, in.UUID, in.Title, in.Fields)
	if err != nil {
		return nil, err
	}
	s.logger.Info("spell cast", zap.String("spell", EnchantProductSpell), zap.String("productId", product.ProductID))
	return product, nil
}
