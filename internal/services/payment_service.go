package services

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront/internal/errs"
	"storefront/pkg/upstream"

	"go.uber.org/zap"
)

// PaymentIntentInput is the signed body of a payment intent request.
type PaymentIntentInput struct {
	Timestamp string
	UUID      string
	Signature string
	Amount    int64
	Currency  string
}

// PaymentService proxies payment intent requests to the processor. It never touches
// orders; an order stays pending until it is updated explicitly.
type PaymentService struct {
	processor PaymentProcessor
	auth      *RequestAuthenticator
	logger    *zap.Logger
}

// NewPaymentService creates a new PaymentService. processor may be nil.
func NewPaymentService(processor PaymentProcessor, auth *RequestAuthenticator, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		processor: processor,
		auth:      auth,
		logger:    logger,
	}
}

// CreateIntent verifies the buyer's signature and forwards it to the processor.
func (s *PaymentService) CreateIntent(ctx context.Context, processor string, in PaymentIntentInput) (json.RawMessage, error) {
	if in.Amount <= 0 || in.Currency == "" {
		return nil, fmt.Errorf("amount and currency are required: %w", errs.ErrValidation)
	}
	msg := PaymentIntentMessage(in.Timestamp, in.UUID, in.Amount, in.Currency)
	if _, err := s.auth.Authenticate(ctx, in.UUID, in.Timestamp, in.Signature, msg); err != nil {
		return nil, err
	}
	if s.processor == nil {
		return nil, fmt.Errorf("payment processor is not configured: %w", errs.ErrUpstream)
	}

	intent, err := s.processor.CreateIntent(ctx, processor, upstream.Intent{
		Timestamp: in.Timestamp,
		UUID:      in.UUID,
		Amount:    in.Amount,
		Currency:  in.Currency,
		Signature: in.Signature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s intent: %w", processor, err)
	}
	s.logger.Info("payment intent created", zap.String("uuid", in.UUID), zap.String("processor", processor))
	return intent, nil
}
