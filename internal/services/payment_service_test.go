package services_test

import (
	"context"
	"encoding/json"
	"testing"

	"storefront/internal/errs"
	"storefront/internal/services"
	"storefront/pkg/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPaymentService_CreateIntent(t *testing.T) {
	f := newFixture()
	processor := new(MockPaymentProcessor)
	service := services.NewPaymentService(processor, f.auth, zap.NewNop())
	s := f.newSigner(t)
	ctx := context.Background()

	ts := nowTimestamp()
	sig := s.sign(t, services.PaymentIntentMessage(ts, s.uuid(), 1500, "usd"))
	processor.On("CreateIntent", ctx, "stripe", upstream.Intent{
		Timestamp: ts, UUID: s.uuid(), Amount: 1500, Currency: "usd", Signature: sig,
	}).Return(json.RawMessage(`{"paymentIntent":"pi_1"}`), nil).Once()

	intent, err := service.CreateIntent(ctx, "stripe", services.PaymentIntentInput{
		Timestamp: ts, UUID: s.uuid(), Signature: sig, Amount: 1500, Currency: "usd",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"paymentIntent":"pi_1"}`, string(intent))
	processor.AssertExpectations(t)

	orders, err := f.orders.ListAllOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders, "payment intents never create orders")
}

func TestPaymentService_RejectsUnsigned(t *testing.T) {
	f := newFixture()
	processor := new(MockPaymentProcessor)
	service := services.NewPaymentService(processor, f.auth, zap.NewNop())
	s := f.newSigner(t)

	ts := nowTimestamp()
	_, err := service.CreateIntent(context.Background(), "stripe", services.PaymentIntentInput{
		Timestamp: ts, UUID: s.uuid(), Signature: s.sign(t, services.PaymentIntentMessage(ts, s.uuid(), 1, "usd")), Amount: 1500, Currency: "usd",
	})
	assert.ErrorIs(t, err, errs.ErrAuth)
	processor.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything, mock.Anything)

	_, err = service.CreateIntent(context.Background(), "stripe", services.PaymentIntentInput{UUID: s.uuid(), Amount: 0, Currency: "usd"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestPaymentService_NoProcessorConfigured(t *testing.T) {
	f := newFixture()
	service := services.NewPaymentService(nil, f.auth, zap.NewNop())
	s := f.newSigner(t)

	ts := nowTimestamp()
	_, err := service.CreateIntent(context.Background(), "stripe", services.PaymentIntentInput{
		Timestamp: ts, UUID: s.uuid(), Signature: s.sign(t, services.PaymentIntentMessage(ts, s.uuid(), 5, "usd")), Amount: 5, Currency: "usd",
	})
	assert.ErrorIs(t, err, errs.ErrUpstream)
}
