package services_test

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/signing"
	"storefront/pkg/upstream"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	store      *repositories.MemoryKeyValueStore
	identities *repositories.IdentityRegistry
	products   *repositories.CatalogStore
	orders     *repositories.OrderLedger
	auth       *services.RequestAuthenticator
}

func newFixture() *fixture {
	store := repositories.NewMemoryKeyValueStore()
	identities := repositories.NewIdentityRegistry(store, zap.NewNop())
	return &fixture{
		store:      store,
		identities: identities,
		products:   repositories.NewCatalogStore(store, zap.NewNop()),
		orders:     repositories.NewOrderLedger(store, zap.NewNop()),
		auth:       services.NewRequestAuthenticator(identities, signing.Secp256k1Verifier{}, services.NewReplayGuard(0), zap.NewNop()),
	}
}

// signer is a registered identity together with its private key.
type signer struct {
	keys     *signing.Keys
	identity *models.Identity
}

func (f *fixture) newSigner(t *testing.T) *signer {
	t.Helper()
	keys, err := signing.GenerateKeys()
	require.NoError(t, err)
	identity, err := f.identities.Register(context.Background(), keys.PubKey, nil)
	require.NoError(t, err)
	return &signer{keys: keys, identity: identity}
}

func (s *signer) uuid() string { return s.identity.UUID }

func (s *signer) sign(t *testing.T, message string) string {
	t.Helper()
	sig, err := signing.Sign(s.keys, message)
	require.NoError(t, err)
	return sig
}

func nowTimestamp() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

func staleTimestamp() string {
	return strconv.FormatInt(time.Now().Add(-time.Hour).UnixMilli(), 10)
}

func strPtr(s string) *string { return &s }
func pricePtr(p int64) *int64 { return &p }

// MockSplitter is a mock implementation of services.Splitter
type MockSplitter struct {
	mock.Mock
}

func (m *MockSplitter) CreateUser(ctx context.Context, req upstream.Registration) (json.RawMessage, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockSplitter) AttachProcessor(ctx context.Context, splitterUUID, processor string, body json.RawMessage) (json.RawMessage, error) {
	args := m.Called(ctx, splitterUUID, processor, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

// MockPaymentProcessor is a mock implementation of services.PaymentProcessor
type MockPaymentProcessor struct {
	mock.Mock
}

func (m *MockPaymentProcessor) CreateIntent(ctx context.Context, processor string, intent upstream.Intent) (json.RawMessage, error) {
	args := m.Called(ctx, processor, intent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

// MockBlobStore is a mock implementation of services.BlobStore
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Save(ctx context.Context, data []byte, ext string) (string, error) {
	args := m.Called(ctx, data, ext)
	return args.String(0), args.Error(1)
}

func (m *MockBlobStore) Open(ctx context.Context, ref string) ([]byte, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockPageRenderer is a mock implementation of services.PageRenderer
type MockPageRenderer struct {
	mock.Mock
}

func (m *MockPageRenderer) Render(templateType string, product *models.Product) ([]byte, error) {
	args := m.Called(templateType, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockOrderEventPublisher is a mock implementation of services.OrderEventPublisher
type MockOrderEventPublisher struct {
	mock.Mock
}

func (m *MockOrderEventPublisher) PublishOrderEvent(ctx context.Context, routingKey string, order *models.Order) error {
	args := m.Called(ctx, routingKey, order)
	return args.Error(0)
}
