package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"storefront/internal/errs"
	"storefront/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	orderKeyPrefix          = "order:"
	orderBuyerIndexPrefix   = "orderidx:buyer:"
	orderProductIndexPrefix = "orderidx:product:"
)

// OrderLedger is a KeyValueStore implementation of OrderRepository.
//
// Layout:
//
//	order:{orderId}                          primary record
//	orderidx:buyer:{buyerUUID}:{orderId}     buyer index entry (copy of the record)
//	orderidx:product:{productId}:{orderId}   product index entry (copy of the record)
type OrderLedger struct {
	store  KeyValueStore
	logger *zap.Logger
	now    func() time.Time
}

// NewOrderLedger creates a new OrderLedger.
func NewOrderLedger(store KeyValueStore, logger *zap.Logger) *OrderLedger {
	return &OrderLedger{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func buyerIndexKey(buyerUUID, orderID string) string {
	return orderBuyerIndexPrefix + buyerUUID + ":" + orderID
}

func productOrderIndexKey(productID, orderID string) string {
	return orderProductIndexPrefix + productID + ":" + orderID
}

// CreateOrder records a new pending order. Calling it twice creates two orders.
func (l *OrderLedger) CreateOrder(ctx context.Context, buyerUUID, productID string, price int64, currency string, shipping *models.ShippingAddress) (*models.Order, error) {
	if buyerUUID == "" || productID == "" {
		return nil, fmt.Errorf("buyer and productId are required: %w", errs.ErrValidation)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate order id: %w", err)
	}
	now := l.now().UTC()
	order := &models.Order{
		OrderID:         id.String(),
		BuyerUUID:       buyerUUID,
		ProductID:       productID,
		Price:           price,
		Currency:        currency,
		Status:          models.OrderStatusPending,
		ShippingAddress: shipping,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := l.write(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateOrder applies the mutable fields of order (status and shipping address) to
// the stored order. The order must be present in both the buyer's and the product's
// index; an order found in only one of them is treated as corrupted and not updated.
func (l *OrderLedger) UpdateOrder(ctx context.Context, buyerUUID string, order *models.Order) (*models.Order, error) {
	if order == nil || order.OrderID == "" {
		return nil, fmt.Errorf("orderId is required: %w", errs.ErrValidation)
	}

	raw, err := l.store.Get(ctx, buyerIndexKey(buyerUUID, order.OrderID))
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("failed to read buyer index for order %s: %w", order.OrderID, err)
		}
		if order.ProductID != "" {
			if _, perr := l.store.Get(ctx, productOrderIndexKey(order.ProductID, order.OrderID)); perr == nil {
				l.logger.Error("order present in product index but missing from buyer index",
					zap.String("orderId", order.OrderID), zap.String("buyer", buyerUUID), zap.String("productId", order.ProductID))
			}
		}
		return nil, fmt.Errorf("order %s of %s: %w", order.OrderID, buyerUUID, errs.ErrNotFound)
	}

	indexed, err := decodeOrder(raw)
	if err != nil {
		return nil, err
	}
	if _, err := l.store.Get(ctx, productOrderIndexKey(indexed.ProductID, indexed.OrderID)); err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("failed to read product index for order %s: %w", order.OrderID, err)
		}
		l.logger.Error("order present in buyer index but missing from product index",
			zap.String("orderId", indexed.OrderID), zap.String("buyer", buyerUUID), zap.String("productId", indexed.ProductID))
		return nil, fmt.Errorf("order %s: %w", order.OrderID, errs.ErrNotFound)
	}

	// The primary record is the base of the rewrite; index copies may be stale.
	primary, err := l.store.Get(ctx, orderKeyPrefix+order.OrderID)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("failed to get order %s: %w", order.OrderID, err)
		}
		l.logger.Error("order present in both indices but missing its primary record",
			zap.String("orderId", order.OrderID), zap.String("buyer", buyerUUID))
		return nil, fmt.Errorf("order %s: %w", order.OrderID, errs.ErrNotFound)
	}
	existing, err := decodeOrder(primary)
	if err != nil {
		return nil, err
	}
	if existing.BuyerUUID != buyerUUID || existing.ProductID != indexed.ProductID {
		l.logger.Error("order primary record disagrees with its index entries",
			zap.String("orderId", order.OrderID), zap.String("buyer", buyerUUID), zap.String("productId", indexed.ProductID))
		return nil, fmt.Errorf("order %s: %w", order.OrderID, errs.ErrNotFound)
	}

	if order.ProductID != "" && order.ProductID != existing.ProductID {
		return nil, fmt.Errorf("order %s belongs to product %s: %w", existing.OrderID, existing.ProductID, errs.ErrValidation)
	}
	if order.Status != "" {
		if !order.Status.Valid() {
			return nil, fmt.Errorf("invalid order status %q: %w", order.Status, errs.ErrValidation)
		}
		existing.Status = order.Status
	}
	if order.ShippingAddress != nil {
		existing.ShippingAddress = order.ShippingAddress
	}
	existing.UpdatedAt = l.now().UTC()

	if err := l.write(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// GetOrder reads the primary order record.
func (l *OrderLedger) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	raw, err := l.store.Get(ctx, orderKeyPrefix+orderID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("order %s: %w", orderID, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}
	return decodeOrder(raw)
}

// ListOrdersForBuyer returns the buyer's orders, oldest first.
func (l *OrderLedger) ListOrdersForBuyer(ctx context.Context, buyerUUID string) ([]models.Order, error) {
	return l.list(ctx, orderBuyerIndexPrefix+buyerUUID+":")
}

// ListOrdersForProduct returns the orders placed for a product, oldest first.
func (l *OrderLedger) ListOrdersForProduct(ctx context.Context, productID string) ([]models.Order, error) {
	return l.list(ctx, orderProductIndexPrefix+productID+":")
}

// ListAllOrders returns every primary order record, oldest first.
func (l *OrderLedger) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	return l.list(ctx, orderKeyPrefix)
}

// Reindex rewrites both index entries of every primary order and removes index
// entries whose primary no longer exists. It returns the number of orders indexed.
func (l *OrderLedger) Reindex(ctx context.Context) (int, error) {
	orders, err := l.ListAllOrders(ctx)
	if err != nil {
		return 0, err
	}

	live := make(map[string]bool, 2*len(orders))
	for i := range orders {
		o := &orders[i]
		raw, err := json.Marshal(o)
		if err != nil {
			return 0, fmt.Errorf("failed to encode order %s: %w", o.OrderID, err)
		}
		if err := l.writeIndices(ctx, o, string(raw)); err != nil {
			return 0, err
		}
		live[buyerIndexKey(o.BuyerUUID, o.OrderID)] = true
		live[productOrderIndexKey(o.ProductID, o.OrderID)] = true
	}

	indexed, err := l.store.Scan(ctx, "orderidx:")
	if err != nil {
		return 0, fmt.Errorf("failed to scan order index: %w", err)
	}
	for _, e := range indexed {
		if live[e.Key] {
			continue
		}
		l.logger.Info("removing stale order index entry", zap.String("key", e.Key))
		if err := l.store.Delete(ctx, e.Key); err != nil {
			return 0, fmt.Errorf("failed to delete stale index entry %s: %w", e.Key, err)
		}
	}
	return len(orders), nil
}

func (l *OrderLedger) list(ctx context.Context, prefix string) ([]models.Order, error) {
	entries, err := l.store.Scan(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders under %s: %w", strings.TrimSuffix(prefix, ":"), err)
	}

	orders := make([]models.Order, 0, len(entries))
	for _, e := range entries {
		o, err := decodeOrder(e.Value)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		return orders[i].OrderID < orders[j].OrderID
	})
	return orders, nil
}

func (l *OrderLedger) write(ctx context.Context, order *models.Order) error {
	raw, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode order %s: %w", order.OrderID, err)
	}
	if err := l.store.Set(ctx, orderKeyPrefix+order.OrderID, string(raw)); err != nil {
		return fmt.Errorf("failed to write order %s: %w", order.OrderID, err)
	}
	if err := l.writeIndices(ctx, order, string(raw)); err != nil {
		l.logger.Error("order index write failed", zap.String("orderId", order.OrderID), zap.Error(err))
		return fmt.Errorf("order %s: %w: %w", order.OrderID, errs.ErrPartialWrite, err)
	}
	return nil
}

func (l *OrderLedger) writeIndices(ctx context.Context, order *models.Order, raw string) error {
	if err := l.store.Set(ctx, buyerIndexKey(order.BuyerUUID, order.OrderID), raw); err != nil {
		return fmt.Errorf("failed to write buyer index: %w", err)
	}
	if err := l.store.Set(ctx, productOrderIndexKey(order.ProductID, order.OrderID), raw); err != nil {
		return fmt.Errorf("failed to write product index: %w", err)
	}
	return nil
}

func decodeOrder(raw string) (*models.Order, error) {
	var o models.Order
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}
	return &o, nil
}
