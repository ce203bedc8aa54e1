// Package inventory reconciles stock levels from order lifecycle events.
package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"

	"go.uber.org/zap"

	"github.com/sgolovin/ecommerce-events/internal/dedup"
	"github.com/sgolovin/ecommerce-events/internal/metrics"
	"github.com/sgolovin/ecommerce-events/internal/models"
)

// ProductKey derives the inventory key from a product name by reducing a
// hash into 1..1000. The mapping is not injective: distinct products can
// collide and silently share a stock record. Known limitation, kept for
// compatibility with the order-events payload, which carries only the name.
func ProductKey(product string) int {
	h := fnv.New32a()
	h.Write([]byte(product))
	return int(h.Sum32()%1000) + 1
}

// Repository is the slice of the inventory store the reconciler needs.
type Repository interface {
	ApplyDelta(ctx context.Context, productID, delta, defaultStock int) (int, error)
}

type Reconciler struct {
	repo         Repository
	seen         dedup.Store
	defaultStock int
	logger       *zap.Logger

	adjusted    *metrics.Counter
	skipped     *metrics.Counter
	duplicates  *metrics.Counter
	dedupErrors *metrics.Counter
}

func NewReconciler(repo Repository, seen dedup.Store, defaultStock int, reg *metrics.Registry, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		repo:         repo,
		seen:         seen,
		defaultStock: defaultStock,
		logger:       logger,
		adjusted:     reg.Counter("inventory_adjusted"),
		skipped:      reg.Counter("inventory_skipped"),
		duplicates:   reg.Counter("inventory_duplicates"),
		dedupErrors:  reg.Counter("inventory_dedup_errors"),
	}
}

// HandleOrderEvent applies one delivered order event to inventory.
// CREATED/CREATED decreases stock by the quantity, clamped at zero;
// UPDATED/CANCELLED increases it back; everything else is a no-op.
func (r *Reconciler) HandleOrderEvent(ctx context.Context, body []byte) error {
	var event models.OrderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", models.ErrMalformedEvent, err)
	}
	if event.Product == "" {
		return fmt.Errorf("%w: missing product", models.ErrMalformedEvent)
	}
	if event.Quantity <= 0 {
		return fmt.Errorf("%w: non-positive quantity %d", models.ErrMalformedEvent, event.Quantity)
	}

	if r.alreadySeen(ctx, event.EventID) {
		r.duplicates.Inc()
		r.logger.Info("duplicate order event skipped", zap.String("event_id", event.EventID))
		return nil
	}

	var delta int
	switch {
	case event.EventType == models.EventTypeCreated && event.Status == models.OrderStatusCreated:
		delta = -event.Quantity
	case event.EventType == models.EventTypeUpdated && event.Status == models.OrderStatusCancelled:
		delta = event.Quantity
	default:
		r.skipped.Inc()
		return nil
	}

	productID := ProductKey(event.Product)
	stock, err := r.repo.ApplyDelta(ctx, productID, delta, r.defaultStock)
	if err != nil {
		return err
	}

	r.markSeen(ctx, event.EventID)

	r.adjusted.Inc()
	r.logger.Info("stock adjusted",
		zap.Int("order_id", event.OrderID),
		zap.String("product", event.Product),
		zap.Int("product_id", productID),
		zap.Int("delta", delta),
		zap.Int("stock", stock),
	)
	return nil
}

// alreadySeen consults the dedup store. If the store is down the event is
// processed anyway: delivery wins over deduplication, and the failure is
// counted.
func (r *Reconciler) alreadySeen(ctx context.Context, eventID string) bool {
	if r.seen == nil || eventID == "" {
		return false
	}
	dup, err := r.seen.Seen(ctx, eventID)
	if err != nil {
		r.dedupErrors.Inc()
		r.logger.Warn("dedup store unavailable, processing without dedup", zap.Error(err))
		return false
	}
	return dup
}

// markSeen runs only after the delta is applied, so a failed attempt stays
// retryable instead of being mistaken for a duplicate on the next try.
func (r *Reconciler) markSeen(ctx context.Context, eventID string) {
	if r.seen == nil || eventID == "" {
		return
	}
	if err := r.seen.Mark(ctx, eventID); err != nil {
		r.dedupErrors.Inc()
		r.logger.Warn("failed to mark event seen", zap.String("event_id", eventID), zap.Error(err))
	}
}
