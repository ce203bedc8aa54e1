// Package fraud detects anomalous transactions and manages the resulting
// alerts through their investigation lifecycle.
package fraud

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sgolovin/ecommerce-events/internal/dedup"
	"github.com/sgolovin/ecommerce-events/internal/metrics"
	"github.com/sgolovin/ecommerce-events/internal/models"
)

// Rule is one independent fraud check. Rules compose: each firing rule
// contributes its own alert for the transaction.
type Rule interface {
	Name() string
	// Check returns a human-readable reason when the rule fires.
	Check(event models.TransactionEvent) (reason string, fired bool)
}

// ThresholdRule fires when the amount is strictly greater than the
// threshold. An amount exactly equal to the threshold never fires.
type ThresholdRule struct {
	Threshold float64
}

func (r ThresholdRule) Name() string { return "amount-threshold" }

func (r ThresholdRule) Check(event models.TransactionEvent) (string, bool) {
	if event.Amount > r.Threshold {
		return fmt.Sprintf("high value transaction: amount %.2f exceeds threshold %.2f", event.Amount, r.Threshold), true
	}
	return "", false
}

// AlertCreator is the slice of the alert store the detector needs.
type AlertCreator interface {
	Create(ctx context.Context, alert *models.FraudAlert) error
}

type Detector struct {
	alerts AlertCreator
	rules  []Rule
	seen   dedup.Store
	logger *zap.Logger

	processed   *metrics.Counter
	created     *metrics.Counter
	duplicates  *metrics.Counter
	dedupErrors *metrics.Counter
}

func NewDetector(alerts AlertCreator, rules []Rule, seen dedup.Store, reg *metrics.Registry, logger *zap.Logger) *Detector {
	return &Detector{
		alerts:      alerts,
		rules:       rules,
		seen:        seen,
		logger:      logger,
		processed:   reg.Counter("fraud_transactions_processed"),
		created:     reg.Counter("fraud_alerts_created"),
		duplicates:  reg.Counter("fraud_duplicates"),
		dedupErrors: reg.Counter("fraud_dedup_errors"),
	}
}

// HandleTransactionEvent runs every rule against one delivered transaction
// event and persists an alert per firing rule.
func (d *Detector) HandleTransactionEvent(ctx context.Context, body []byte) error {
	var event models.TransactionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", models.ErrMalformedEvent, err)
	}
	if event.OrderID == "" {
		return fmt.Errorf("%w: missing order_id", models.ErrMalformedEvent)
	}

	if d.seen != nil && event.EventID != "" {
		dup, err := d.seen.Seen(ctx, event.EventID)
		if err != nil {
			d.dedupErrors.Inc()
			d.logger.Warn("dedup store unavailable, processing without dedup", zap.Error(err))
		} else if dup {
			d.duplicates.Inc()
			d.logger.Info("duplicate transaction event skipped", zap.String("event_id", event.EventID))
			return nil
		}
	}

	d.processed.Inc()

	for _, rule := range d.rules {
		reason, fired := rule.Check(event)
		if !fired {
			continue
		}

		alert := &models.FraudAlert{
			OrderID:             event.OrderID,
			UserID:              event.UserID,
			Amount:              event.Amount,
			Status:              event.Status,
			Reason:              reason,
			InvestigationStatus: StatusPending,
			DetectedAt:          time.Now().UTC(),
		}
		if err := d.alerts.Create(ctx, alert); err != nil {
			return fmt.Errorf("failed to create fraud alert: %w", err)
		}

		d.created.Inc()
		d.logger.Warn("FRAUD ALERT created",
			zap.Int64("alert_id", alert.ID),
			zap.String("rule", rule.Name()),
			zap.String("order_id", event.OrderID),
			zap.Int("user_id", event.UserID),
			zap.Float64("amount", event.Amount),
		)
	}

	// Marked only after every rule ran and its alert persisted, so a failed
	// attempt is not mistaken for a duplicate by the retry that follows.
	if d.seen != nil && event.EventID != "" {
		if err := d.seen.Mark(ctx, event.EventID); err != nil {
			d.dedupErrors.Inc()
			d.logger.Warn("failed to mark event seen", zap.String("event_id", event.EventID), zap.Error(err))
		}
	}

	return nil
}
