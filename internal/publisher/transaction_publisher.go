package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sgolovin/ecommerce-events/internal/messaging"
	"github.com/sgolovin/ecommerce-events/internal/metrics"
	"github.com/sgolovin/ecommerce-events/internal/models"
)

type TransactionPublisher struct {
	mq        *messaging.RabbitMQ
	queue     string
	published *metrics.Counter
	failed    *metrics.Counter
}

func NewTransactionPublisher(mq *messaging.RabbitMQ, queue string, reg *metrics.Registry) (*TransactionPublisher, error) {
	if err := mq.DeclareQueue(queue); err != nil {
		return nil, err
	}

	return &TransactionPublisher{
		mq:        mq,
		queue:     queue,
		published: reg.Counter("transaction_events_published"),
		failed:    reg.Counter("transaction_events_failed"),
	}, nil
}

// PublishTransactionEvent publishes one event per transaction mutation,
// keyed by the order id the transaction references.
func (p *TransactionPublisher) PublishTransactionEvent(ctx context.Context, tx *models.Transaction) error {
	event := models.TransactionEvent{
		EventID:   uuid.NewString(),
		OrderID:   tx.OrderID,
		UserID:    tx.UserID,
		Amount:    tx.Amount,
		Status:    tx.Status,
		Timestamp: time.Now().UTC(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction event: %w", err)
	}

	err = p.mq.Publish(ctx, p.queue, tx.OrderID, body, func(acked bool) {
		if acked {
			p.published.Inc()
		} else {
			p.failed.Inc()
		}
	})
	if err != nil {
		p.failed.Inc()
		return err
	}

	return nil
}
