// Package publisher emits domain events to the bus and counts the broker's
// confirmations.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/sgolovin/ecommerce-events/internal/messaging"
	"github.com/sgolovin/ecommerce-events/internal/metrics"
	"github.com/sgolovin/ecommerce-events/internal/models"
)

type OrderPublisher struct {
	mq        *messaging.RabbitMQ
	queue     string
	published *metrics.Counter
	failed    *metrics.Counter
}

func NewOrderPublisher(mq *messaging.RabbitMQ, queue string, reg *metrics.Registry) (*OrderPublisher, error) {
	if err := mq.DeclareQueue(queue); err != nil {
		return nil, err
	}

	return &OrderPublisher{
		mq:        mq,
		queue:     queue,
		published: reg.Counter("order_events_published"),
		failed:    reg.Counter("order_events_failed"),
	}, nil
}

// PublishOrderEvent publishes one event per order mutation, keyed by order
// id so events for the same order stay ordered downstream.
func (p *OrderPublisher) PublishOrderEvent(ctx context.Context, order *models.Order, eventType string) error {
	event := models.OrderEvent{
		EventID:   uuid.NewString(),
		OrderID:   order.ID,
		Product:   order.Product,
		Quantity:  order.Quantity,
		Status:    order.Status,
		EventType: eventType,
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	key := strconv.Itoa(order.ID)
	err = p.mq.Publish(ctx, p.queue, key, body, func(acked bool) {
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
