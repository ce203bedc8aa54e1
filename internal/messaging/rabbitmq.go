// Package messaging wraps the RabbitMQ connection shared by publishers and
// consumers.
package messaging

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ConfirmFunc observes the broker's publish confirmation. It runs on the
// confirm goroutine, after the publishing call has already returned.
type ConfirmFunc func(acked bool)

type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.Logger

	mu       sync.Mutex
	closed   bool
	confirms chan amqp.Confirmation
	pending  chan ConfirmFunc
}

// NewRabbitMQ connects to the broker and puts the channel into confirm mode,
// so every publish gets an asynchronous ack/nack from the broker.
func NewRabbitMQ(url string, logger *zap.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.Confirm(false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to enable confirm mode: %w", err)
	}

	r := &RabbitMQ{
		conn:     conn,
		channel:  channel,
		logger:   logger,
		confirms: channel.NotifyPublish(make(chan amqp.Confirmation, 64)),
		pending:  make(chan ConfirmFunc, 64),
	}
	go r.handleConfirms()

	logger.Info("connected to RabbitMQ")
	return r, nil
}

// handleConfirms matches broker confirmations to pending callbacks. The
// channel delivers confirmations in publish order, so a FIFO pairing is
// correct.
func (r *RabbitMQ) handleConfirms() {
	for confirm := range r.confirms {
		fn, ok := <-r.pending
		if !ok {
			return
		}
		if fn != nil {
			fn(confirm.Ack)
		}
		if !confirm.Ack {
			r.logger.Warn("publish nacked by broker", zap.Uint64("delivery_tag", confirm.DeliveryTag))
		}
	}
}

// DeclareQueue creates a durable queue if it doesn't exist.
func (r *RabbitMQ) DeclareQueue(name string) error {
	_, err := r.channel.QueueDeclare(
		name,  // queue name
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}

	return nil
}

// Publish sends a message to a queue, keyed for downstream ordering. The
// call returns once the message is handed to the broker; onConfirm fires
// later with the broker's verdict.
func (r *RabbitMQ) Publish(ctx context.Context, queue, key string, body []byte, onConfirm ConfirmFunc) error {
	// The mutex keeps the pending queue in publish order so confirmations
	// pair with the right callback, and fences Publish against Close.
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("cannot publish to %s: connection closed", queue)
	}

	err := r.channel.PublishWithContext(ctx,
		"",    // exchange
		queue, // routing key (queue name)
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    key,
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queue, err)
	}

	r.pending <- onConfirm
	return nil
}

// Consume receives messages from a queue with manual acknowledgement.
func (r *RabbitMQ) Consume(queue string) (<-chan amqp.Delivery, error) {
	messages, err := r.channel.Consume(
		queue, // queue name
		"",    // consumer tag
		false, // auto-ack (false = manual ack)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume from %s: %w", queue, err)
	}

	r.logger.Info("listening on queue", zap.String("queue", queue))
	return messages, nil
}

// Close closes the channel and connection. Publishes after Close fail
// instead of racing the pending-queue shutdown.
func (r *RabbitMQ) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.pending)
	r.mu.Unlock()

	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
}
