// Package consumer runs the worker loops that drain bus queues.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/sgolovin/ecommerce-events/internal/messaging"
	"github.com/sgolovin/ecommerce-events/internal/metrics"
	"github.com/sgolovin/ecommerce-events/internal/models"
)

// Handler processes one delivered record. Returning nil acks the record;
// models.ErrMalformedEvent dead-letters it immediately; any other error is
// retried with backoff and dead-lettered once retries are exhausted.
type Handler func(ctx context.Context, body []byte) error

// Bus is the slice of the messaging layer the worker needs.
type Bus interface {
	DeclareQueue(name string) error
	Consume(queue string) (<-chan amqp.Delivery, error)
	Publish(ctx context.Context, queue, key string, body []byte, onConfirm messaging.ConfirmFunc) error
}

type Worker struct {
	bus     Bus
	queue   string
	dlq     string
	handler Handler
	logger  *zap.Logger

	maxRetries uint64
	backoff    time.Duration

	processed    *metrics.Counter
	failed       *metrics.Counter
	deadLettered *metrics.Counter
}

// NewWorker declares the queue and its dead-letter companion, and wires the
// handler in.
func NewWorker(bus Bus, queue string, handler Handler, maxRetries uint64, backoff time.Duration, reg *metrics.Registry, logger *zap.Logger) (*Worker, error) {
	dlq := queue + ".dlq"
	if err := bus.DeclareQueue(queue); err != nil {
		return nil, err
	}
	if err := bus.DeclareQueue(dlq); err != nil {
		return nil, err
	}

	return &Worker{
		bus:          bus,
		queue:        queue,
		dlq:          dlq,
		handler:      handler,
		logger:       logger,
		maxRetries:   maxRetries,
		backoff:      backoff,
		processed:    reg.Counter(queue + "_processed"),
		failed:       reg.Counter(queue + "_failed"),
		deadLettered: reg.Counter(queue + "_dead_lettered"),
	}, nil
}

// Run consumes until ctx is cancelled. The record in flight is always
// drained to completion; there is no mid-record cancellation.
func (w *Worker) Run(ctx context.Context) error {
	deliveries, err := w.bus.Consume(w.queue)
	if err != nil {
		return err
	}

	for {
		// Checked first so a buffered delivery cannot win the select over a
		// cancelled context; only the record already in flight is drained.
		if ctx.Err() != nil {
			w.logger.Info("worker stopping", zap.String("queue", w.queue))
			return nil
		}

		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping", zap.String("queue", w.queue))
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				w.logger.Info("delivery channel closed", zap.String("queue", w.queue))
				return nil
			}
			// Shutdown must not cut a record off halfway.
			w.process(context.WithoutCancel(ctx), msg)
		}
	}
}

func (w *Worker) process(ctx context.Context, msg amqp.Delivery) {
	attempts := 0
	backoff := retry.WithMaxRetries(w.maxRetries, retry.NewExponential(w.backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		err := w.handler(ctx, msg.Body)
		if err == nil {
			return nil
		}
		if errors.Is(err, models.ErrMalformedEvent) {
			return err // poison, never retried
		}
		return retry.RetryableError(err)
	})
	if err == nil {
		w.processed.Inc()
		if ackErr := msg.Ack(false); ackErr != nil {
			w.logger.Error("failed to ack", zap.String("queue", w.queue), zap.Error(ackErr))
		}
		return
	}

	w.failed.Inc()
	w.logger.Error("record processing failed, dead-lettering",
		zap.String("queue", w.queue),
		zap.Int("attempts", attempts),
		zap.Error(err),
	)

	w.deadLetter(ctx, msg, err, attempts)

	// Ack the original either way: the DLQ copy (or the log line, if even
	// that failed) is the record of it. Requeueing a poison record would
	// loop forever.
	if ackErr := msg.Ack(false); ackErr != nil {
		w.logger.Error("failed to ack dead-lettered record", zap.String("queue", w.queue), zap.Error(ackErr))
	}
}

func (w *Worker) deadLetter(ctx context.Context, msg amqp.Delivery, cause error, attempts int) {
	dlqMsg := models.DLQMessage{
		OriginalQueue: w.queue,
		Body:          string(msg.Body),
		Reason:        cause.Error(),
		Attempts:      attempts,
		FailedAt:      time.Now().UTC(),
	}

	body, err := json.Marshal(dlqMsg)
	if err != nil {
		w.logger.Error("failed to marshal DLQ message", zap.Error(err))
		return
	}

	if err := w.bus.Publish(ctx, w.dlq, msg.MessageId, body, nil); err != nil {
		w.logger.Error("failed to publish to DLQ", zap.String("dlq", w.dlq), zap.Error(err))
		return
	}

	w.deadLettered.Inc()
}
