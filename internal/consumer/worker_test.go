package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/sgolovin/ecommerce-events/internal/inventory"
	"github.com/sgolovin/ecommerce-events/internal/messaging"
	"github.com/sgolovin/ecommerce-events/internal/metrics"
	"github.com/sgolovin/ecommerce-events/internal/models"
)

type publishCall struct {
	queue string
	body  []byte
}

type fakeBus struct {
	declared   []string
	published  []publishCall
	deliveries chan amqp.Delivery
}

func (f *fakeBus) DeclareQueue(name string) error {
	f.declared = append(f.declared, name)
	return nil
}

func (f *fakeBus) Consume(string) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeBus) Publish(_ context.Context, queue, _ string, body []byte, _ messaging.ConfirmFunc) error {
	f.published = append(f.published, publishCall{queue: queue, body: body})
	return nil
}

type fakeAcker struct {
	acked  int
	nacked int
}

func (f *fakeAcker) Ack(uint64, bool) error        { f.acked++; return nil }
func (f *fakeAcker) Nack(uint64, bool, bool) error { f.nacked++; return nil }
func (f *fakeAcker) Reject(uint64, bool) error     { f.nacked++; return nil }

func newTestWorker(t *testing.T, bus *fakeBus, handler Handler) (*Worker, *metrics.Registry) {
	t.Helper()
	reg := metrics.NewRegistry()
	w, err := NewWorker(bus, "test-queue", handler, 2, time.Millisecond, reg, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	return w, reg
}

func TestNewWorkerDeclaresQueueAndDLQ(t *testing.T) {
	bus := &fakeBus{}
	_, _ = newTestWorker(t, bus, func(context.Context, []byte) error { return nil })

	if len(bus.declared) != 2 || bus.declared[0] != "test-queue" || bus.declared[1] != "test-queue.dlq" {
		t.Fatalf("expected queue and DLQ declared, got %v", bus.declared)
	}
}

func TestProcessSuccessAcks(t *testing.T) {
	bus := &fakeBus{}
	w, reg := newTestWorker(t, bus, func(context.Context, []byte) error { return nil })

	acker := &fakeAcker{}
	w.process(context.Background(), amqp.Delivery{Acknowledger: acker, Body: []byte("{}")})

	if acker.acked != 1 {
		t.Fatalf("expected 1 ack, got %d", acker.acked)
	}
	if len(bus.published) != 0 {
		t.Fatalf("expected no DLQ publish, got %d", len(bus.published))
	}
	if got := reg.Counter("test-queue_processed").Value(); got != 1 {
		t.Fatalf("expected processed counter 1, got %d", got)
	}
}

func TestProcessMalformedDeadLettersWithoutRetry(t *testing.T) {
	attempts := 0
	bus := &fakeBus{}
	w, reg := newTestWorker(t, bus, func(context.Context, []byte) error {
		attempts++
		return fmt.Errorf("%w: bad payload", models.ErrMalformedEvent)
	})

	acker := &fakeAcker{}
	w.process(context.Background(), amqp.Delivery{Acknowledger: acker, Body: []byte("bad")})

	if attempts != 1 {
		t.Fatalf("poison records must not be retried, got %d attempts", attempts)
	}
	if len(bus.published) != 1 || bus.published[0].queue != "test-queue.dlq" {
		t.Fatalf("expected one DLQ publish, got %v", bus.published)
	}
	if acker.acked != 1 {
		t.Fatalf("dead-lettered record must be acked, got %d acks", acker.acked)
	}

	var dlqMsg models.DLQMessage
	if err := json.Unmarshal(bus.published[0].body, &dlqMsg); err != nil {
		t.Fatalf("unmarshal DLQ message: %v", err)
	}
	if dlqMsg.OriginalQueue != "test-queue" || dlqMsg.Body != "bad" || dlqMsg.Attempts != 1 {
		t.Fatalf("unexpected DLQ message: %+v", dlqMsg)
	}
	if got := reg.Counter("test-queue_dead_lettered").Value(); got != 1 {
		t.Fatalf("expected dead_lettered counter 1, got %d", got)
	}
}

func TestProcessRetriesTransientFailure(t *testing.T) {
	attempts := 0
	bus := &fakeBus{}
	w, reg := newTestWorker(t, bus, func(context.Context, []byte) error {
		attempts++
		if attempts < 3 {
			return errors.New("db down")
		}
		return nil
	})

	acker := &fakeAcker{}
	w.process(context.Background(), amqp.Delivery{Acknowledger: acker, Body: []byte("{}")})

	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if len(bus.published) != 0 {
		t.Fatal("record that eventually succeeded must not be dead-lettered")
	}
	if got := reg.Counter("test-queue_processed").Value(); got != 1 {
		t.Fatalf("expected processed counter 1, got %d", got)
	}
}

func TestProcessExhaustedRetriesDeadLetters(t *testing.T) {
	attempts := 0
	bus := &fakeBus{}
	w, reg := newTestWorker(t, bus, func(context.Context, []byte) error {
		attempts++
		return errors.New("db down")
	})

	acker := &fakeAcker{}
	w.process(context.Background(), amqp.Delivery{Acknowledger: acker, Body: []byte("{}")})

	if attempts != 3 { // initial try + 2 retries
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected one DLQ publish, got %d", len(bus.published))
	}
	if acker.acked != 1 {
		t.Fatal("exhausted record must still be acked")
	}
	if got := reg.Counter("test-queue_failed").Value(); got != 1 {
		t.Fatalf("expected failed counter 1, got %d", got)
	}
}

// flakyStockRepo fails the first n ApplyDelta calls, then behaves like the
// SQL upsert.
type flakyStockRepo struct {
	stock    map[int]int
	calls    int
	failures int
}

func (f *flakyStockRepo) ApplyDelta(_ context.Context, productID, delta, defaultStock int) (int, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return 0, errors.New("db down")
	}
	current, ok := f.stock[productID]
	if !ok {
		current = defaultStock
	}
	next := current + delta
	if next < 0 {
		next = 0
	}
	f.stock[productID] = next
	return next, nil
}

type seenSet struct {
	ids map[string]bool
}

func (s *seenSet) Seen(_ context.Context, id string) (bool, error) { return s.ids[id], nil }
func (s *seenSet) Mark(_ context.Context, id string) error         { s.ids[id] = true; return nil }
func (s *seenSet) Close() error                                    { return nil }

// The retry loop composed with dedup: a transient store failure on the
// first attempt must not make the retry see the event as a duplicate.
func TestTransientFailureRetriedThenAppliedOnce(t *testing.T) {
	repo := &flakyStockRepo{stock: make(map[int]int), failures: 1}
	seen := &seenSet{ids: make(map[string]bool)}
	reconciler := inventory.NewReconciler(repo, seen, 100, metrics.NewRegistry(), zap.NewNop())

	bus := &fakeBus{}
	w, reg := newTestWorker(t, bus, reconciler.HandleOrderEvent)

	body, err := json.Marshal(models.OrderEvent{
		EventID: "e1", OrderID: 1, Product: "Laptop", Quantity: 10,
		Status: models.OrderStatusCreated, EventType: models.EventTypeCreated,
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	acker := &fakeAcker{}
	w.process(context.Background(), amqp.Delivery{Acknowledger: acker, Body: body})

	if repo.calls != 2 {
		t.Fatalf("expected the failed attempt to be retried, got %d ApplyDelta calls", repo.calls)
	}
	if got := repo.stock[inventory.ProductKey("Laptop")]; got != 90 {
		t.Fatalf("expected stock 90 after retry, got %d", got)
	}
	if len(bus.published) != 0 {
		t.Fatalf("expected no DLQ publish, got %d", len(bus.published))
	}
	if acker.acked != 1 {
		t.Fatalf("expected 1 ack, got %d", acker.acked)
	}
	if got := reg.Counter("test-queue_processed").Value(); got != 1 {
		t.Fatalf("expected processed counter 1, got %d", got)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	bus := &fakeBus{deliveries: make(chan amqp.Delivery)}
	w, _ := newTestWorker(t, bus, func(context.Context, []byte) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestRunDoesNotStartBufferedRecordAfterCancel(t *testing.T) {
	handled := make(chan struct{}, 1)
	bus := &fakeBus{deliveries: make(chan amqp.Delivery, 1)}
	w, _ := newTestWorker(t, bus, func(context.Context, []byte) error {
		handled <- struct{}{}
		return nil
	})

	bus.deliveries <- amqp.Delivery{Acknowledger: &fakeAcker{}, Body: []byte("{}")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	select {
	case <-handled:
		t.Fatal("buffered record must not be started after cancellation")
	default:
	}
}

func TestRunDrainsInFlightRecord(t *testing.T) {
	started := make(chan struct{})
	finished := make(chan struct{})
	bus := &fakeBus{deliveries: make(chan amqp.Delivery, 1)}
	w, _ := newTestWorker(t, bus, func(context.Context, []byte) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		close(finished)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	bus.deliveries <- amqp.Delivery{Acknowledger: &fakeAcker{}, Body: []byte("{}")}

	<-started
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}

	select {
	case <-finished:
	default:
		t.Fatal("in-flight record was not drained to completion")
	}
}
