package models

import "time"

// Event types carried by OrderEvent.
const (
	EventTypeCreated = "CREATED"
	EventTypeUpdated = "UPDATED"
)

// OrderEvent is published on every order mutation. EventID is unique per
// publication and is what consumers deduplicate on; the bus may redeliver.
type OrderEvent struct {
	EventID   string `json:"event_id"`
	OrderID   int    `json:"order_id"`
	Product   string `json:"product"`
	Quantity  int    `json:"quantity"`
	Status    string `json:"status"`
	EventType string `json:"event_type"`
}

// TransactionEvent is published on every transaction mutation and is the
// input to fraud detection.
type TransactionEvent struct {
	EventID   string    `json:"event_id"`
	OrderID   string    `json:"order_id"`
	UserID    int       `json:"user_id"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// DLQMessage wraps a record that could not be processed, preserved on the
// dead-letter queue for inspection.
type DLQMessage struct {
	OriginalQueue string    `json:"original_queue"`
	Body          string    `json:"body"`
	Reason        string    `json:"reason"`
	Attempts      int       `json:"attempts"`
	FailedAt      time.Time `json:"failed_at"`
}
