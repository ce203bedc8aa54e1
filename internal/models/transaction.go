package models

import "time"

// Transaction statuses.
const (
	TransactionStatusPending   = "PENDING"
	TransactionStatusCompleted = "COMPLETED"
	TransactionStatusFailed    = "FAILED"
	TransactionStatusRefunded  = "REFUNDED"
)

type Transaction struct {
	ID        int64     `json:"id"`
	OrderID   string    `json:"order_id"`
	UserID    int       `json:"user_id"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateTransactionRequest struct {
	OrderID string  `json:"order_id" binding:"required"`
	UserID  int     `json:"user_id" binding:"required"`
	Amount  float64 `json:"amount" binding:"required,gt=0"`
}

type UpdateTransactionStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ValidTransactionStatus reports whether s is a recognized transaction status.
func ValidTransactionStatus(s string) bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCompleted,
		TransactionStatusFailed, TransactionStatusRefunded:
		return true
	}
	return false
}
