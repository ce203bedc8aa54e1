package models

import "time"

// Order statuses. Status is assigned CREATED on creation and is otherwise
// free-form (CONFIRMED, SHIPPED, ...); only CANCELLED has a meaning for
// inventory reconciliation.
const (
	OrderStatusCreated   = "CREATED"
	OrderStatusCancelled = "CANCELLED"
)

type Order struct {
	ID        int       `json:"id"`
	Product   string    `json:"product"`
	Quantity  int       `json:"quantity"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateOrderRequest struct {
	Product  string `json:"product" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
