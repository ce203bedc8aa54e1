package models

// InventoryRecord tracks stock for a derived product key. Stock never goes
// below zero; decreases are clamped.
type InventoryRecord struct {
	ProductID int `json:"product_id"`
	Stock     int `json:"stock"`
}

type AdjustStockRequest struct {
	ProductID int `json:"product_id" binding:"required"`
	Quantity  int `json:"quantity" binding:"required,gt=0"`
}
