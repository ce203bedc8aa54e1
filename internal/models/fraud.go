package models

import "time"

// FraudAlert is created by the detector when a rule fires. Investigation
// status is mutated only through the alert lifecycle service, which enforces
// the transition table.
type FraudAlert struct {
	ID                  int64     `json:"id"`
	OrderID             string    `json:"order_id"`
	UserID              int       `json:"user_id"`
	Amount              float64   `json:"amount"`
	Status              string    `json:"status"` // originating transaction status
	Reason              string    `json:"reason"`
	InvestigationStatus string    `json:"investigation_status"`
	DetectedAt          time.Time `json:"detected_at"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type PatchAlertRequest struct {
	InvestigationStatus string `json:"investigation_status" binding:"required"`
}

// FraudStats is the aggregate returned by the alerts stats endpoint.
type FraudStats struct {
	TotalAlerts    int64 `json:"total_alerts"`
	PendingAlerts  int64 `json:"pending_alerts"`
	ConfirmedFraud int64 `json:"confirmed_fraud"`
}
