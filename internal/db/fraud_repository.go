package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sgolovin/ecommerce-events/internal/models"
)

type FraudAlertRepository struct {
	db *sql.DB
}

func NewFraudAlertRepository(database *PostgresDB) *FraudAlertRepository {
	return &FraudAlertRepository{db: database.Conn}
}

const alertColumns = `id, order_id, user_id, amount, status, reason, investigation_status, detected_at, created_at, updated_at`

// Create inserts a new alert and fills in its assigned id and timestamps.
func (r *FraudAlertRepository) Create(ctx context.Context, alert *models.FraudAlert) error {
	query := `
		INSERT INTO fraud_alerts (order_id, user_id, amount, status, reason, investigation_status, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		alert.OrderID, alert.UserID, alert.Amount, alert.Status,
		alert.Reason, alert.InvestigationStatus, alert.DetectedAt,
	).Scan(&alert.ID, &alert.CreatedAt, &alert.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert fraud alert: %w", err)
	}

	return nil
}

// GetByID returns a single alert.
func (r *FraudAlertRepository) GetByID(ctx context.Context, id int64) (*models.FraudAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM fraud_alerts WHERE id = $1`

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get fraud alert: %w", err)
	}

	return alert, nil
}

// GetAll returns all alerts, newest first.
func (r *FraudAlertRepository) GetAll(ctx context.Context) ([]models.FraudAlert, error) {
	return r.query(ctx, `SELECT `+alertColumns+` FROM fraud_alerts ORDER BY id DESC`)
}

// GetByInvestigationStatus returns all alerts in one investigation status.
func (r *FraudAlertRepository) GetByInvestigationStatus(ctx context.Context, status string) ([]models.FraudAlert, error) {
	return r.query(ctx, `SELECT `+alertColumns+` FROM fraud_alerts WHERE investigation_status = $1 ORDER BY id DESC`, status)
}

// GetByUserID returns all alerts for one user.
func (r *FraudAlertRepository) GetByUserID(ctx context.Context, userID int) ([]models.FraudAlert, error) {
	return r.query(ctx, `SELECT `+alertColumns+` FROM fraud_alerts WHERE user_id = $1 ORDER BY id DESC`, userID)
}

// UpdateInvestigationStatus overwrites the investigation status and touches
// updated_at.
func (r *FraudAlertRepository) UpdateInvestigationStatus(ctx context.Context, id int64, status string) (*models.FraudAlert, error) {
	query := `
		UPDATE fraud_alerts SET investigation_status = $1, updated_at = now() WHERE id = $2
		RETURNING ` + alertColumns

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, status, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to update fraud alert: %w", err)
	}

	return alert, nil
}

// Stats returns total / pending / confirmed alert counts in one query.
func (r *FraudAlertRepository) Stats(ctx context.Context) (*models.FraudStats, error) {
	query := `
		SELECT
			count(*),
			count(*) FILTER (WHERE investigation_status = 'PENDING'),
			count(*) FILTER (WHERE investigation_status = 'CONFIRMED_FRAUD')
		FROM fraud_alerts
	`

	var stats models.FraudStats
	err := r.db.QueryRowContext(ctx, query).
		Scan(&stats.TotalAlerts, &stats.PendingAlerts, &stats.ConfirmedFraud)
	if err != nil {
		return nil, fmt.Errorf("failed to query fraud stats: %w", err)
	}

	return &stats, nil
}

func (r *FraudAlertRepository) query(ctx context.Context, query string, args ...any) ([]models.FraudAlert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fraud alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.FraudAlert
	for rows.Next() {
		var a models.FraudAlert
		err := rows.Scan(&a.ID, &a.OrderID, &a.UserID, &a.Amount, &a.Status, &a.Reason,
			&a.InvestigationStatus, &a.DetectedAt, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fraud alert: %w", err)
		}
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*models.FraudAlert, error) {
	var a models.FraudAlert
	err := row.Scan(&a.ID, &a.OrderID, &a.UserID, &a.Amount, &a.Status, &a.Reason,
		&a.InvestigationStatus, &a.DetectedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
