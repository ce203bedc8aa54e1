package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sgolovin/ecommerce-events/internal/models"
)

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(database *PostgresDB) *TransactionRepository {
	return &TransactionRepository{db: database.Conn}
}

// Create inserts a new transaction and fills in its assigned id and timestamps.
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (order_id, user_id, amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, tx.OrderID, tx.UserID, tx.Amount, tx.Status).
		Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// GetByID returns a single transaction.
func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*models.Transaction, error) {
	query := `
		SELECT id, order_id, user_id, amount, status, created_at, updated_at
		FROM transactions WHERE id = $1
	`

	var tx models.Transaction
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&tx.ID, &tx.OrderID, &tx.UserID, &tx.Amount, &tx.Status, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &tx, nil
}

// GetAll returns all transactions, newest first.
func (r *TransactionRepository) GetAll(ctx context.Context) ([]models.Transaction, error) {
	return r.query(ctx, `
		SELECT id, order_id, user_id, amount, status, created_at, updated_at
		FROM transactions ORDER BY id DESC
	`)
}

// GetByUserID returns all transactions for one user, newest first.
func (r *TransactionRepository) GetByUserID(ctx context.Context, userID int) ([]models.Transaction, error) {
	return r.query(ctx, `
		SELECT id, order_id, user_id, amount, status, created_at, updated_at
		FROM transactions WHERE user_id = $1 ORDER BY id DESC
	`, userID)
}

// UpdateStatus overwrites the transaction status and touches updated_at.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id int64, status string) (*models.Transaction, error) {
	query := `
		UPDATE transactions SET status = $1, updated_at = now() WHERE id = $2
		RETURNING id, order_id, user_id, amount, status, created_at, updated_at
	`

	var tx models.Transaction
	err := r.db.QueryRowContext(ctx, query, status, id).
		Scan(&tx.ID, &tx.OrderID, &tx.UserID, &tx.Amount, &tx.Status, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}

	return &tx, nil
}

func (r *TransactionRepository) query(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.OrderID, &tx.UserID, &tx.Amount, &tx.Status, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}

	return txs, rows.Err()
}
