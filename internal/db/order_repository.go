package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sgolovin/ecommerce-events/internal/models"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(database *PostgresDB) *OrderRepository {
	return &OrderRepository{db: database.Conn}
}

// Create inserts a new order and fills in its assigned id.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (product, quantity, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, order.Product, order.Quantity, order.Status).
		Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

// GetByID returns a single order.
func (r *OrderRepository) GetByID(ctx context.Context, id int) (*models.Order, error) {
	query := `SELECT id, product, quantity, status, created_at FROM orders WHERE id = $1`

	var o models.Order
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&o.ID, &o.Product, &o.Quantity, &o.Status, &o.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &o, nil
}

// GetAll returns all orders, newest first.
func (r *OrderRepository) GetAll(ctx context.Context) ([]models.Order, error) {
	query := `SELECT id, product, quantity, status, created_at FROM orders ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.Product, &o.Quantity, &o.Status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	return orders, rows.Err()
}

// UpdateStatus overwrites the order status and returns the updated order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int, status string) (*models.Order, error) {
	query := `
		UPDATE orders SET status = $1 WHERE id = $2
		RETURNING id, product, quantity, status, created_at
	`

	var o models.Order
	err := r.db.QueryRowContext(ctx, query, status, id).
		Scan(&o.ID, &o.Product, &o.Quantity, &o.Status, &o.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	return &o, nil
}
