package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sgolovin/ecommerce-events/internal/models"
)

type InventoryRepository struct {
	db *sql.DB
}

func NewInventoryRepository(database *PostgresDB) *InventoryRepository {
	return &InventoryRepository{db: database.Conn}
}

// ApplyDelta bootstraps the record at defaultStock if absent, then applies
// delta clamped at zero, all in one statement. Single-row upserts are atomic
// in Postgres, so concurrent workers hitting the same product key cannot
// lose updates.
func (r *InventoryRepository) ApplyDelta(ctx context.Context, productID, delta, defaultStock int) (int, error) {
	query := `
		INSERT INTO inventory (product_id, stock)
		VALUES ($1, GREATEST(0, $2 + $3))
		ON CONFLICT (product_id)
		DO UPDATE SET stock = GREATEST(0, inventory.stock + $3)
		RETURNING stock
	`

	var stock int
	err := r.db.QueryRowContext(ctx, query, productID, defaultStock, delta).Scan(&stock)
	if err != nil {
		return 0, fmt.Errorf("failed to apply stock delta: %w", err)
	}

	return stock, nil
}

// GetByProductID returns the record for one product key.
func (r *InventoryRepository) GetByProductID(ctx context.Context, productID int) (*models.InventoryRecord, error) {
	query := `SELECT product_id, stock FROM inventory WHERE product_id = $1`

	var rec models.InventoryRecord
	err := r.db.QueryRowContext(ctx, query, productID).Scan(&rec.ProductID, &rec.Stock)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrInventoryNotFound
		}
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}

	return &rec, nil
}

// GetAll returns every inventory record ordered by product key.
func (r *InventoryRepository) GetAll(ctx context.Context) ([]models.InventoryRecord, error) {
	query := `SELECT product_id, stock FROM inventory ORDER BY product_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer rows.Close()

	var records []models.InventoryRecord
	for rows.Next() {
		var rec models.InventoryRecord
		if err := rows.Scan(&rec.ProductID, &rec.Stock); err != nil {
			return nil, fmt.Errorf("failed to scan inventory: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
